package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/payment"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/transaction"
)

// fixed width keeps the text column sortable
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const selectTransaction = `
	SELECT id, amount, currency, payment_method, status, idempotency_key,
	       provider_reference_id, transaction_reference, provider,
	       created_by, last_modified_by, created_at, updated_at, version
	FROM transactions`

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *transaction.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions
		 (id, amount, currency, payment_method, status, idempotency_key,
		  provider_reference_id, reference_is_sentinel, transaction_reference, provider,
		  created_by, last_modified_by, created_at, updated_at, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (idempotency_key) DO NOTHING`,
		tx.ID,
		tx.Amount.String(),
		tx.Currency,
		string(tx.PaymentMethod),
		string(tx.Status),
		tx.IdempotencyKey,
		nullableReference(tx.ProviderReferenceID),
		sentinelFlag(tx.ProviderReferenceID),
		tx.TransactionReference,
		tx.Provider,
		tx.CreatedBy,
		tx.LastModifiedBy,
		formatTime(tx.CreatedAt),
		formatTime(tx.UpdatedAt),
		tx.Version,
	)
	if err != nil {
		return translateError(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	// 0 rows = idempotency hit
	if affected == 0 {
		return transaction.ErrDuplicateIdempotencyKey
	}
	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*transaction.Transaction, error) {
	return r.findOne(ctx, selectTransaction+` WHERE id = ?`, id)
}

func (r *TransactionRepository) FindByIdempotencyKey(ctx context.Context, key string) (*transaction.Transaction, error) {
	return r.findOne(ctx, selectTransaction+` WHERE idempotency_key = ?`, key)
}

func (r *TransactionRepository) FindByProviderReferenceID(ctx context.Context, ref string) (*transaction.Transaction, error) {
	if ref == "" || transaction.IsSentinelReference(ref) {
		return nil, transaction.ErrNotFound
	}
	return r.findOne(ctx,
		selectTransaction+` WHERE provider_reference_id = ? AND reference_is_sentinel = 0`, ref)
}

func (r *TransactionRepository) FindAll(ctx context.Context) ([]*transaction.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, selectTransaction+` ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*transaction.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}

	return out, rows.Err()
}

func (r *TransactionRepository) Update(ctx context.Context, tx *transaction.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET status = ?,
		     provider_reference_id = ?,
		     reference_is_sentinel = ?,
		     updated_at = ?,
		     last_modified_by = ?,
		     version = version + 1
		 WHERE id = ? AND version = ?`,
		string(tx.Status),
		nullableReference(tx.ProviderReferenceID),
		sentinelFlag(tx.ProviderReferenceID),
		formatTime(tx.UpdatedAt),
		tx.LastModifiedBy,
		tx.ID,
		tx.Version,
	)
	if err != nil {
		return translateError(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM transactions WHERE id = ?`, tx.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return transaction.ErrNotFound
		}
		if err != nil {
			return err
		}
		return transaction.ErrConcurrentModification
	}

	tx.Version++
	return nil
}

func (r *TransactionRepository) findOne(ctx context.Context, query string, arg any) (*transaction.Transaction, error) {
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}
		return nil, err
	}
	return tx, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*transaction.Transaction, error) {
	var (
		tx                     transaction.Transaction
		amount, method, status string
		providerRef            sql.NullString
		createdAt, updatedAt   string
	)

	if err := row.Scan(
		&tx.ID,
		&amount,
		&tx.Currency,
		&method,
		&status,
		&tx.IdempotencyKey,
		&providerRef,
		&tx.TransactionReference,
		&tx.Provider,
		&tx.CreatedBy,
		&tx.LastModifiedBy,
		&createdAt,
		&updatedAt,
		&tx.Version,
	); err != nil {
		return nil, err
	}

	var err error
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("transaction %s: amount %q: %w", tx.ID, amount, err)
	}
	if tx.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("transaction %s: created_at: %w", tx.ID, err)
	}
	if tx.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("transaction %s: updated_at: %w", tx.ID, err)
	}

	tx.PaymentMethod = payment.Method(method)
	tx.Status = transaction.Status(status)
	tx.ProviderReferenceID = providerRef.String
	return &tx, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableReference(ref string) sql.NullString {
	return sql.NullString{String: ref, Valid: ref != ""}
}

func sentinelFlag(ref string) int {
	if transaction.IsSentinelReference(ref) {
		return 1
	}
	return 0
}

// translateError maps SQLite constraint failures, worded identically by both
// the cgo and the pure Go driver, onto domain errors.
func translateError(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return err
	}
	switch {
	case strings.Contains(msg, "transactions.idempotency_key"):
		return fmt.Errorf("%w: %v", transaction.ErrDuplicateIdempotencyKey, err)
	case strings.Contains(msg, "transactions.provider_reference_id"):
		return fmt.Errorf("%w: %v", transaction.ErrDuplicateProviderReference, err)
	case strings.Contains(msg, "transactions.transaction_reference"):
		return fmt.Errorf("%w: %v", transaction.ErrDuplicateTransactionReference, err)
	}
	return err
}
