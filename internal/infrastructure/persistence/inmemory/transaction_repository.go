package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/transaction"
)

type TransactionRepository struct {
	mu              sync.RWMutex
	transactions    map[string]*transaction.Transaction
	idempotencyKeys map[string]string
	references      map[string]string
	providerRefs    map[string]string
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		transactions:    make(map[string]*transaction.Transaction),
		idempotencyKeys: make(map[string]string),
		references:      make(map[string]string),
		providerRefs:    make(map[string]string),
	}
}

func (r *TransactionRepository) Create(_ context.Context, tx *transaction.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.idempotencyKeys[tx.IdempotencyKey]; exists {
		return transaction.ErrDuplicateIdempotencyKey
	}
	if _, exists := r.transactions[tx.ID]; exists {
		return fmt.Errorf("transaction %s already exists", tx.ID)
	}
	if _, exists := r.references[tx.TransactionReference]; exists {
		return transaction.ErrDuplicateTransactionReference
	}
	if tx.HasProviderReference() {
		if _, exists := r.providerRefs[tx.ProviderReferenceID]; exists {
			return transaction.ErrDuplicateProviderReference
		}
		r.providerRefs[tx.ProviderReferenceID] = tx.ID
	}

	r.transactions[tx.ID] = tx.Clone()
	r.idempotencyKeys[tx.IdempotencyKey] = tx.ID
	r.references[tx.TransactionReference] = tx.ID
	return nil
}

func (r *TransactionRepository) FindByID(_ context.Context, id string) (*transaction.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, ok := r.transactions[id]
	if !ok {
		return nil, transaction.ErrNotFound
	}
	return tx.Clone(), nil
}

func (r *TransactionRepository) FindByIdempotencyKey(ctx context.Context, key string) (*transaction.Transaction, error) {
	r.mu.RLock()
	id, ok := r.idempotencyKeys[key]
	r.mu.RUnlock()

	if !ok {
		return nil, transaction.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *TransactionRepository) FindByProviderReferenceID(ctx context.Context, ref string) (*transaction.Transaction, error) {
	if ref == "" || transaction.IsSentinelReference(ref) {
		return nil, transaction.ErrNotFound
	}

	r.mu.RLock()
	id, ok := r.providerRefs[ref]
	r.mu.RUnlock()

	if !ok {
		return nil, transaction.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// FindAll returns transactions ordered by creation time.
func (r *TransactionRepository) FindAll(_ context.Context) ([]*transaction.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*transaction.Transaction, 0, len(r.transactions))
	for _, tx := range r.transactions {
		out = append(out, tx.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *TransactionRepository) Update(_ context.Context, tx *transaction.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.transactions[tx.ID]
	if !ok {
		return transaction.ErrNotFound
	}
	if current.Version != tx.Version {
		return transaction.ErrConcurrentModification
	}

	if tx.ProviderReferenceID != current.ProviderReferenceID && tx.HasProviderReference() {
		if owner, exists := r.providerRefs[tx.ProviderReferenceID]; exists && owner != tx.ID {
			return transaction.ErrDuplicateProviderReference
		}
	}
	if current.HasProviderReference() && current.ProviderReferenceID != tx.ProviderReferenceID {
		delete(r.providerRefs, current.ProviderReferenceID)
	}
	if tx.HasProviderReference() {
		r.providerRefs[tx.ProviderReferenceID] = tx.ID
	}

	// only the mutable fields move
	next := current.Clone()
	next.Status = tx.Status
	next.ProviderReferenceID = tx.ProviderReferenceID
	next.UpdatedAt = tx.UpdatedAt
	next.LastModifiedBy = tx.LastModifiedBy
	next.Version = current.Version + 1

	r.transactions[tx.ID] = next
	tx.Version = next.Version
	return nil
}

func (r *TransactionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.transactions)
}
