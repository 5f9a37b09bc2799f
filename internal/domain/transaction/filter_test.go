package transaction_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/transaction"
)

func txAt(amount string, created time.Time, status transaction.Status) *transaction.Transaction {
	return &transaction.Transaction{
		ID:        amount,
		Amount:    decimal.RequireFromString(amount),
		CreatedAt: created,
		Status:    status,
	}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestFilter_ShouldMatchInclusiveAmountRange(t *testing.T) {
	now := time.Now()
	txs := []*transaction.Transaction{
		txAt("100.00", now, transaction.StatusCompleted),
		txAt("500.00", now, transaction.StatusCompleted),
	}

	got := transaction.Filter{MinAmount: dec("50.00"), MaxAmount: dec("150.00")}.Apply(txs)
	require.Len(t, got, 1)
	require.Equal(t, "100.00", got[0].ID)

	got = transaction.Filter{MinAmount: dec("100"), MaxAmount: dec("500")}.Apply(txs)
	require.Len(t, got, 2)
}

func TestFilter_ShouldCoverWholeDay_WhenStartEqualsEnd(t *testing.T) {
	day, err := transaction.ParseDate("2024-05-10")
	require.NoError(t, err)

	f := transaction.Filter{StartDate: day, EndDate: day}

	require.True(t, f.Matches(txAt("1", time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), transaction.StatusPending)))
	require.True(t, f.Matches(txAt("1", time.Date(2024, 5, 10, 23, 59, 59, 999999000, time.UTC), transaction.StatusPending)))
	require.False(t, f.Matches(txAt("1", time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), transaction.StatusPending)))
	require.False(t, f.Matches(txAt("1", time.Date(2024, 5, 8, 12, 0, 0, 0, time.UTC), transaction.StatusPending)))
}

func TestFilter_ShouldCompareInUTC(t *testing.T) {
	day, err := transaction.ParseDate("2024-05-10")
	require.NoError(t, err)

	// 2024-05-11 01:00 in UTC+3 is still the 10th in UTC
	loc := time.FixedZone("UTC+3", 3*60*60)
	created := time.Date(2024, 5, 11, 1, 0, 0, 0, loc)

	require.True(t, transaction.Filter{StartDate: day, EndDate: day}.Matches(txAt("1", created, transaction.StatusPending)))
}

func TestFilter_ShouldMatchStatusExactly(t *testing.T) {
	completed := transaction.StatusCompleted
	f := transaction.Filter{Status: &completed}

	require.True(t, f.Matches(txAt("1", time.Now(), transaction.StatusCompleted)))
	require.False(t, f.Matches(txAt("1", time.Now(), transaction.StatusPending)))
}

func TestFilter_ShouldMatchEverything_WhenEmpty(t *testing.T) {
	require.True(t, transaction.Filter{}.Matches(txAt("1", time.Now(), transaction.StatusFailed)))
	require.NotNil(t, transaction.Filter{}.Apply(nil))
}

func TestParseDate(t *testing.T) {
	d, err := transaction.ParseDate("  ")
	require.NoError(t, err)
	require.Nil(t, d)

	_, err = transaction.ParseDate("10/05/2024")
	require.Error(t, err)

	d, err = transaction.ParseDate(" 2024-05-10 ")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), *d)
}
