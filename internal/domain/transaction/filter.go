package transaction

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

// Filter selects transactions; unset fields match everything.
type Filter struct {
	Status    *Status
	StartDate *time.Time
	EndDate   *time.Time
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
}

// ParseDate reads a yyyy-MM-dd calendar day as midnight UTC. An empty string
// yields nil.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (f Filter) Matches(tx *Transaction) bool {
	if f.Status != nil && tx.Status != *f.Status {
		return false
	}

	created := tx.CreatedAt.UTC()

	if f.StartDate != nil && created.Before(startOfDay(*f.StartDate)) {
		return false
	}

	// end date is a whole calendar day: exclusive bound at the next midnight
	if f.EndDate != nil && !created.Before(startOfDay(*f.EndDate).AddDate(0, 0, 1)) {
		return false
	}

	if f.MinAmount != nil && tx.Amount.LessThan(*f.MinAmount) {
		return false
	}

	if f.MaxAmount != nil && tx.Amount.GreaterThan(*f.MaxAmount) {
		return false
	}

	return true
}

func (f Filter) Apply(txs []*Transaction) []*Transaction {
	out := make([]*Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.Matches(tx) {
			out = append(out, tx)
		}
	}
	return out
}
