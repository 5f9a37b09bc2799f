package provider_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/provider"
)

func TestMinorUnitDigits_ShouldDependOnCurrency(t *testing.T) {
	require.Equal(t, int32(2), provider.MinorUnitDigits("usd"))
	require.Equal(t, int32(2), provider.MinorUnitDigits("EUR"))
	require.Equal(t, int32(0), provider.MinorUnitDigits("JPY"))
	require.Equal(t, int32(0), provider.MinorUnitDigits(" krw "))
}

func TestToMinorUnits_ShouldShiftByCurrencyExponent(t *testing.T) {
	cases := []struct {
		amount   string
		currency string
		want     int64
	}{
		{"100.00", "usd", 10000},
		{"10.5", "eur", 1050},
		{"0.01", "usd", 1},
		{"1500", "jpy", 1500},
	}

	for _, c := range cases {
		got := provider.ToMinorUnits(decimal.RequireFromString(c.amount), c.currency)
		require.Equal(t, c.want, got, "%s %s", c.amount, c.currency)
	}
}
