package transaction

import (
	"strings"

	"github.com/google/uuid"
)

// Sentinel provider reference ids recorded when no provider charge exists.
const (
	ReferenceInvalidCardDetails  = "INVALID_CARD_DETAILS"
	ReferenceInvalidBankDetails  = "INVALID_BANK_DETAILS"
	ReferenceProviderTimeout     = "PROVIDER_TIMEOUT"
	ReferenceProviderErrorPrefix = "PROVIDER_ERROR:"
)

func ProviderErrorReference(code string) string {
	if strings.TrimSpace(code) == "" {
		code = "UNKNOWN"
	}
	return ReferenceProviderErrorPrefix + code
}

func IsSentinelReference(ref string) bool {
	switch ref {
	case ReferenceInvalidCardDetails, ReferenceInvalidBankDetails, ReferenceProviderTimeout:
		return true
	}
	return strings.HasPrefix(ref, ReferenceProviderErrorPrefix)
}

// NewReference returns a human-facing reference such as TXN-1A2B3C4D.
func NewReference() string {
	return "TXN-" + strings.ToUpper(uuid.NewString()[:8])
}
