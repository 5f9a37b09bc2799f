package payment

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownDetailsType = errors.New("unknown payment details type")

// CardDetails carries a provider payment method token, never a raw card number.
type CardDetails struct {
	PaymentMethodID string `json:"paymentMethodId"`
	CardHolder      string `json:"cardHolder,omitempty"`
	ExpiryMonth     string `json:"expiryMonth,omitempty"`
	ExpiryYear      string `json:"expiryYear,omitempty"`
}

type BankTransferDetails struct {
	IBAN          string `json:"iban"`
	AccountHolder string `json:"accountHolder"`
	Email         string `json:"email"`
	BankName      string `json:"bankName,omitempty"`
}

// Details is a tagged union over the per-method detail shapes. Type names the
// variant; exactly one of Card or BankTransfer is set for a well-formed value.
type Details struct {
	Type         Method
	Card         *CardDetails
	BankTransfer *BankTransferDetails
}

func NewCardDetails(card CardDetails) Details {
	return Details{Type: MethodCreditCard, Card: &card}
}

func NewBankTransferDetails(bank BankTransferDetails) Details {
	return Details{Type: MethodBankTransfer, BankTransfer: &bank}
}

func (d Details) AsCard() (CardDetails, bool) {
	if d.Type != MethodCreditCard || d.Card == nil {
		return CardDetails{}, false
	}
	return *d.Card, true
}

func (d Details) AsBankTransfer() (BankTransferDetails, bool) {
	if d.Type != MethodBankTransfer || d.BankTransfer == nil {
		return BankTransferDetails{}, false
	}
	return *d.BankTransfer, true
}

type cardJSON struct {
	Type Method `json:"type"`
	CardDetails
}

type bankTransferJSON struct {
	Type Method `json:"type"`
	BankTransferDetails
}

func (d Details) MarshalJSON() ([]byte, error) {
	switch {
	case d.Card != nil && d.Type == MethodCreditCard:
		return json.Marshal(cardJSON{Type: d.Type, CardDetails: *d.Card})
	case d.BankTransfer != nil && d.Type == MethodBankTransfer:
		return json.Marshal(bankTransferJSON{Type: d.Type, BankTransferDetails: *d.BankTransfer})
	}
	return json.Marshal(map[string]any{"type": d.Type})
}

func (d *Details) UnmarshalJSON(data []byte) error {
	var head struct {
		Type Method `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	switch head.Type {
	case MethodCreditCard:
		var v cardJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*d = NewCardDetails(v.CardDetails)
	case MethodBankTransfer:
		var v bankTransferJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*d = NewBankTransferDetails(v.BankTransferDetails)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDetailsType, head.Type)
	}

	return nil
}
