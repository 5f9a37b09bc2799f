package event

type TransactionCreatedPayload struct {
	TransactionID        string `json:"transaction_id"`
	TransactionReference string `json:"transaction_reference"`
	PaymentMethod        string `json:"payment_method"`
	Actor                string `json:"actor"`
}

type TransactionStatusPayload struct {
	TransactionID       string `json:"transaction_id"`
	Status              string `json:"status"`
	ProviderReferenceID string `json:"provider_reference_id,omitempty"`
	Actor               string `json:"actor"`
}
