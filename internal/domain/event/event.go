package event

type Type string

const (
	TransactionCreated   Type = "TRANSACTION_CREATED"
	TransactionCompleted Type = "TRANSACTION_COMPLETED"
	TransactionFailed    Type = "TRANSACTION_FAILED"
)

type Event struct {
	Type    Type
	Payload any
}
