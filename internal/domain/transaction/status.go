package transaction

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusCompleted, StatusFailed:
		return st, true
	}
	return "", false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Provider-reported statuses that leave a charge in flight.
const (
	ProviderStatusSucceeded            = "succeeded"
	ProviderStatusProcessing           = "processing"
	ProviderStatusRequiresAction       = "requires_action"
	ProviderStatusRequiresConfirmation = "requires_confirmation"
)

// MapProviderStatus folds a provider status string into the local state machine.
func MapProviderStatus(providerStatus string) Status {
	switch providerStatus {
	case ProviderStatusSucceeded:
		return StatusCompleted
	case ProviderStatusProcessing, ProviderStatusRequiresAction, ProviderStatusRequiresConfirmation:
		return StatusPending
	default:
		return StatusFailed
	}
}

var allowedTransitions = map[Status][]Status{
	StatusPending:   {StatusCompleted, StatusFailed},
	StatusCompleted: {},
	StatusFailed:    {},
}

func CanTransition(from, to Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionTo moves the transaction to next. Re-entering the current state is a
// no-op reported as changed == false. Terminal states are sticky.
func (t *Transaction) TransitionTo(next Status) (changed bool, err error) {
	if t.Status == next {
		return false, nil
	}
	if !CanTransition(t.Status, next) {
		return false, &TransitionError{From: t.Status, To: next}
	}
	t.Status = next
	return true, nil
}
