package transaction

import "context"

// Repository is the durable transaction store. Implementations must enforce
// uniqueness of IdempotencyKey and of non-sentinel ProviderReferenceID.
type Repository interface {
	// Create fails with ErrDuplicateIdempotencyKey when the key is taken.
	Create(ctx context.Context, tx *Transaction) error
	FindByID(ctx context.Context, id string) (*Transaction, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*Transaction, error)
	FindByProviderReferenceID(ctx context.Context, ref string) (*Transaction, error)
	FindAll(ctx context.Context) ([]*Transaction, error)
	// Update writes the mutable fields of tx if the stored version equals
	// tx.Version, then bumps the version. ErrConcurrentModification otherwise.
	Update(ctx context.Context, tx *Transaction) error
}
