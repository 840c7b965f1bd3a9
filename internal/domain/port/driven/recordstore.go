package driven

import (
	"context"

	"passvault/internal/domain/model"
)

// RecordStore defines the driven port for password record persistence.
// Both the local SQLite adapter and the remote sync client satisfy it, so
// the application layer can treat them interchangeably.
//
// FindAll and Search return records sorted by UpdatedAt descending, ties
// broken by insertion order. FindByID returns (nil, nil) for a missing ID.
// Delete is idempotent: deleting an absent ID is not an error.
type RecordStore interface {
	FindAll(ctx context.Context) ([]model.PasswordRecord, error)
	FindByID(ctx context.Context, id string) (*model.PasswordRecord, error)
	Search(ctx context.Context, query string) ([]model.PasswordRecord, error)
	Create(ctx context.Context, input model.RecordInput) (*model.PasswordRecord, error)
	Update(ctx context.Context, id string, patch model.RecordPatch) (*model.PasswordRecord, error)
	Delete(ctx context.Context, id string) error

	// Clear wipes every record. Intended for tests and explicit resets;
	// callers are expected to gate it behind a confirmation.
	Clear(ctx context.Context) error

	Stats(ctx context.Context) (model.Stats, error)

	// Batch variants execute within a single transaction where the backend
	// supports one: either every payload is applied or none are. Results
	// come back in input order.
	BatchCreate(ctx context.Context, inputs []model.RecordInput) ([]model.PasswordRecord, error)
	BatchUpdate(ctx context.Context, patches []model.PatchByID) ([]model.PasswordRecord, error)
}
