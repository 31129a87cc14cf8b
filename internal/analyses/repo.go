package analyses

import (
	"context"
	"fmt"
)

// Repo defines persistence operations for analyses. Implementations do not check
// ownership; the Service does.
type Repo interface {
	// Create assigns id and createdAt and returns the stored record.
	Create(ctx context.Context, analysis Analysis) (Analysis, error)
	GetByID(ctx context.Context, id int64) (Analysis, error)
	// ListByOwner returns newest first; ties are broken by id descending.
	ListByOwner(ctx context.Context, ownerID string) ([]Analysis, error)
	LatestByOwner(ctx context.Context, ownerID string) (Analysis, error)
	// Delete is idempotent.
	Delete(ctx context.Context, id int64) error
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
