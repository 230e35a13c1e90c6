package sale

import (
	"context"
	"time"
)

// Repository is an append-only ledger: no updates, no deletes.
type Repository interface {
	Record(ctx context.Context, s *Sale) error
	Get(ctx context.Context, id string) (*Sale, error)
	ListSince(ctx context.Context, since time.Time) ([]*Sale, error)
}
