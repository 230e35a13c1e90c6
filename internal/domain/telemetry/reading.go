package telemetry

import (
	"context"
	"time"
)

// Reading is an immutable environmental sample. Independent of the vending
// transaction core.
type Reading struct {
	ID           string
	TemperatureC float64
	Humidity     float64
	DoorOpen     bool
	CreatedAt    time.Time
}

func (r *Reading) Clone() *Reading {
	clone := *r
	return &clone
}

// Repository is append-only. Latest returns up to limit readings in
// chronological order.
type Repository interface {
	Append(ctx context.Context, reading *Reading) error
	Latest(ctx context.Context, limit int) ([]*Reading, error)
}
