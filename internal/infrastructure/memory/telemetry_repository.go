package memory

import (
	"context"
	"sync"

	domain "github.com/pivend/vend/internal/domain/telemetry"
)

// TelemetryRepository is an append-only in-memory telemetry log.
type TelemetryRepository struct {
	mu       sync.RWMutex
	readings []*domain.Reading
}

func NewTelemetryRepository() *TelemetryRepository {
	return &TelemetryRepository{}
}

func (r *TelemetryRepository) Append(ctx context.Context, reading *domain.Reading) error {
	_ = ctx
	if reading == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.readings = append(r.readings, reading.Clone())
	return nil
}

func (r *TelemetryRepository) Latest(ctx context.Context, limit int) ([]*domain.Reading, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.readings) {
		limit = len(r.readings)
	}

	// Last N readings, oldest first.
	start := len(r.readings) - limit
	out := make([]*domain.Reading, 0, limit)
	for _, reading := range r.readings[start:] {
		out = append(out, reading.Clone())
	}
	return out, nil
}
