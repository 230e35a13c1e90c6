package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/pivend/vend/internal/domain/device"
)

// DeviceRepository holds the device state singleton.
type DeviceRepository struct {
	mu    sync.RWMutex
	state *domain.State
}

func NewDeviceRepository() *DeviceRepository {
	return &DeviceRepository{}
}

func (r *DeviceRepository) Get(ctx context.Context) (*domain.State, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == nil {
		r.state = &domain.State{DoorLocked: true, UpdatedAt: time.Now().UTC()}
	}
	return r.state.Clone(), nil
}

func (r *DeviceRepository) Save(ctx context.Context, state *domain.State) error {
	_ = ctx
	if state == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.state = state.Clone()
	return nil
}
