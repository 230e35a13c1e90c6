package device

import (
	"context"
	"fmt"
	"time"

	domdevice "github.com/pivend/vend/internal/domain/device"
	domhardware "github.com/pivend/vend/internal/domain/hardware"
	"github.com/pivend/vend/internal/observability"
	"github.com/pivend/vend/internal/observability/logctx"
)

const componentDeviceService = "device_service"

// Service drives the cabinet lock. The hardware relay is actuated first, then
// the state singleton is persisted; the purchase path never touches it.
type Service struct {
	repo   domdevice.Repository
	driver domhardware.Driver
	log    observability.Logger
}

func NewService(repo domdevice.Repository, driver domhardware.Driver, logger observability.Logger) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		repo:   repo,
		driver: driver,
		log:    logger.With(observability.F("component", componentDeviceService)),
	}
}

func (s *Service) SetLock(ctx context.Context, locked bool) (*domdevice.State, error) {
	if err := s.driver.SetDoorLock(ctx, locked); err != nil {
		return nil, fmt.Errorf("device: set door lock: %w", err)
	}

	state, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("device: load state: %w", err)
	}
	state.DoorLocked = locked
	state.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("device: save state: %w", err)
	}

	logctx.FromOr(ctx, s.log).Info("door_lock_set",
		observability.F("locked", locked),
	)
	return state, nil
}

func (s *Service) State(ctx context.Context) (*domdevice.State, error) {
	return s.repo.Get(ctx)
}
