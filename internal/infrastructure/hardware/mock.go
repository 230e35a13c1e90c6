package hardware

import (
	"context"
	"math/rand"
	"sync"
	"time"

	domain "github.com/pivend/vend/internal/domain/hardware"
	"github.com/pivend/vend/internal/observability"
)

const componentMockDriver = "mock_hardware"

// MockDriver simulates the vending machine peripherals for development and
// tests. It is injected at construction time; there is no shared process-wide
// instance.
type MockDriver struct {
	mu            sync.Mutex
	random        *rand.Rand
	dispenseDelay time.Duration
	doorLocked    bool
	failReason    string
	log           observability.Logger
}

func NewMockDriver(logger observability.Logger) *MockDriver {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &MockDriver{
		random:        rand.New(rand.NewSource(time.Now().UnixNano())),
		dispenseDelay: 100 * time.Millisecond,
		doorLocked:    true,
		log:           logger.With(observability.F("component", componentMockDriver)),
	}
}

// FailDispense makes every subsequent Dispense fail with the given reason.
// An empty reason restores normal operation. Test hook.
func (d *MockDriver) FailDispense(reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failReason = reason
}

// SetDispenseDelay overrides the simulated actuation time. Test hook.
func (d *MockDriver) SetDispenseDelay(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dispenseDelay = delay
}

func (d *MockDriver) Dispense(ctx context.Context, slotCode string, quantity int) error {
	if quantity <= 0 {
		return domain.Errorf("quantity must be positive")
	}

	d.mu.Lock()
	failReason := d.failReason
	delay := d.dispenseDelay
	d.mu.Unlock()

	if failReason != "" {
		return &domain.Error{Reason: failReason}
	}

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return ctx.Err()
	}

	d.log.Info("dispensed",
		observability.F("slot_code", slotCode),
		observability.F("quantity", quantity),
	)
	return nil
}

func (d *MockDriver) ReadTemperature(ctx context.Context) (float64, error) {
	_ = ctx
	d.mu.Lock()
	defer d.mu.Unlock()
	return round2(3.5 + d.random.Float64()*3.0), nil
}

func (d *MockDriver) ReadHumidity(ctx context.Context) (float64, error) {
	_ = ctx
	d.mu.Lock()
	defer d.mu.Unlock()
	return round2(25 + d.random.Float64()*35), nil
}

func (d *MockDriver) IsDoorOpen(ctx context.Context) (bool, error) {
	_ = ctx
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.doorLocked && d.random.Float64() < 0.1, nil
}

func (d *MockDriver) SetDoorLock(ctx context.Context, locked bool) error {
	_ = ctx
	d.mu.Lock()
	defer d.mu.Unlock()
	d.doorLocked = locked
	d.log.Info("door_lock_changed", observability.F("locked", locked))
	return nil
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
