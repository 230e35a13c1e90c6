package hardware

import (
	"context"
	"fmt"
)

// Error reports an actuator or sensor failure. Its reason ends up verbatim in
// the failed sale record, so keep it human-readable.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return e.Reason }

func Errorf(format string, args ...any) *Error {
	return &Error{Reason: fmt.Sprintf(format, args...)}
}

// Driver abstracts the vending machine peripherals. Implementations may block
// for real-world actuation time; callers must not hold inventory locks across
// Dispense.
type Driver interface {
	Dispense(ctx context.Context, slotCode string, quantity int) error
	ReadTemperature(ctx context.Context) (float64, error)
	ReadHumidity(ctx context.Context) (float64, error)
	IsDoorOpen(ctx context.Context) (bool, error)
	SetDoorLock(ctx context.Context, locked bool) error
}
