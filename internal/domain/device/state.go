package device

import (
	"context"
	"time"
)

// State is the device singleton: one row describing the cabinet lock.
type State struct {
	DoorLocked bool
	UpdatedAt  time.Time
}

func (s *State) Clone() *State {
	clone := *s
	return &clone
}

// Repository owns the singleton. Get creates a locked default state when none
// exists yet.
type Repository interface {
	Get(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
}
