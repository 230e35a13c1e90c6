package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/pivend/vend/internal/domain/device"
)

// DeviceRepository persists the single device state row.
type DeviceRepository struct {
	db *sql.DB
}

func (r *DeviceRepository) Get(ctx context.Context) (*domain.State, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT door_locked, updated_at FROM device_state WHERE id = 1`)

	var (
		locked    int
		updatedAt string
	)
	err := row.Scan(&locked, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		state := &domain.State{DoorLocked: true, UpdatedAt: time.Now().UTC()}
		if err := r.Save(ctx, state); err != nil {
			return nil, err
		}
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("device store: scan: %w", err)
	}

	return &domain.State{
		DoorLocked: locked != 0,
		UpdatedAt:  parseTime(updatedAt),
	}, nil
}

func (r *DeviceRepository) Save(ctx context.Context, state *domain.State) error {
	if state == nil {
		return nil
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO device_state (id, door_locked, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET door_locked = excluded.door_locked, updated_at = excluded.updated_at`,
		boolToInt(state.DoorLocked), formatTime(state.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("device store: save: %w", err)
	}
	return nil
}
