package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	domain "github.com/pivend/vend/internal/domain/telemetry"
)

// TelemetryRepository is the durable append-only telemetry log.
type TelemetryRepository struct {
	db *sql.DB
}

func (r *TelemetryRepository) Append(ctx context.Context, reading *domain.Reading) error {
	if reading == nil {
		return nil
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO telemetry (id, temperature_c, humidity, door_open, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		reading.ID, reading.TemperatureC, reading.Humidity,
		boolToInt(reading.DoorOpen), formatTime(reading.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("telemetry store: insert: %w", err)
	}
	return nil
}

func (r *TelemetryRepository) Latest(ctx context.Context, limit int) ([]*domain.Reading, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, temperature_c, humidity, door_open, created_at
		 FROM telemetry ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("telemetry store: latest: %w", err)
	}
	defer rows.Close()

	var newestFirst []*domain.Reading
	for rows.Next() {
		var (
			reading   domain.Reading
			doorOpen  int
			createdAt string
		)
		if err := rows.Scan(&reading.ID, &reading.TemperatureC, &reading.Humidity, &doorOpen, &createdAt); err != nil {
			return nil, fmt.Errorf("telemetry store: scan: %w", err)
		}
		reading.DoorOpen = doorOpen != 0
		reading.CreatedAt = parseTime(createdAt)
		newestFirst = append(newestFirst, &reading)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Chronological order for callers.
	out := make([]*domain.Reading, len(newestFirst))
	for i, reading := range newestFirst {
		out[len(newestFirst)-1-i] = reading
	}
	return out, nil
}
