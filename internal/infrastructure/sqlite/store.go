package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// timeFormat keeps the fractional second fixed-width so the TEXT columns sort
// lexicographically in chronological order. RFC3339Nano trims trailing zeros
// and would order "10:00:00.55Z" before "10:00:00.5Z".
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

const (
	maxOpenConns = 1 // sqlite handles one writer; a single conn avoids SQLITE_BUSY
	maxIdleConns = 1
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	slot_code  TEXT NOT NULL UNIQUE,
	price      TEXT NOT NULL,
	quantity   INTEGER NOT NULL,
	active     INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS inventory_events (
	id          TEXT PRIMARY KEY,
	product_id  TEXT NOT NULL REFERENCES products(id),
	delta       INTEGER NOT NULL,
	reason      TEXT NOT NULL,
	occurred_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_inventory_events_product ON inventory_events(product_id);
CREATE TABLE IF NOT EXISTS sales (
	id             TEXT PRIMARY KEY,
	product_id     TEXT NOT NULL,
	quantity       INTEGER NOT NULL,
	total_price    TEXT NOT NULL,
	payment_method TEXT NOT NULL,
	status         TEXT NOT NULL,
	failure_reason TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sales_created_at ON sales(created_at);
CREATE TABLE IF NOT EXISTS telemetry (
	id            TEXT PRIMARY KEY,
	temperature_c REAL NOT NULL,
	humidity      REAL NOT NULL,
	door_open     INTEGER NOT NULL,
	created_at    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS device_state (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	door_locked INTEGER NOT NULL,
	updated_at  TEXT NOT NULL
);
`

// Store wraps the sqlite database shared by the repository implementations.
type Store struct {
	db *sql.DB
}

// Open creates the database file (and parent directory) if needed and applies
// the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Inventory() *InventoryRepository { return &InventoryRepository{db: s.db} }
func (s *Store) Sales() *SaleRepository         { return &SaleRepository{db: s.db} }
func (s *Store) Telemetry() *TelemetryRepository { return &TelemetryRepository{db: s.db} }
func (s *Store) Device() *DeviceRepository       { return &DeviceRepository{db: s.db} }

func formatTime(t time.Time) string { return t.UTC().Format(timeFormat) }

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
