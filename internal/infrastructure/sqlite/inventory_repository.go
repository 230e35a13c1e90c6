package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	domain "github.com/pivend/vend/internal/domain/inventory"
)

// InventoryRepository persists products and stock-change events. A product
// mutation and its event share one sql transaction.
type InventoryRepository struct {
	db *sql.DB
}

func (r *InventoryRepository) Create(ctx context.Context, product *domain.Product, event *domain.StockChangeEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("inventory store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM products WHERE slot_code = ?`, product.SlotCode).Scan(&exists)
	if err != nil {
		return fmt.Errorf("inventory store: slot check: %w", err)
	}
	if exists > 0 {
		return domain.ErrSlotTaken
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO products (id, name, slot_code, price, quantity, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID, product.Name, product.SlotCode, product.Price.String(),
		product.Quantity, boolToInt(product.Active),
		formatTime(product.CreatedAt), formatTime(product.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inventory store: insert product: %w", err)
	}

	if event != nil {
		if err := insertEvent(ctx, tx, event); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("inventory store: commit: %w", err)
	}
	return nil
}

func (r *InventoryRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	return scanProduct(r.db.QueryRowContext(ctx,
		`SELECT id, name, slot_code, price, quantity, active, created_at, updated_at
		 FROM products WHERE id = ?`, id))
}

func (r *InventoryRepository) GetBySlot(ctx context.Context, slotCode string) (*domain.Product, error) {
	return scanProduct(r.db.QueryRowContext(ctx,
		`SELECT id, name, slot_code, price, quantity, active, created_at, updated_at
		 FROM products WHERE slot_code = ?`, domain.NormalizeSlot(slotCode)))
}

func (r *InventoryRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Product, error) {
	query := `SELECT id, name, slot_code, price, quantity, active, created_at, updated_at
		 FROM products`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY slot_code`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("inventory store: list: %w", err)
	}
	defer rows.Close()

	var out []*domain.Product
	for rows.Next() {
		product, err := scanProductRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, product)
	}
	return out, rows.Err()
}

func (r *InventoryRepository) Update(ctx context.Context, product *domain.Product, event *domain.StockChangeEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("inventory store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE products SET name = ?, slot_code = ?, price = ?, quantity = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		product.Name, product.SlotCode, product.Price.String(), product.Quantity,
		boolToInt(product.Active), formatTime(product.UpdatedAt), product.ID,
	)
	if err != nil {
		return fmt.Errorf("inventory store: update product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inventory store: rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	if event != nil {
		if err := insertEvent(ctx, tx, event); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("inventory store: commit: %w", err)
	}
	return nil
}

func (r *InventoryRepository) Events(ctx context.Context, productID string) ([]*domain.StockChangeEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, product_id, delta, reason, occurred_at
		 FROM inventory_events WHERE product_id = ? ORDER BY occurred_at, id`, productID)
	if err != nil {
		return nil, fmt.Errorf("inventory store: events: %w", err)
	}
	defer rows.Close()

	var out []*domain.StockChangeEvent
	for rows.Next() {
		var (
			e          domain.StockChangeEvent
			occurredAt string
		)
		if err := rows.Scan(&e.ID, &e.ProductID, &e.Delta, &e.Reason, &occurredAt); err != nil {
			return nil, fmt.Errorf("inventory store: scan event: %w", err)
		}
		e.OccurredAt = parseTime(occurredAt)
		out = append(out, &e)
	}
	return out, rows.Err()
}

func insertEvent(ctx context.Context, tx *sql.Tx, event *domain.StockChangeEvent) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO inventory_events (id, product_id, delta, reason, occurred_at)
		 VALUES (?, ?, ?, ?, ?)`,
		event.ID, event.ProductID, event.Delta, event.Reason, formatTime(event.OccurredAt),
	)
	if err != nil {
		return fmt.Errorf("inventory store: insert event: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row *sql.Row) (*domain.Product, error) {
	product, err := scanProductRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return product, err
}

func scanProductRow(row rowScanner) (*domain.Product, error) {
	var (
		p         domain.Product
		price     string
		active    int
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.SlotCode, &price, &p.Quantity, &active, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("inventory store: scan product: %w", err)
	}

	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("inventory store: parse price %q: %w", price, err)
	}
	p.Price = parsed
	p.Active = active != 0
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}
