package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/pivend/vend/internal/domain/sale"
)

// SaleRepository is the durable append-only sale ledger.
type SaleRepository struct {
	db *sql.DB
}

func (r *SaleRepository) Record(ctx context.Context, s *domain.Sale) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("sale store: id is required")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sales (id, product_id, quantity, total_price, payment_method, status, failure_reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ProductID, s.Quantity, s.TotalPrice.String(),
		s.PaymentMethod, string(s.Status), s.FailureReason, formatTime(s.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sale store: insert: %w", err)
	}
	return nil
}

func (r *SaleRepository) Get(ctx context.Context, id string) (*domain.Sale, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, product_id, quantity, total_price, payment_method, status, failure_reason, created_at
		 FROM sales WHERE id = ?`, id)

	s, err := scanSale(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return s, err
}

func (r *SaleRepository) ListSince(ctx context.Context, since time.Time) ([]*domain.Sale, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, product_id, quantity, total_price, payment_method, status, failure_reason, created_at
		 FROM sales WHERE created_at >= ? ORDER BY created_at, id`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("sale store: list: %w", err)
	}
	defer rows.Close()

	var out []*domain.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSale(row rowScanner) (*domain.Sale, error) {
	var (
		s         domain.Sale
		total     string
		status    string
		createdAt string
	)
	if err := row.Scan(&s.ID, &s.ProductID, &s.Quantity, &total, &s.PaymentMethod, &status, &s.FailureReason, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("sale store: scan: %w", err)
	}

	parsed, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("sale store: parse total %q: %w", total, err)
	}
	s.TotalPrice = parsed
	s.Status = domain.Status(status)
	s.CreatedAt = parseTime(createdAt)
	return &s, nil
}
