// Package promo manages admin-created promo codes and resolves shopper input
// against the active ones.
package promo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("promo code not found")
	ErrDiscountRange = errors.New("discount percent must be between 0 and 90")
)

type PromoCode struct {
	ID              string    `json:"id"`
	Code            string    `json:"code"`
	DiscountPercent int       `json:"discount_percent"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

// Resolved is a promo code as applied to a checkout.
type Resolved struct {
	Code            string `json:"code"`
	DiscountPercent int    `json:"discount_percent"`
}

type NewPromoCode struct {
	Code            string `json:"code" validate:"required"`
	DiscountPercent int    `json:"discount_percent"`
	Active          bool   `json:"active"`
}

// ResolveIn matches shopper input against a collection of active codes,
// case-insensitively, and returns the first match. Inactive codes never
// resolve.
func ResolveIn(codes []PromoCode, input string) (Resolved, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Resolved{}, ErrNotFound
	}
	for _, pc := range codes {
		if pc.Active && strings.EqualFold(pc.Code, input) {
			return Resolved{Code: pc.Code, DiscountPercent: pc.DiscountPercent}, nil
		}
	}
	return Resolved{}, ErrNotFound
}

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

// Resolve looks up shopper input among the active codes.
func (c *Conf) Resolve(ctx context.Context, input string) (Resolved, error) {
	codes, err := c.listActive(ctx)
	if err != nil {
		return Resolved{}, err
	}
	return ResolveIn(codes, input)
}

func (c *Conf) listActive(ctx context.Context) ([]PromoCode, error) {
	query := `
		SELECT id, code, discount_percent, active, created_at
		FROM promo_codes
		WHERE active = TRUE
		ORDER BY created_at
	`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active promo codes: %w", err)
	}
	defer rows.Close()
	return scanPromoCodes(rows)
}

func (c *Conf) ListPromoCodes(ctx context.Context) ([]PromoCode, error) {
	query := `
		SELECT id, code, discount_percent, active, created_at
		FROM promo_codes
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query promo codes: %w", err)
	}
	defer rows.Close()
	return scanPromoCodes(rows)
}

func (c *Conf) InsertPromoCode(ctx context.Context, np NewPromoCode) (PromoCode, error) {
	if np.DiscountPercent < 0 || np.DiscountPercent > 90 {
		return PromoCode{}, ErrDiscountRange
	}
	pc := PromoCode{
		ID:              uuid.NewString(),
		Code:            strings.TrimSpace(np.Code),
		DiscountPercent: np.DiscountPercent,
		Active:          np.Active,
	}
	query := `
		INSERT INTO promo_codes (id, code, discount_percent, active, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`
	err := c.db.QueryRowContext(ctx, query, pc.ID, pc.Code, pc.DiscountPercent, pc.Active).
		Scan(&pc.CreatedAt)
	if err != nil {
		return PromoCode{}, fmt.Errorf("failed to insert promo code: %w", err)
	}
	return pc, nil
}

func (c *Conf) UpdatePromoCode(ctx context.Context, id string, np NewPromoCode) (PromoCode, error) {
	if np.DiscountPercent < 0 || np.DiscountPercent > 90 {
		return PromoCode{}, ErrDiscountRange
	}
	pc := PromoCode{
		ID:              id,
		Code:            strings.TrimSpace(np.Code),
		DiscountPercent: np.DiscountPercent,
		Active:          np.Active,
	}
	query := `
		UPDATE promo_codes
		SET code = $1, discount_percent = $2, active = $3
		WHERE id = $4
		RETURNING created_at
	`
	err := c.db.QueryRowContext(ctx, query, pc.Code, pc.DiscountPercent, pc.Active, id).
		Scan(&pc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PromoCode{}, ErrNotFound
		}
		return PromoCode{}, fmt.Errorf("failed to update promo code: %w", err)
	}
	return pc, nil
}

func (c *Conf) DeletePromoCode(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM promo_codes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete promo code: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPromoCodes(rows *sql.Rows) ([]PromoCode, error) {
	var codes []PromoCode
	for rows.Next() {
		var pc PromoCode
		if err := rows.Scan(&pc.ID, &pc.Code, &pc.DiscountPercent, &pc.Active, &pc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan promo code: %w", err)
		}
		codes = append(codes, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating promo codes: %w", err)
	}
	return codes, nil
}
