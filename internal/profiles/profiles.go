// Package profiles stores the per-account company profile. A profile is
// created lazily on first save.
package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	ErrNotFound   = errors.New("profile not found")
	ErrInvalidPIB = errors.New("PIB must be 8-9 digits")
)

// PIB is the Serbian company tax id.
var pibPattern = regexp.MustCompile(`^\d{8,9}$`)

type Profile struct {
	UserID      string    `json:"user_id"`
	CompanyName string    `json:"company_name"`
	PIB         string    `json:"pib"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	Phone       string    `json:"phone"`
	ContactName string    `json:"contact_name"`
	IsAdmin     bool      `json:"is_admin"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type SaveProfile struct {
	CompanyName string `json:"company_name" validate:"required"`
	PIB         string `json:"pib" validate:"required"`
	Address     string `json:"address"`
	City        string `json:"city"`
	Phone       string `json:"phone"`
	ContactName string `json:"contact_name"`
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

func (c *Conf) GetProfile(ctx context.Context, userID string) (Profile, error) {
	query := `
		SELECT user_id, company_name, pib, address, city, phone, contact_name, is_admin, updated_at
		FROM user_profiles
		WHERE user_id = $1
	`
	var p Profile
	err := c.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.CompanyName, &p.PIB, &p.Address, &p.City,
		&p.Phone, &p.ContactName, &p.IsAdmin, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("failed to query profile: %w", err)
	}
	return p, nil
}

// UpsertProfile saves the profile, inserting it on first save. The admin flag
// is never settable through this path.
func (c *Conf) UpsertProfile(ctx context.Context, userID string, sp SaveProfile) (Profile, error) {
	if !pibPattern.MatchString(sp.PIB) {
		return Profile{}, ErrInvalidPIB
	}
	query := `
		INSERT INTO user_profiles (user_id, company_name, pib, address, city, phone, contact_name, is_admin, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET company_name = EXCLUDED.company_name, pib = EXCLUDED.pib,
		    address = EXCLUDED.address, city = EXCLUDED.city,
		    phone = EXCLUDED.phone, contact_name = EXCLUDED.contact_name,
		    updated_at = NOW()
		RETURNING user_id, company_name, pib, address, city, phone, contact_name, is_admin, updated_at
	`
	var p Profile
	err := c.db.QueryRowContext(ctx, query,
		userID, sp.CompanyName, sp.PIB, sp.Address, sp.City, sp.Phone, sp.ContactName,
	).Scan(&p.UserID, &p.CompanyName, &p.PIB, &p.Address, &p.City,
		&p.Phone, &p.ContactName, &p.IsAdmin, &p.UpdatedAt)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to upsert profile: %w", err)
	}
	return p, nil
}
