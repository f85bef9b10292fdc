package org

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z"

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// SeedUser is the YAML shape of one directory user.
type SeedUser struct {
	ID       string     `yaml:"id"`
	FullName string     `yaml:"full_name"`
	Email    string     `yaml:"email"`
	Phone    string     `yaml:"phone"`
	Role     model.Role `yaml:"role"`
	AreaID   string     `yaml:"area_id"`
	CityID   string     `yaml:"city_id"`

	// Active defaults to true when omitted.
	Active *bool `yaml:"active"`
}

// Seed is a snapshot of the org directory as exported by the admin system.
type Seed struct {
	Areas  []model.Area `yaml:"areas"`
	Cities []model.City `yaml:"cities"`
	Users  []SeedUser   `yaml:"users"`
}

// LoadSeed reads a YAML seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed %s: %w", path, err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing seed %s: %w", path, err)
	}
	if err := seed.Validate(); err != nil {
		return nil, fmt.Errorf("validating seed %s: %w", path, err)
	}
	return &seed, nil
}

// Validate checks that every user sits at a position its role allows.
func (s *Seed) Validate() error {
	areas := make(map[string]bool, len(s.Areas))
	for _, a := range s.Areas {
		areas[a.ID] = true
	}
	cities := make(map[string]bool, len(s.Cities))
	for _, c := range s.Cities {
		if !areas[c.AreaID] {
			return fmt.Errorf("city %s references unknown area %q", c.ID, c.AreaID)
		}
		cities[c.ID] = true
	}

	for _, u := range s.Users {
		if u.ID == "" {
			return fmt.Errorf("user without id")
		}
		switch u.Role {
		case model.RoleSuperAdmin:
		case model.RoleAreaManager:
			if !areas[u.AreaID] {
				return fmt.Errorf("area manager %s needs a known area_id", u.ID)
			}
		case model.RoleCityCoordinator, model.RoleActivistCoordinator:
			if !cities[u.CityID] {
				return fmt.Errorf("%s %s needs a known city_id", u.Role, u.ID)
			}
		default:
			return fmt.Errorf("user %s has unknown role %q", u.ID, u.Role)
		}
	}
	return nil
}

// Import replaces the directory rows named in seed inside one transaction.
// Existing rows with the same IDs are overwritten; others are left alone.
func Import(ctx context.Context, db *sqlx.DB, seed *Seed) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, a := range seed.Areas {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO areas (id, name) VALUES (?, ?)",
			a.ID, a.Name,
		); err != nil {
			return fmt.Errorf("importing area %s: %w", a.ID, err)
		}
	}

	for _, c := range seed.Cities {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO cities (id, area_id, name) VALUES (?, ?, ?)",
			c.ID, c.AreaID, c.Name,
		); err != nil {
			return fmt.Errorf("importing city %s: %w", c.ID, err)
		}
	}

	now := time.Now().UTC().Format(timeLayout)
	for _, u := range seed.Users {
		active := 1
		if u.Active != nil && !*u.Active {
			active = 0
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO users (
				id, full_name, email, phone, role, area_id, city_id, active, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			u.ID, u.FullName, u.Email, u.Phone, string(u.Role),
			nullIfEmpty(u.AreaID), nullIfEmpty(u.CityID), active, now,
		); err != nil {
			return fmt.Errorf("importing user %s: %w", u.ID, err)
		}
	}

	return tx.Commit()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
