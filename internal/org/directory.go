// Package org provides read access to the organizational directory:
// areas, the cities inside them and the users attached to either.
package org

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/apperr"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/store"
)

// UserFilter selects users by hierarchy position. Empty slices do not filter.
type UserFilter struct {
	Roles   []model.Role
	AreaIDs []string // matches the user's own or derived (via city) area
	CityIDs []string
	IDs     []string

	ExcludeIDs []string
	ActiveOnly bool

	Query  *string // search full name and email
	Limit  int
	Offset int
}

// Directory is the read-only view of the org hierarchy the broadcast core
// depends on.
type Directory interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]model.User, error)
	CountUsers(ctx context.Context, filter UserFilter) (int, error)
}

// SQLDirectory implements Directory over the areas, cities and users tables.
type SQLDirectory struct {
	db *sqlx.DB
}

var _ Directory = (*SQLDirectory)(nil)

// NewSQLDirectory wraps an open database that carries the org tables.
func NewSQLDirectory(db *sqlx.DB) *SQLDirectory {
	return &SQLDirectory{db: db}
}

type userRow struct {
	ID        string         `db:"id"`
	FullName  string         `db:"full_name"`
	Email     string         `db:"email"`
	Phone     string         `db:"phone"`
	Role      string         `db:"role"`
	AreaID    sql.NullString `db:"area_id"`
	CityID    sql.NullString `db:"city_id"`
	Active    int            `db:"active"`
	CreatedAt string         `db:"created_at"`
}

func (r userRow) toModel() model.User {
	u := model.User{
		ID:       r.ID,
		FullName: r.FullName,
		Email:    r.Email,
		Phone:    r.Phone,
		Role:     model.Role(r.Role),
		Active:   r.Active != 0,
	}
	if r.AreaID.Valid {
		u.AreaID = &r.AreaID.String
	}
	if r.CityID.Valid {
		u.CityID = &r.CityID.String
	}
	if t, err := parseTime(r.CreatedAt); err == nil {
		u.CreatedAt = t
	}
	return u
}

const userSelect = `SELECT u.id, u.full_name, u.email, u.phone, u.role,
	COALESCE(u.area_id, c.area_id) AS area_id, u.city_id, u.active, u.created_at
	FROM users u LEFT JOIN cities c ON c.id = u.city_id`

// GetUser retrieves a single user by ID.
func (d *SQLDirectory) GetUser(ctx context.Context, id string) (*model.User, error) {
	var row userRow
	err := d.db.GetContext(ctx, &row, userSelect+" WHERE u.id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrUserNotFound.With("user %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", id, err)
	}
	u := row.toModel()
	return &u, nil
}

// ListUsers retrieves users matching the filter ordered by name.
func (d *SQLDirectory) ListUsers(ctx context.Context, filter UserFilter) ([]model.User, error) {
	query, args, err := buildUserQuery(userSelect, filter, true)
	if err != nil {
		return nil, err
	}

	var rows []userRow
	if err := d.db.SelectContext(ctx, &rows, d.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}

	users := make([]model.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toModel())
	}
	return users, nil
}

// CountUsers returns the number of users matching the filter, ignoring
// pagination.
func (d *SQLDirectory) CountUsers(ctx context.Context, filter UserFilter) (int, error) {
	query, args, err := buildUserQuery(
		"SELECT COUNT(*) FROM users u LEFT JOIN cities c ON c.id = u.city_id",
		filter, false)
	if err != nil {
		return 0, err
	}

	var n int
	if err := d.db.GetContext(ctx, &n, d.db.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// buildUserQuery appends the filter's conditions to base. IN lists are
// expanded with sqlx.In.
func buildUserQuery(base string, filter UserFilter, paginate bool) (string, []interface{}, error) {
	var conditions []string
	var args []interface{}

	if len(filter.Roles) > 0 {
		roles := make([]string, len(filter.Roles))
		for i, r := range filter.Roles {
			roles[i] = string(r)
		}
		conditions = append(conditions, "u.role IN (?)")
		args = append(args, roles)
	}
	if len(filter.AreaIDs) > 0 {
		conditions = append(conditions, "COALESCE(u.area_id, c.area_id) IN (?)")
		args = append(args, filter.AreaIDs)
	}
	if len(filter.CityIDs) > 0 {
		conditions = append(conditions, "u.city_id IN (?)")
		args = append(args, filter.CityIDs)
	}
	if len(filter.IDs) > 0 {
		conditions = append(conditions, "u.id IN (?)")
		args = append(args, filter.IDs)
	}
	if len(filter.ExcludeIDs) > 0 {
		conditions = append(conditions, "u.id NOT IN (?)")
		args = append(args, filter.ExcludeIDs)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "u.active = 1")
	}
	if filter.Query != nil && *filter.Query != "" {
		conditions = append(conditions, `(u.full_name LIKE ? ESCAPE '\' OR u.email LIKE ? ESCAPE '\')`)
		q := store.ContainsPattern(*filter.Query)
		args = append(args, q, q)
	}

	query := base
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	if paginate {
		query += " ORDER BY u.full_name, u.id"
		if filter.Limit > 0 {
			query += fmt.Sprintf(" LIMIT %d", filter.Limit)
			if filter.Offset > 0 {
				query += fmt.Sprintf(" OFFSET %d", filter.Offset)
			}
		}
	}

	if len(args) == 0 {
		return query, nil, nil
	}
	expanded, expandedArgs, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, fmt.Errorf("expanding user filter: %w", err)
	}
	return expanded, expandedArgs, nil
}
