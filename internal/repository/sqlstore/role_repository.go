package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"auth-template/internal/domain"
	"auth-template/internal/repository"
)

type RoleRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewRoleRepository(db *sql.DB, dialect Dialect) *RoleRepository {
	return &RoleRepository{db: db, dialect: dialect}
}

var _ repository.RoleRepository = (*RoleRepository)(nil)

// Init creates the roles table and seeds the built-in roles.
func (r *RoleRepository) Init(ctx context.Context) error {
	if err := execAll(ctx, r.db, r.dialect.RolesTable); err != nil {
		return fmt.Errorf("create roles table: %w", err)
	}
	now := time.Now().UTC().Truncate(time.Second)
	seed := []struct {
		id   int64
		name string
	}{
		{domain.RoleUser, "user"},
		{domain.RoleAdmin, "admin"},
	}
	for _, s := range seed {
		_, err := r.db.ExecContext(ctx, r.dialect.InsertIgnore+` INTO roles (id, name, is_active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)`, s.id, s.name, true, now, now)
		if err != nil {
			return fmt.Errorf("seed role %s: %w", s.name, err)
		}
	}
	return nil
}

func (r *RoleRepository) Get(ctx context.Context, id int64) (*domain.Role, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, is_active, created_at, updated_at FROM roles WHERE id = ?`, id)
	return scanRole(row)
}

// GetForUser returns the role attached to the user. Users without a role
// yield ErrNotFound.
func (r *RoleRepository) GetForUser(ctx context.Context, userID string) (*domain.Role, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT r.id, r.name, r.is_active, r.created_at, r.updated_at
FROM roles r
JOIN base_users b ON b.role_id = r.id
WHERE b.id = ?`, userID)
	return scanRole(row)
}

func (r *RoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, is_active, created_at, updated_at FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return roles, nil
}

func scanRole(row scanner) (*domain.Role, error) {
	var role domain.Role
	if err := row.Scan(&role.ID, &role.Name, &role.IsActive, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan role: %w", err)
	}
	role.CreatedAt = role.CreatedAt.UTC()
	role.UpdatedAt = role.UpdatedAt.UTC()
	return &role, nil
}
