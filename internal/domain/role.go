package domain

import "time"

// Seeded role identifiers.
const (
	RoleUser  int64 = 1
	RoleAdmin int64 = 2
)

// Role groups users for authorization checks.
type Role struct {
	ID        int64
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
