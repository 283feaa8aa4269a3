package sqlite

import (
	"database/sql"
	"strings"

	"auth-template/internal/repository"
	"auth-template/internal/repository/sqlstore"
)

// Dialect is the SQLite flavour of the shared schema.
var Dialect = sqlstore.Dialect{
	Name: "sqlite",
	RolesTable: `
CREATE TABLE IF NOT EXISTS roles (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	is_active BOOLEAN NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);`,
	BaseUsersTable: `
CREATE TABLE IF NOT EXISTS base_users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	full_name TEXT,
	phone_number TEXT,
	email TEXT NOT NULL UNIQUE,
	hashed_otp TEXT,
	password_hash TEXT,
	image_path TEXT,
	user_type TEXT NOT NULL DEFAULT 'user',
	role_id INTEGER REFERENCES roles(id) ON DELETE SET NULL,
	last_login_at DATETIME,
	otp_created_at DATETIME,
	is_active BOOLEAN NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);`,
	UsersTable: `
CREATE TABLE IF NOT EXISTS users (
	base_user_id TEXT PRIMARY KEY REFERENCES base_users(id) ON DELETE CASCADE,
	age INTEGER,
	gender TEXT,
	height REAL,
	weight REAL
);`,
	InsertIgnore: "INSERT OR IGNORE",
	IsDuplicate: func(err error) bool {
		return strings.Contains(strings.ToLower(err.Error()), "unique")
	},
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return sqlstore.NewUserRepository(db, Dialect)
}

func NewRoleRepository(db *sql.DB) repository.RoleRepository {
	return sqlstore.NewRoleRepository(db, Dialect)
}
