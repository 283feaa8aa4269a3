package mysql

import (
	"database/sql"
	"errors"

	driver "github.com/go-sql-driver/mysql"

	"auth-template/internal/repository"
	"auth-template/internal/repository/sqlstore"
)

const errDuplicateEntry = 1062

// Dialect is the MySQL flavour of the shared schema.
var Dialect = sqlstore.Dialect{
	Name: "mysql",
	RolesTable: `
CREATE TABLE IF NOT EXISTS roles (
	id BIGINT PRIMARY KEY AUTO_INCREMENT,
	name VARCHAR(100) NOT NULL UNIQUE,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	BaseUsersTable: `
CREATE TABLE IF NOT EXISTS base_users (
	id CHAR(36) PRIMARY KEY,
	username VARCHAR(100) NOT NULL UNIQUE,
	full_name VARCHAR(225),
	phone_number VARCHAR(20),
	email VARCHAR(225) NOT NULL UNIQUE,
	hashed_otp VARCHAR(255),
	password_hash VARCHAR(255),
	image_path VARCHAR(512),
	user_type VARCHAR(50) NOT NULL DEFAULT 'user',
	role_id BIGINT NULL,
	last_login_at DATETIME NULL,
	otp_created_at DATETIME NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	CONSTRAINT fk_base_users_role FOREIGN KEY (role_id) REFERENCES roles(id) ON DELETE SET NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	UsersTable: `
CREATE TABLE IF NOT EXISTS users (
	base_user_id CHAR(36) PRIMARY KEY,
	age INT NULL,
	gender VARCHAR(10) NULL,
	height DOUBLE NULL,
	weight DOUBLE NULL,
	CONSTRAINT fk_users_base_user FOREIGN KEY (base_user_id) REFERENCES base_users(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	InsertIgnore: "INSERT IGNORE",
	IsDuplicate: func(err error) bool {
		var myErr *driver.MySQLError
		return errors.As(err, &myErr) && myErr.Number == errDuplicateEntry
	},
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return sqlstore.NewUserRepository(db, Dialect)
}

func NewRoleRepository(db *sql.DB) repository.RoleRepository {
	return sqlstore.NewRoleRepository(db, Dialect)
}
