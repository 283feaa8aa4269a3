// Package sqlstore implements the repositories on top of database/sql. The
// queries are shared between MySQL and SQLite; a Dialect supplies what differs.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Dialect captures the driver specific parts of the schema and error handling.
type Dialect struct {
	Name string
	// RolesTable, BaseUsersTable and UsersTable are CREATE TABLE IF NOT EXISTS statements.
	RolesTable     string
	BaseUsersTable string
	UsersTable     string
	// InsertIgnore is the verb used to insert a row unless it already exists.
	InsertIgnore string
	// IsDuplicate reports whether err is a unique constraint violation.
	IsDuplicate func(err error) bool
}

func (d Dialect) duplicate(err error) bool {
	return d.IsDuplicate != nil && d.IsDuplicate(err)
}

// Retry runs fn up to attempts+1 times, waiting interval between failures.
// Schema creation uses it because the database container may still be starting.
func Retry(ctx context.Context, attempts int, interval time.Duration, fn func(context.Context) error) error {
	err := fn(ctx)
	for i := 0; err != nil && i < attempts; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		err = fn(ctx)
	}
	return err
}

func execAll(ctx context.Context, db *sql.DB, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec schema: %w", err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	v := nt.Time.UTC()
	return &v
}
