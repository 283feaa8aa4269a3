package mysql

import (
	"errors"
	"fmt"
	"testing"

	driver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsDSN(t *testing.T) {
	dsn := Options{
		Username: "root",
		Password: "pw",
		Host:     "db",
		Port:     3306,
		Name:     "auth",
	}.DSN()

	cfg, err := driver.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "root", cfg.User)
	assert.Equal(t, "pw", cfg.Passwd)
	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "auth", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.True(t, cfg.ClientFoundRows)
}

func TestDialectDetectsDuplicateEntry(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &driver.MySQLError{Number: errDuplicateEntry, Message: "Duplicate entry"})
	assert.True(t, Dialect.IsDuplicate(dup))
	assert.False(t, Dialect.IsDuplicate(&driver.MySQLError{Number: 1146}))
	assert.False(t, Dialect.IsDuplicate(errors.New("boom")))
}
