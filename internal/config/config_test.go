package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr)
	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Equal(t, 3306, cfg.DB.Port)
	assert.Equal(t, "HS256", cfg.JWT.Algorithm)
	assert.Equal(t, 30*time.Minute, cfg.AccessTTL())
	assert.Equal(t, 2*time.Minute, cfg.OTPTTL())
	assert.True(t, cfg.AdminSiteRequired)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("ACCESS_TOKEN_EXPIRES_IN", "5")
	t.Setenv("REFRESH_TOKEN_EXPIRES_IN", "60")
	t.Setenv("OTP_EXPIRED_TIME", "30")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_MAX_OPEN_CONNS", "3")
	t.Setenv("DEBUG_MODE", "true")
	t.Setenv("CLIENT_ORIGIN", "http://a.test, http://b.test")
	t.Setenv("SERVER_SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.AccessTTL())
	assert.Equal(t, time.Hour, cfg.RefreshTTL())
	assert.Equal(t, 30*time.Second, cfg.OTPTTL())
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, 3, cfg.DB.MaxOpenConns)
	assert.True(t, cfg.DebugMode)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var cfg Config
		cfg.JWT.SecretKey = "secret"
		cfg.JWT.Algorithm = "HS256"
		cfg.JWT.AccessTokenExpiresIn = 1
		cfg.JWT.RefreshTokenExpiresIn = 1
		cfg.OTP.ExpiredTime = 1
		cfg.DB.Driver = "sqlite"
		cfg.Storage.Backend = "local"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(*Config){
		"missing secret":    func(c *Config) { c.JWT.SecretKey = " " },
		"rsa algorithm":     func(c *Config) { c.JWT.Algorithm = "RS256" },
		"zero expiry":       func(c *Config) { c.JWT.AccessTokenExpiresIn = 0 },
		"zero otp expiry":   func(c *Config) { c.OTP.ExpiredTime = 0 },
		"unknown driver":    func(c *Config) { c.DB.Driver = "postgres" },
		"s3 without bucket": func(c *Config) { c.Storage.Backend = "s3" },
		"unknown storage":   func(c *Config) { c.Storage.Backend = "ftp" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAllowedOriginsFallback(t *testing.T) {
	var cfg Config
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
}
