package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Project struct {
		Name        string `mapstructure:"name"`
		Version     string `mapstructure:"version"`
		Description string `mapstructure:"description"`
	} `mapstructure:"project"`
	Server struct {
		Addr            string        `mapstructure:"addr"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	DB struct {
		Driver          string        `mapstructure:"driver"`
		Username        string        `mapstructure:"username"`
		Password        string        `mapstructure:"password"`
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		Name            string        `mapstructure:"name"`
		Path            string        `mapstructure:"path"`
		MaxOpenConns    int           `mapstructure:"max_open_conns"`
		MaxIdleConns    int           `mapstructure:"max_idle_conns"`
		ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
		MigrateRetries  int           `mapstructure:"migrate_retries"`
	} `mapstructure:"db"`
	JWT struct {
		SecretKey string `mapstructure:"secret_key"`
		Algorithm string `mapstructure:"algorithm"`
		// Expiries are expressed in minutes.
		AccessTokenExpiresIn  int `mapstructure:"access_token_expires_in"`
		RefreshTokenExpiresIn int `mapstructure:"refresh_token_expires_in"`
	} `mapstructure:"jwt"`
	OTP struct {
		// ExpiredTime is expressed in seconds.
		ExpiredTime   int           `mapstructure:"expired_time"`
		MaxAttempts   int           `mapstructure:"max_attempts"`
		AttemptWindow time.Duration `mapstructure:"attempt_window"`
	} `mapstructure:"otp"`
	Client struct {
		Origin string `mapstructure:"origin"`
	} `mapstructure:"client"`
	Log struct {
		Path   string `mapstructure:"path"`
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Mail struct {
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		Port     int    `mapstructure:"port"`
		From     string `mapstructure:"from"`
		Server   string `mapstructure:"server"`
		FromName string `mapstructure:"from_name"`
	} `mapstructure:"mail"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Storage struct {
		Backend   string `mapstructure:"backend"`
		LocalDir  string `mapstructure:"local_dir"`
		Bucket    string `mapstructure:"bucket"`
		KeyPrefix string `mapstructure:"key_prefix"`
		Region    string `mapstructure:"region"`
		Endpoint  string `mapstructure:"endpoint"`
	} `mapstructure:"storage"`
	AWS struct {
		Profile string `mapstructure:"profile"`
	} `mapstructure:"aws"`
	RateLimit struct {
		RPS   float64 `mapstructure:"rps"`
		Burst int     `mapstructure:"burst"`
	} `mapstructure:"rate_limit"`

	DebugMode         bool   `mapstructure:"debug_mode"`
	BaseURL           string `mapstructure:"base_url"`
	AdminSiteRequired bool   `mapstructure:"admin_site_required"`
}

// Load reads configuration from environment variables and optional config files.
// A .env file in the working directory is applied first without overriding the
// real environment.
func Load() (Config, error) {
	_ = godotenv.Load() // optional file

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// The token expiries keep the names used by existing .env files.
	_ = v.BindEnv("jwt.access_token_expires_in", "ACCESS_TOKEN_EXPIRES_IN", "JWT_ACCESS_TOKEN_EXPIRES_IN")
	_ = v.BindEnv("jwt.refresh_token_expires_in", "REFRESH_TOKEN_EXPIRES_IN", "JWT_REFRESH_TOKEN_EXPIRES_IN")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("project.name", "Auth Template")
	v.SetDefault("project.version", "1.0.0")
	v.SetDefault("project.description", "Template service with email OTP authentication")

	v.SetDefault("server.addr", "0.0.0.0:8000")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("db.driver", "mysql")
	v.SetDefault("db.username", "root")
	v.SetDefault("db.password", "")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 3306)
	v.SetDefault("db.name", "auth_template")
	v.SetDefault("db.path", "data/auth.db")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", time.Hour)
	v.SetDefault("db.migrate_retries", 5)

	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("jwt.algorithm", "HS256")
	v.SetDefault("jwt.access_token_expires_in", 30)
	v.SetDefault("jwt.refresh_token_expires_in", 7*24*60)

	v.SetDefault("otp.expired_time", 120)
	v.SetDefault("otp.max_attempts", 5)
	v.SetDefault("otp.attempt_window", 15*time.Minute)

	v.SetDefault("client.origin", "*")

	v.SetDefault("log.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.server", "")
	v.SetDefault("mail.from_name", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_dir", "static")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.key_prefix", "images")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")

	v.SetDefault("rate_limit.rps", 5.0)
	v.SetDefault("rate_limit.burst", 10)

	v.SetDefault("debug_mode", false)
	v.SetDefault("base_url", "http://localhost:8000")
	v.SetDefault("admin_site_required", true)
}

// Validate reports the first setting that would prevent the service from starting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWT.SecretKey) == "" {
		return errors.New("jwt secret key is required")
	}
	switch c.JWT.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported jwt algorithm %q", c.JWT.Algorithm)
	}
	if c.JWT.AccessTokenExpiresIn <= 0 || c.JWT.RefreshTokenExpiresIn <= 0 {
		return errors.New("token expiries must be positive")
	}
	if c.OTP.ExpiredTime <= 0 {
		return errors.New("otp expiry must be positive")
	}
	switch c.DB.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.DB.Driver)
	}
	switch c.Storage.Backend {
	case "local":
	case "s3":
		if c.Storage.Bucket == "" {
			return errors.New("storage bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unsupported storage backend %q", c.Storage.Backend)
	}
	return nil
}

// AccessTTL is the lifetime of an access token.
func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWT.AccessTokenExpiresIn) * time.Minute
}

// RefreshTTL is the lifetime of a refresh token.
func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWT.RefreshTokenExpiresIn) * time.Minute
}

// OTPTTL is how long a one-time password stays valid.
func (c Config) OTPTTL() time.Duration {
	return time.Duration(c.OTP.ExpiredTime) * time.Second
}

// AllowedOrigins splits CLIENT_ORIGIN into individual origins.
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.Client.Origin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
