package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"auth-template/internal/config"
	apphttp "auth-template/internal/http"
	"auth-template/internal/logging"
	"auth-template/internal/mailer"
	"auth-template/internal/ratelimit"
	"auth-template/internal/repository"
	"auth-template/internal/repository/mysql"
	"auth-template/internal/repository/sqlite"
	"auth-template/internal/repository/sqlstore"
	"auth-template/internal/service"
	"auth-template/internal/storage"
	"auth-template/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}

	logger, closeLog, err := logging.New(logging.Options{
		Path:   cfg.Log.Path,
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		logrus.Fatalf("setup logger: %v", err)
	}
	defer closeLog() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, users, roles, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	err = sqlstore.Retry(ctx, cfg.DB.MigrateRetries, time.Second, func(ctx context.Context) error {
		if err := roles.Init(ctx); err != nil {
			logger.Warnf("init role repository: %v", err)
			return err
		}
		if err := users.Init(ctx); err != nil {
			logger.Warnf("init user repository: %v", err)
			return err
		}
		return nil
	})
	if err != nil {
		logger.Fatalf("init schema: %v", err)
	}

	tokens, err := token.NewManager(cfg.JWT.SecretKey, cfg.JWT.Algorithm, cfg.AccessTTL(), cfg.RefreshTTL())
	if err != nil {
		logger.Fatalf("setup tokens: %v", err)
	}

	var (
		limiter    ratelimit.AttemptLimiter
		dispatcher mailer.Dispatcher
	)
	mailLog := logging.Component(logger, "Mail")
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatalf("connect redis: %v", err)
		}
		limiter = ratelimit.NewRedisLimiter(rdb, "otp:attempts:", cfg.OTP.MaxAttempts, cfg.OTP.AttemptWindow)

		queue := mailer.NewQueueDispatcher(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer queue.Close()
		dispatcher = queue
		logger.Infof("using redis at %s for otp attempts and mail queue", cfg.Redis.Addr)
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.OTP.MaxAttempts, cfg.OTP.AttemptWindow)

		pool := mailer.NewPool(mailer.PoolConfig{Logger: mailLog}, mailer.NewSMTPSender(smtpConfig(cfg)))
		if err := pool.Start(ctx); err != nil {
			logger.Fatalf("start mail pool: %v", err)
		}
		defer pool.Shutdown()
		dispatcher = pool
	}

	store, staticDir, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	authService := service.NewAuthService(users, tokens, limiter, dispatcher, service.AuthConfig{
		OTPTTL:      cfg.OTPTTL(),
		DebugMode:   cfg.DebugMode,
		ProjectName: cfg.Project.Name,
	}, logging.Component(logger, "Auth"))
	profileService := service.NewProfileService(users, store, cfg.Storage.KeyPrefix, logging.Component(logger, "User"))
	roleService := service.NewRoleService(roles)

	gin.SetMode(gin.ReleaseMode)
	if cfg.DebugMode {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	handler := apphttp.NewHandler(authService, profileService, roleService, apphttp.Options{
		ProjectName:    cfg.Project.Name,
		Version:        cfg.Project.Version,
		AllowedOrigins: cfg.AllowedOrigins(),
		AdminSite:      cfg.AdminSiteRequired,
		StaticDir:      staticDir,
		RateLimiter:    ratelimit.NewClientLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 10*time.Minute),
		DB:             db,
		Logger:         logging.Component(logger, "HTTP"),
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func openStore(ctx context.Context, cfg config.Config) (*sql.DB, repository.UserRepository, repository.RoleRepository, error) {
	switch cfg.DB.Driver {
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.DB.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return db, sqlite.NewUserRepository(db), sqlite.NewRoleRepository(db), nil
	case "mysql":
		db, err := mysql.Open(ctx, mysql.Options{
			Username:        cfg.DB.Username,
			Password:        cfg.DB.Password,
			Host:            cfg.DB.Host,
			Port:            cfg.DB.Port,
			Name:            cfg.DB.Name,
			MaxOpenConns:    cfg.DB.MaxOpenConns,
			MaxIdleConns:    cfg.DB.MaxIdleConns,
			ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return db, mysql.NewUserRepository(db), mysql.NewRoleRepository(db), nil
	}
	return nil, nil, nil, fmt.Errorf("unsupported database driver %q", cfg.DB.Driver)
}

func smtpConfig(cfg config.Config) mailer.SMTPConfig {
	return mailer.SMTPConfig{
		Server:   cfg.Mail.Server,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		FromName: cfg.Mail.FromName,
	}
}

// buildStorage returns the image store and, for the local backend, the directory to serve.
func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, string, error) {
	if cfg.Storage.Backend == "s3" {
		svc, err := storage.NewS3ServiceFromConfig(ctx, storage.S3Config{
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			Profile:   cfg.AWS.Profile,
			URLExpiry: 15 * time.Minute,
		})
		if err != nil {
			return nil, "", err
		}
		logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
		return svc, "", nil
	}

	svc, err := storage.NewLocalService(cfg.Storage.LocalDir, cfg.BaseURL, "static")
	if err != nil {
		return nil, "", err
	}
	logger.Infof("storing images under %s", svc.Root())
	return svc, svc.Root(), nil
}
