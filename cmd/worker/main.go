package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"auth-template/internal/config"
	"auth-template/internal/logging"
	"auth-template/internal/mailer"
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

	if cfg.Redis.Addr == "" {
		logger.Fatal("REDIS_ADDR is required to run the mail worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sender := mailer.NewSMTPSender(mailer.SMTPConfig{
		Server:   cfg.Mail.Server,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		FromName: cfg.Mail.FromName,
	})
	worker := mailer.NewWorker(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, 5, sender, logging.Component(logger, "Mail"))

	if err := worker.Run(ctx); err != nil {
		logger.Fatalf("mail worker: %v", err)
	}
}
