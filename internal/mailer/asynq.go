package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

const (
	// QueueDefault is the queue OTP mail is enqueued on.
	QueueDefault = "default"
	// TaskTypeOTP is the asynq task type for OTP emails.
	TaskTypeOTP = "mail:otp"
)

// NewOTPTask wraps msg in an asynq task.
func NewOTPTask(msg OTPMessage) (*asynq.Task, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeOTP, data), nil
}

// QueueDispatcher hands messages to asynq so a separate worker can send them.
type QueueDispatcher struct {
	client   *asynq.Client
	maxRetry int
	timeout  time.Duration
}

func NewQueueDispatcher(redisOpt asynq.RedisConnOpt) *QueueDispatcher {
	return &QueueDispatcher{
		client:   asynq.NewClient(redisOpt),
		maxRetry: 5,
		timeout:  time.Minute,
	}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, msg OTPMessage) error {
	task, err := NewOTPTask(msg)
	if err != nil {
		return fmt.Errorf("build otp task: %w", err)
	}
	_, err = d.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(d.maxRetry),
		asynq.Timeout(d.timeout),
	)
	if err != nil {
		return fmt.Errorf("enqueue otp task: %w", err)
	}
	return nil
}

func (d *QueueDispatcher) Close() error {
	return d.client.Close()
}

// HandleOTPTask returns the asynq handler that sends OTP mail with sender.
func HandleOTPTask(sender Sender, logger logrus.FieldLogger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var msg OTPMessage
		if err := json.Unmarshal(t.Payload(), &msg); err != nil {
			logger.Errorf("decode otp task: %v", err)
			return fmt.Errorf("decode otp task: %v: %w", err, asynq.SkipRetry)
		}
		if err := sender.Send(ctx, msg); err != nil {
			logger.WithField("to", msg.To).Warnf("send otp email: %v", err)
			return err
		}
		logger.WithField("to", msg.To).Debug("otp email sent")
		return nil
	}
}

// Worker runs the asynq server that consumes OTP mail tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger logrus.FieldLogger
}

func NewWorker(redisOpt asynq.RedisConnOpt, concurrency int, sender Sender, logger logrus.FieldLogger) *Worker {
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueDefault: 1,
		},
		Logger: logger,
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeOTP, HandleOTPTask(sender, logger))
	return &Worker{server: srv, mux: mux, logger: logger}
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start mail worker: %w", err)
	}
	w.logger.Info("mail worker started")
	<-ctx.Done()
	w.server.Shutdown()
	w.logger.Info("mail worker stopped")
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}
