package mailer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrQueueFull is returned when every queue slot is taken.
	ErrQueueFull = errors.New("mail queue is full")
	// ErrNotRunning is returned by Dispatch before Start or after Shutdown.
	ErrNotRunning = errors.New("mail dispatcher is not running")
)

type PoolConfig struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	RetryDelay  time.Duration
	Logger      logrus.FieldLogger
}

// Pool sends mail from a bounded in-process queue.
type Pool struct {
	cfg    PoolConfig
	sender Sender

	queue  chan OTPMessage
	wg     sync.WaitGroup
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

func NewPool(cfg PoolConfig, sender Sender) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Pool{
		cfg:    cfg,
		sender: sender,
		queue:  make(chan OTPMessage, cfg.QueueSize),
	}
}

func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx != nil {
		return errors.New("mail dispatcher already started")
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.work(p.queue)
	}
	p.cfg.Logger.Infof("mail dispatcher started with %d workers", p.cfg.Workers)
	return nil
}

// Shutdown stops accepting mail, then waits for queued messages to be sent.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.ctx == nil || p.queue == nil {
		p.mu.Unlock()
		return
	}
	close(p.queue)
	p.queue = nil
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
	p.cfg.Logger.Info("mail dispatcher stopped")
}

func (p *Pool) Dispatch(_ context.Context, msg OTPMessage) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.ctx == nil || p.queue == nil {
		return ErrNotRunning
	}
	select {
	case p.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Pool) work(queue <-chan OTPMessage) {
	defer p.wg.Done()
	for msg := range queue {
		p.deliver(msg)
	}
}

func (p *Pool) deliver(msg OTPMessage) {
	logger := p.cfg.Logger.WithField("to", msg.To)
	for attempt := 1; ; attempt++ {
		err := p.sender.Send(p.ctx, msg)
		if err == nil {
			logger.Debug("otp email sent")
			return
		}
		if attempt >= p.cfg.MaxAttempts {
			logger.Errorf("send otp email failed after %d attempts: %v", attempt, err)
			return
		}
		logger.Warnf("send otp email: %v", err)
		select {
		case <-p.ctx.Done():
			logger.Warn("mail dispatcher cancelled, dropping message")
			return
		case <-time.After(p.cfg.RetryDelay):
		}
	}
}
