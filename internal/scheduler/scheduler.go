// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"
)

// Job is one unit of scheduled work.  It must respect ctx.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner.  Jobs never overlap with themselves and
// a panicking job is logged rather than crashing the process.
type Scheduler struct {
	cron    *cron.Cron
	logger  echo.Logger
	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a scheduler that accepts standard five-field specs and
// descriptors such as "@hourly" or "@every 30m".
func New(logger echo.Logger) *Scheduler {
	l := cronLogger{logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(l),
			cron.SkipIfStillRunning(l),
		)),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers job under name.  Each run gets its own timeout.
func (s *Scheduler) Add(name, spec string, timeout time.Duration, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(s.ctx, timeout)
		defer cancel()
		start := time.Now()
		if err := job(ctx); err != nil {
			s.logger.Errorf("job %s failed after %s: %v", name, time.Since(start), err)
			return
		}
		s.logger.Debugf("job %s finished in %s", name, time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	return nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.logger.Infof("scheduler started with %d jobs", len(s.cron.Entries()))
}

// Stop cancels in-flight jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("scheduler stopped")
}

// TokenPurger deletes refresh-token rows past their expiry.
type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

// PurgeTokens adapts a TokenPurger into a Job that logs what it removed.
func PurgeTokens(p TokenPurger, logger echo.Logger) Job {
	return func(ctx context.Context) error {
		n, err := p.PurgeExpiredTokens(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Infof("purged %d expired refresh tokens", n)
		}
		return nil
	}
}

// cronLogger routes cron's own messages to the application logger.
type cronLogger struct{ l echo.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.l.Debugf("cron: %s %v", msg, kv)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Errorf("cron: %s: %v %v", msg, err, kv)
}
