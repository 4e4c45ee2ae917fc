package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/saraha-app/sessionkit/credential"
)

// Config holds the cron specs (standard five-field syntax) of each job.
// An empty spec disables that job.
type Config struct {
	ExpiredRefreshSpec string
	RevokedRefreshSpec string
	BlacklistSpec      string
	HeartbeatSpec      string
	// RunTimeout bounds a single sweep.
	RunTimeout time.Duration
}

// DefaultConfig returns the stock schedule.
func DefaultConfig() Config {
	return Config{
		ExpiredRefreshSpec: "0 * * * *",
		RevokedRefreshSpec: "0 */6 * * *",
		BlacklistSpec:      "*/30 * * * *",
		HeartbeatSpec:      "0 0 * * *",
		RunTimeout:         5 * time.Minute,
	}
}

// Validate parses every non-empty spec.
func (c Config) Validate() error {
	if c.RunTimeout <= 0 {
		return errors.New("cleanup run timeout must be positive")
	}
	for _, spec := range []string{c.ExpiredRefreshSpec, c.RevokedRefreshSpec, c.BlacklistSpec, c.HeartbeatSpec} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("cleanup spec %q: %w", spec, err)
		}
	}
	return nil
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used to decide expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// Scheduler runs the sweep jobs.
type Scheduler struct {
	cfg       Config
	sweeper   credential.Sweeper
	blacklist credential.Blacklist
	logger    *slog.Logger
	now       func() time.Time
	cron      *cron.Cron
}

// New builds a Scheduler. blacklist may be nil, in which case the blacklist
// job is not scheduled.
func New(cfg Config, sweeper credential.Sweeper, blacklist credential.Blacklist, opts ...Option) (*Scheduler, error) {
	if sweeper == nil {
		return nil, errors.New("cleanup: sweeper is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Scheduler{
		cfg:       cfg,
		sweeper:   sweeper,
		blacklist: blacklist,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cron = cron.New(cron.WithChain(
		cron.Recover(cronLogger{s.logger}),
		cron.SkipIfStillRunning(cronLogger{s.logger}),
	))

	jobs := []struct {
		spec string
		name string
		run  func(context.Context) (int, error)
	}{
		{cfg.ExpiredRefreshSpec, "expired_refresh", s.RunExpiredRefreshSweep},
		{cfg.RevokedRefreshSpec, "revoked_refresh", s.RunRevokedRefreshSweep},
	}
	if blacklist != nil {
		jobs = append(jobs, struct {
			spec string
			name string
			run  func(context.Context) (int, error)
		}{cfg.BlacklistSpec, "blacklist", s.RunBlacklistSweep})
	}

	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		if _, err := s.cron.AddFunc(job.spec, s.wrap(job.name, job.run)); err != nil {
			return nil, fmt.Errorf("cleanup: schedule %s: %w", job.name, err)
		}
	}
	if cfg.HeartbeatSpec != "" {
		if _, err := s.cron.AddFunc(cfg.HeartbeatSpec, s.Heartbeat); err != nil {
			return nil, fmt.Errorf("cleanup: schedule heartbeat: %w", err)
		}
	}

	return s, nil
}

// Start begins scheduling in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("cleanup scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop halts scheduling and waits for running jobs, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunExpiredRefreshSweep deletes unrevoked refresh records that have expired.
func (s *Scheduler) RunExpiredRefreshSweep(ctx context.Context) (int, error) {
	return s.sweeper.SweepExpiredRefresh(ctx, s.now())
}

// RunRevokedRefreshSweep deletes every revoked refresh record.
func (s *Scheduler) RunRevokedRefreshSweep(ctx context.Context) (int, error) {
	return s.sweeper.SweepRevokedRefresh(ctx)
}

// RunBlacklistSweep deletes expired blacklist entries.
func (s *Scheduler) RunBlacklistSweep(ctx context.Context) (int, error) {
	if s.blacklist == nil {
		return 0, nil
	}
	return s.blacklist.SweepExpired(ctx, s.now())
}

// Heartbeat logs that the scheduler is alive.
func (s *Scheduler) Heartbeat() {
	s.logger.Info("cleanup scheduler heartbeat", "at", s.now().UTC())
}

func (s *Scheduler) wrap(name string, run func(context.Context) (int, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout)
		defer cancel()

		started := time.Now()
		n, err := run(ctx)
		if err != nil {
			s.logger.Error("cleanup job failed", "job", name, "removed", n, "err", err)
			return
		}
		s.logger.Info("cleanup job finished", "job", name, "removed", n, "took", time.Since(started))
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "err", err)...)
}
