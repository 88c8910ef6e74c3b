package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/TryOmar/LabShare-sub001/internal/models"
	"github.com/TryOmar/LabShare-sub001/pkg/logger"
	"github.com/TryOmar/LabShare-sub001/pkg/metrics"
)

const (
	// DefaultInterval throttles lazy cleanup runs triggered from the login path.
	DefaultInterval = time.Hour
	// DefaultCodeRetention keeps auth code rows around after creation,
	// consumed or not, before they are swept.
	DefaultCodeRetention = 24 * time.Hour
	// DefaultSessionTTL matches the bearer token lifetime; sessions older than
	// this are unreachable and safe to drop.
	DefaultSessionTTL = 7 * 24 * time.Hour
	// DefaultRevokedGrace keeps revoked sessions visible for a day so support
	// staff can still inspect them.
	DefaultRevokedGrace = 24 * time.Hour
	// DefaultEventRetention bounds the auth trail.
	DefaultEventRetention = 90 * 24 * time.Hour

	defaultSchedule = "@hourly"
)

// Stats reports how many rows a cleanup pass removed. Skipped is set when a
// lazy run was throttled and nothing executed.
type Stats struct {
	CodesDeleted    int64
	SessionsDeleted int64
	EventsDeleted   int64
	Skipped         bool
}

// Scheduler sweeps expired auth codes, dead sessions, and old trail events.
// Runs are either lazy (throttled, piggybacked on logins) or forced (admin
// endpoint and the cron schedule).
type Scheduler struct {
	db  *gorm.DB
	cro *cron.Cron
	now func() time.Time
	log *zap.Logger

	interval       time.Duration
	codeRetention  time.Duration
	sessionTTL     time.Duration
	revokedGrace   time.Duration
	eventRetention time.Duration
	schedule       string

	mu      sync.Mutex
	lastRun time.Time
}

// Option customises the Scheduler.
type Option func(*Scheduler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.cro = c
		}
	}
}

// WithNow overrides the clock used for throttling and cutoff comparisons.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithInterval adjusts how often lazy runs are allowed to execute.
func WithInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithCodeRetention adjusts how long auth code rows are kept.
func WithCodeRetention(retention time.Duration) Option {
	return func(s *Scheduler) {
		if retention > 0 {
			s.codeRetention = retention
		}
	}
}

// WithSessionTTL adjusts the age beyond which sessions are dropped outright.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Scheduler) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithRevokedGrace adjusts how long revoked sessions stay queryable.
func WithRevokedGrace(grace time.Duration) Option {
	return func(s *Scheduler) {
		if grace > 0 {
			s.revokedGrace = grace
		}
	}
}

// WithEventRetention adjusts how long auth trail events are kept.
func WithEventRetention(retention time.Duration) Option {
	return func(s *Scheduler) {
		if retention > 0 {
			s.eventRetention = retention
		}
	}
}

// WithSchedule overrides the cron specification for background runs.
func WithSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.schedule = spec
		}
	}
}

// NewScheduler constructs a cleanup scheduler with production defaults.
func NewScheduler(db *gorm.DB, opts ...Option) (*Scheduler, error) {
	if db == nil {
		return nil, errors.New("maintenance: db is required")
	}

	scheduler := &Scheduler{
		db:             db,
		now:            time.Now,
		interval:       DefaultInterval,
		codeRetention:  DefaultCodeRetention,
		sessionTTL:     DefaultSessionTTL,
		revokedGrace:   DefaultRevokedGrace,
		eventRetention: DefaultEventRetention,
		schedule:       defaultSchedule,
		log:            logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(scheduler)
	}

	if scheduler.cro == nil {
		scheduler.cro = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return scheduler, nil
}

// RunLazy executes a cleanup pass unless one ran within the configured
// interval. Login handlers call it fire-and-forget; a skipped run is not an
// error.
func (s *Scheduler) RunLazy(ctx context.Context) (Stats, error) {
	now := s.now()

	s.mu.Lock()
	if !s.lastRun.IsZero() && now.Sub(s.lastRun) < s.interval {
		s.mu.Unlock()
		return Stats{Skipped: true}, nil
	}
	s.lastRun = now
	s.mu.Unlock()

	return s.purge(ctx, now)
}

// RunForced executes a cleanup pass unconditionally and resets the lazy timer.
func (s *Scheduler) RunForced(ctx context.Context) (Stats, error) {
	now := s.now()

	s.mu.Lock()
	s.lastRun = now
	s.mu.Unlock()

	return s.purge(ctx, now)
}

// Start registers the background schedule and launches the cron runner.
func (s *Scheduler) Start() error {
	_, err := s.cro.AddFunc(s.schedule, func() {
		if _, err := s.RunForced(context.Background()); err != nil {
			s.log.Warn("scheduled cleanup failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("maintenance: register schedule %q: %w", s.schedule, err)
	}

	s.cro.Start()
	return nil
}

// Stop halts the cron runner, waiting for any in-flight job to complete.
func (s *Scheduler) Stop() context.Context {
	if s.cro == nil {
		return context.Background()
	}
	return s.cro.Stop()
}

// purge performs the three sweeps. A failing sweep does not stop the others;
// errors are aggregated for the caller to log.
func (s *Scheduler) purge(ctx context.Context, now time.Time) (Stats, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		stats Stats
		errs  error
	)

	if result := s.db.WithContext(ctx).
		Where("created_at < ?", now.Add(-s.codeRetention)).
		Delete(&models.AuthCode{}); result.Error != nil {
		errs = multierr.Append(errs, fmt.Errorf("maintenance: purge auth codes: %w", result.Error))
	} else {
		stats.CodesDeleted = result.RowsAffected
		metrics.CleanupDeletedRows.WithLabelValues("auth_codes").Add(float64(result.RowsAffected))
	}

	graceCutoff := now.Add(-s.revokedGrace)
	ageCutoff := now.Add(-s.sessionTTL)

	// Overaged live sessions still sit in the active gauge; count them before
	// the delete makes that unknowable.
	var liveDoomed int64
	if err := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("created_at < ? AND revoked_at IS NULL", ageCutoff).
		Count(&liveDoomed).Error; err != nil {
		errs = multierr.Append(errs, fmt.Errorf("maintenance: count overaged sessions: %w", err))
		liveDoomed = 0
	}

	if result := s.db.WithContext(ctx).
		Where("(revoked_at IS NOT NULL AND revoked_at < ?) OR created_at < ?", graceCutoff, ageCutoff).
		Delete(&models.Session{}); result.Error != nil {
		errs = multierr.Append(errs, fmt.Errorf("maintenance: purge sessions: %w", result.Error))
	} else {
		stats.SessionsDeleted = result.RowsAffected
		metrics.CleanupDeletedRows.WithLabelValues("sessions").Add(float64(result.RowsAffected))
		if liveDoomed > 0 {
			metrics.ActiveSessions.Sub(float64(liveDoomed))
		}
	}

	if result := s.db.WithContext(ctx).
		Where("created_at < ?", now.Add(-s.eventRetention)).
		Delete(&models.AuthEvent{}); result.Error != nil {
		errs = multierr.Append(errs, fmt.Errorf("maintenance: purge auth events: %w", result.Error))
	} else {
		stats.EventsDeleted = result.RowsAffected
		metrics.CleanupDeletedRows.WithLabelValues("auth_events").Add(float64(result.RowsAffected))
	}

	if stats.CodesDeleted > 0 || stats.SessionsDeleted > 0 || stats.EventsDeleted > 0 {
		s.log.Info("cleanup removed stale auth rows",
			zap.Int64("codes", stats.CodesDeleted),
			zap.Int64("sessions", stats.SessionsDeleted),
			zap.Int64("events", stats.EventsDeleted))
	}

	return stats, errs
}
