package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/senecgrab/senecgrab/pkg/ess"
	"github.com/senecgrab/senecgrab/pkg/log"
	"github.com/senecgrab/senecgrab/pkg/types"
)

// ErrGivingUp is returned by Update once every attempt failed.
var ErrGivingUp = errors.New("giving up on senec update")

// Authenticator is the login half of the portal client.
type Authenticator interface {
	EnsureAuthenticated(ctx context.Context, creds types.Credentials) error
	IsAuthenticated() bool
}

// Refresher fetches the telemetry over an authenticated session.
type Refresher interface {
	Refresh(ctx context.Context) (types.Buckets, error)
}

// Status is a summary of recent updates for the status endpoint.
type Status struct {
	Authenticated       bool      `json:"authenticated"`
	LastAttempt         time.Time `json:"lastAttempt"`
	LastSuccess         time.Time `json:"lastSuccess"`
	LastError           string    `json:"lastError,omitempty"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	Entries             int       `json:"entries"`
}

// Controller drives the portal client: log in if needed, refresh, and on any
// failure wait and start over, up to a fixed number of attempts.
type Controller struct {
	session Authenticator
	stats   Refresher
	creds   types.Credentials
	cfg     Config
	metrics *Metrics

	// overridden in tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	status Status
}

// NewController returns a Controller updating stats over session with creds.
func NewController(session Authenticator, stats Refresher, creds types.Credentials, cfg Config, metrics *Metrics) *Controller {
	return &Controller{
		session: session,
		stats:   stats,
		creds:   creds,
		cfg:     cfg,
		metrics: metrics,
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// Status returns a copy of the current status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Update runs attempts until one succeeds, MaxAttempts is reached, or
// MaxAuthFailures logins in a row were rejected. If it gives up, the error
// wraps ErrGivingUp and the last attempt's error and the returned buckets are
// whatever the last attempt left behind.
func (c *Controller) Update(ctx context.Context) (types.Buckets, error) {
	start := c.now()
	defer func() {
		c.metrics.duration.Observe(c.now().Sub(start).Seconds())
	}()

	var (
		last         types.Buckets
		lastErr      error
		authFailures int
		attempt      int
	)
	for attempt = 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			log.Ctx(ctx).InfoContext(ctx, "retrying senec update",
				slog.Int("attempt", attempt),
				slog.Duration("backoff", c.cfg.Backoff),
			)
			if err := c.sleep(ctx, c.cfg.Backoff); err != nil {
				return last, err
			}
		}

		b, err := c.attempt(ctx)
		last = b
		c.metrics.attempts.WithLabelValues(resultLabel(err)).Inc()
		c.record(b, err)
		if err == nil {
			c.metrics.updates.WithLabelValues("success").Inc()
			c.metrics.lastSuccess.Set(float64(c.now().Unix()))
			return b, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return last, ctx.Err()
		}

		log.Ctx(ctx).WarnContext(ctx, "senec update attempt failed",
			slog.Int("attempt", attempt),
			slog.String("result", resultLabel(err)),
			slog.Any("error", err),
		)

		if errors.Is(err, ess.ErrAuthentication) {
			authFailures++
			if authFailures >= c.cfg.MaxAuthFailures {
				log.Ctx(ctx).ErrorContext(ctx, "senec login keeps failing, check the credentials", slog.Int("failures", authFailures))
				break
			}
		} else {
			authFailures = 0
		}
	}
	if attempt > c.cfg.MaxAttempts {
		attempt = c.cfg.MaxAttempts
	}

	c.metrics.updates.WithLabelValues("gave_up").Inc()
	return last, fmt.Errorf("%w after %d attempts: %w", ErrGivingUp, attempt, lastErr)
}

func (c *Controller) attempt(ctx context.Context) (types.Buckets, error) {
	if !c.session.IsAuthenticated() {
		err := c.session.EnsureAuthenticated(ctx, c.creds)
		c.metrics.logins.WithLabelValues(resultLabel(err)).Inc()
		if err != nil {
			return types.NewBuckets(), err
		}
	}
	return c.stats.Refresh(ctx)
}

func (c *Controller) record(b types.Buckets, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.status.LastAttempt = now
	c.status.Authenticated = c.session.IsAuthenticated()
	if err != nil {
		c.status.LastError = err.Error()
		c.status.ConsecutiveFailures++
		return
	}
	c.status.LastError = ""
	c.status.Entries = b.Len()
	c.status.LastSuccess = now
	c.status.ConsecutiveFailures = 0
}

// Run updates immediately and then every Interval until ctx is done. With a
// zero Interval it updates once and returns that update's error. Otherwise
// failed updates are logged and the next tick tries again.
func (c *Controller) Run(ctx context.Context) error {
	err := c.runOnce(ctx)
	if c.cfg.Interval <= 0 {
		return err
	}

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.runOnce(ctx)
		}
	}
}

func (c *Controller) runOnce(ctx context.Context) error {
	b, err := c.Update(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Ctx(ctx).ErrorContext(ctx, "senec update failed", slog.Any("error", err))
		}
		return err
	}
	log.Ctx(ctx).DebugContext(ctx, "senec update results",
		slog.Any("power", b.Power),
		slog.Any("energy", b.Energy),
		slog.Any("battery", b.Battery),
	)
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
