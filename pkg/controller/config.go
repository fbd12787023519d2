package controller

import (
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"
)

// Config controls how often and how persistently the controller updates.
type Config struct {
	// Interval between updates. Zero runs a single update.
	Interval time.Duration
	// MaxAttempts is the number of login+refresh attempts per update.
	MaxAttempts int
	// MaxAuthFailures stops an update early after this many consecutive
	// rejected logins since retrying wrong credentials won't help.
	MaxAuthFailures int
	// Backoff is the wait between attempts.
	Backoff time.Duration
}

// DefaultConfig returns the defaults used for the flags.
func DefaultConfig() Config {
	return Config{
		Interval:        time.Minute,
		MaxAttempts:     5,
		MaxAuthFailures: 2,
		Backoff:         10 * time.Second,
	}
}

// Configured registers the controller flags.
func Configured() *Config {
	def := DefaultConfig()
	interval := lflag.Duration("update-interval", def.Interval, "How often to fetch from the SENEC portal (0 fetches once and exits)")
	backoff := lflag.Duration("retry-backoff", def.Backoff, "How long to wait between failed attempts")
	maxAttempts := def.MaxAttempts
	lflag.JSON(&maxAttempts, "max-attempts", maxAttempts, "Attempts per update before giving up")
	maxAuthFailures := def.MaxAuthFailures
	lflag.JSON(&maxAuthFailures, "max-auth-failures", maxAuthFailures, "Consecutive rejected logins before giving up on an update")

	c := &Config{}
	lflag.Do(func() {
		c.Interval = *interval
		c.Backoff = *backoff
		c.MaxAttempts = maxAttempts
		c.MaxAuthFailures = maxAuthFailures
	})
	return c
}

// Validate ensures the configuration is valid.
func (c Config) Validate() error {
	if c.Interval < 0 {
		return fmt.Errorf("update-interval cannot be negative")
	}
	if c.Backoff < 0 {
		return fmt.Errorf("retry-backoff cannot be negative")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max-attempts must be at least 1")
	}
	if c.MaxAuthFailures < 1 {
		return fmt.Errorf("max-auth-failures must be at least 1")
	}
	return nil
}
