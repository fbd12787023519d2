package ess

import (
	"fmt"
	"net/url"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/senecgrab/senecgrab/pkg/common"
)

const (
	defaultAuthURL = "https://mein-senec.de/endkunde/oauth2/authorization/endkunde-portal"
	defaultAPIURL  = "https://mein-senec.de/endkunde/api/status"
)

// Config holds the portal locations and request timeout.
type Config struct {
	AuthURL        string
	APIURL         string
	RequestTimeout time.Duration
}

// Configured registers the portal flags and returns the Config they are
// written into once lflag.Configure runs.
func Configured() *Config {
	authURL := lflag.String("senec-auth-url", defaultAuthURL, "OAuth2 authorization URL of the SENEC customer portal")
	apiURL := lflag.String("senec-api-url", defaultAPIURL, "Base URL of the SENEC status API")
	timeout := lflag.Duration("request-timeout", 10*time.Second, "Timeout for each request to the SENEC portal")

	c := &Config{}
	lflag.Do(func() {
		c.AuthURL = *authURL
		c.APIURL = *apiURL
		c.RequestTimeout = *timeout
	})
	return c
}

// Validate ensures the configuration is valid.
func (c *Config) Validate() error {
	if c.AuthURL == "" {
		return fmt.Errorf("senec-auth-url is required")
	}
	if _, err := url.Parse(c.AuthURL); err != nil {
		return fmt.Errorf("failed to parse senec auth url (%s): %w", c.AuthURL, err)
	}
	if c.APIURL == "" {
		return fmt.Errorf("senec-api-url is required")
	}
	if _, err := url.Parse(c.APIURL); err != nil {
		return fmt.Errorf("failed to parse senec api url (%s): %w", c.APIURL, err)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request-timeout must be positive")
	}
	return nil
}

// New builds a Session with its own cookie jar and an Aggregator reading
// installationID over it.
func (c *Config) New(installationID string) (*Session, *Aggregator, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	endpoints, err := EndpointsFromBase(c.APIURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build senec endpoints: %w", err)
	}
	client, err := common.CookieClient(c.RequestTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	s := NewSession(client, c.AuthURL)
	return s, NewAggregator(s, installationID, endpoints), nil
}
