package ess

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/senecgrab/senecgrab/pkg/log"
	"github.com/senecgrab/senecgrab/pkg/types"
)

// Session is a cookie backed login to the SENEC portal. The portal has no API
// tokens; logging in means walking its keycloak login page like a browser
// would and keeping whatever cookies that leaves behind.
//
// A Session only moves from unauthenticated to authenticated in Authenticate.
// The way back is Invalidate, which the Aggregator calls when a request shows
// the login is gone.
type Session struct {
	client        *http.Client
	authURL       string
	authenticated bool
}

// NewSession returns an unauthenticated Session. client should have a cookie
// jar, see common.CookieClient.
func NewSession(client *http.Client, authURL string) *Session {
	return &Session{
		client:  client,
		authURL: authURL,
	}
}

// IsAuthenticated returns true after a successful Authenticate until the
// session is invalidated.
func (s *Session) IsAuthenticated() bool {
	return s.authenticated
}

// Invalidate marks the session as logged out.
func (s *Session) Invalidate() {
	s.authenticated = false
}

// EnsureAuthenticated logs in unless the session is already authenticated.
func (s *Session) EnsureAuthenticated(ctx context.Context, creds types.Credentials) error {
	if s.authenticated {
		return nil
	}
	return s.Authenticate(ctx, creds)
}

// Authenticate logs into the portal. It loads the OAuth2 authorization URL,
// which redirects to the SSO login page, finds the login form on that page and
// submits the username and password to it. Nothing is retried here.
func (s *Session) Authenticate(ctx context.Context, creds types.Credentials) error {
	s.authenticated = false

	if err := creds.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	log.Ctx(ctx).DebugContext(ctx, "logging in to senec", slog.Any("creds", creds))

	action, err := s.loadLoginForm(ctx)
	if err != nil {
		return err
	}

	data := url.Values{}
	data.Set("username", creds.Username)
	data.Set("password", creds.Password)
	req, err := http.NewRequestWithContext(ctx, "POST", action.String(), strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: login post failed: %w", ErrTransport, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		log.Ctx(ctx).WarnContext(ctx, "senec login failed", slog.Int("status", resp.StatusCode))
		return &StatusError{
			Kind:       ErrAuthentication,
			Op:         "POST",
			URL:        action.Redacted(),
			StatusCode: resp.StatusCode,
		}
	}

	s.authenticated = true
	log.Ctx(ctx).InfoContext(ctx, "senec login successful", slog.String("username", creds.Username))
	return nil
}

// loadLoginForm follows the authorization URL to the login page and returns
// the absolute URL the login form posts to.
func (s *Session) loadLoginForm(ctx context.Context) (*url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.authURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load authorization url: %w", ErrTransport, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		log.Ctx(ctx).WarnContext(ctx, "failed to load senec authorization url", slog.Int("status", resp.StatusCode))
		return nil, &StatusError{
			Kind:       ErrTransport,
			Op:         "GET",
			URL:        s.authURL,
			StatusCode: resp.StatusCode,
		}
	}

	action, err := FindFormAction(resp.Body, loginFormID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "senec login page changed", slog.Any("error", err))
		return nil, err
	}

	// the action is usually absolute but resolve it against wherever the
	// redirects left us in case it isn't
	u, err := resp.Request.URL.Parse(action)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid form action %q: %w", ErrFormNotFound, action, err)
	}
	return u, nil
}

// drain reads the rest of the body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
