package ess

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport means a request before login could not be completed or
	// returned a non-200 status.
	ErrTransport = errors.New("senec transport error")

	// ErrAuthentication means the login form was rejected.
	ErrAuthentication = errors.New("senec authentication failed")

	// ErrSessionExpired means a request that needs a login returned a non-200
	// status after we had logged in.
	ErrSessionExpired = errors.New("senec session expired")

	// ErrMalformedResponse means a body didn't have the expected shape.
	ErrMalformedResponse = errors.New("senec malformed response")

	// ErrFormNotFound means the login page had no usable login form. Logging in
	// can't succeed until the portal markup changes back, so it counts as an
	// authentication failure as well as a malformed response.
	ErrFormNotFound = fmt.Errorf("%w: %w: login form not found", ErrAuthentication, ErrMalformedResponse)

	// ErrNotAuthenticated is returned by Refresh when called before logging in.
	ErrNotAuthenticated = errors.New("senec session not authenticated")
)

// StatusError is an unexpected HTTP status from the portal. It unwraps to the
// error category it was classified as.
type StatusError struct {
	Kind       error
	Op         string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s %s returned status %d", e.Kind, e.Op, e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return e.Kind
}
