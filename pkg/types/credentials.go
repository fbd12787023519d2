package types

import (
	"errors"
	"fmt"
	"log/slog"
)

// Credentials are the portal login and the installation ("Anlage") to read.
type Credentials struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	InstallationID string `json:"installationID"`
}

// Validate ensures every field is filled in.
func (c Credentials) Validate() error {
	if c.Username == "" {
		return errors.New("missing username")
	}
	if c.Password == "" {
		return errors.New("missing password")
	}
	if c.InstallationID == "" {
		return errors.New("missing installation id")
	}
	return nil
}

// String omits the password so credentials can't leak through %v.
func (c Credentials) String() string {
	return fmt.Sprintf("{username:%s installation:%s}", c.Username, c.InstallationID)
}

// GoString omits the password so credentials can't leak through %#v.
func (c Credentials) GoString() string {
	return fmt.Sprintf("types.Credentials{Username:%q, InstallationID:%q}", c.Username, c.InstallationID)
}

// LogValue implements slog.LogValuer and never includes the password.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.String("installationID", c.InstallationID),
	)
}
