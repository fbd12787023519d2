package storage

import (
	"context"

	"github.com/levenlabs/go-lflag"
	"github.com/senecgrab/senecgrab/pkg/types"
)

// FlagProvider serves credentials given on the command line.
type FlagProvider struct {
	creds types.Credentials
}

func configuredFlags() *FlagProvider {
	username := lflag.String("senec-username", "", "SENEC portal username (settings-provider=flags)")
	password := lflag.String("senec-password", "", "SENEC portal password (settings-provider=flags)")
	installationID := lflag.String("senec-installation-id", "", "SENEC installation number (settings-provider=flags)")

	f := &FlagProvider{}
	lflag.Do(func() {
		f.creds = types.Credentials{
			Username:       *username,
			Password:       *password,
			InstallationID: *installationID,
		}
	})
	return f
}

// Validate checks that all credentials were given.
func (f *FlagProvider) Validate() error {
	return f.creds.Validate()
}

// GetCredentials implements Database.
func (f *FlagProvider) GetCredentials(ctx context.Context) (types.Credentials, error) {
	return f.creds, nil
}

// Close implements Database.
func (f *FlagProvider) Close() error {
	return nil
}
