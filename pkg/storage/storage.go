package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/levenlabs/go-lflag"
	"github.com/senecgrab/senecgrab/pkg/types"
)

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
)

// Database is where the portal credentials and installation come from.
type Database interface {
	// GetCredentials returns the credentials to log into the portal with.
	GetCredentials(ctx context.Context) (types.Credentials, error)

	// Lifecycle
	Close() error
}

// Configured sets up the settings provider based on flags.
func Configured() Database {
	provider := lflag.String("settings-provider", "file", "Where to read the SENEC credentials from (available: file, flags, firestore)")

	var p struct{ Database }

	file := configuredFile()
	flags := configuredFlags()
	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "file":
			if err := file.Validate(); err != nil {
				panic(fmt.Sprintf("options file validation failed: %v", err))
			}
			p.Database = file
		case "flags":
			if err := flags.Validate(); err != nil {
				panic(fmt.Sprintf("flag credentials validation failed: %v", err))
			}
			p.Database = flags
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		default:
			panic(fmt.Sprintf("unknown settings provider: %s", *provider))
		}
	})

	return &p
}
