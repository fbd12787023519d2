package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/levenlabs/go-lflag"
	"github.com/senecgrab/senecgrab/pkg/log"
	"github.com/senecgrab/senecgrab/pkg/storage"
	"github.com/senecgrab/senecgrab/pkg/types"
)

// seed writes the SENEC credentials into Firestore for settings-provider=firestore.
func main() {
	fs := storage.ConfiguredFirestore()
	username := lflag.RequiredString("senec-username", "SENEC portal username")
	password := lflag.RequiredString("senec-password", "SENEC portal password")
	installationID := lflag.RequiredString("senec-installation-id", "SENEC installation number")
	lflag.Configure()

	ctx := context.Background()

	if err := fs.Validate(); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "invalid firestore configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if err := fs.Init(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to connect to firestore", slog.Any("error", err))
		os.Exit(1)
	}
	defer fs.Close()

	creds := types.Credentials{
		Username:       *username,
		Password:       *password,
		InstallationID: *installationID,
	}
	if err := fs.SetCredentials(ctx, creds); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed credentials", slog.Any("error", err))
		fs.Close()
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "seeded credentials", slog.Any("creds", creds))
}
