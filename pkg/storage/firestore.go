package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"github.com/senecgrab/senecgrab/pkg/log"
	"github.com/senecgrab/senecgrab/pkg/types"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	firestoreCollection = "config"
	firestoreDocument   = "senec"
)

// FirestoreProvider reads credentials from the config/senec document in
// Google Cloud Firestore.
type FirestoreProvider struct {
	client          *firestore.Client
	projectID       string
	database        string
	credentialsFile string
}

type firestoreCredentials struct {
	Username       string `firestore:"username"`
	Password       string `firestore:"password"`
	InstallationID string `firestore:"installationID"`
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")
	credentialsFile := lflag.String("firestore-credentials-file", "", "Service account JSON file for Firestore (defaults to application default credentials)")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database
		f.credentialsFile = *credentialsFile

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// ConfiguredFirestore registers the Firestore flags and returns a provider
// that still needs Init. It is for tools that always talk to Firestore.
func ConfiguredFirestore() *FirestoreProvider {
	return configuredFirestore()
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	if f.credentialsFile != "" {
		if _, err := os.Stat(f.credentialsFile); err != nil {
			return fmt.Errorf("firestore-credentials-file: %w", err)
		}
	}
	// Project ID can be empty if it's inferred.
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	var opts []option.ClientOption
	if f.credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(f.credentialsFile))
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database, opts...)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// GetCredentials reads the config/senec document.
func (f *FirestoreProvider) GetCredentials(ctx context.Context) (types.Credentials, error) {
	doc, err := f.client.Collection(firestoreCollection).Doc(firestoreDocument).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.Credentials{}, fmt.Errorf("%w: firestore document %s/%s", ErrCredentialsNotFound, firestoreCollection, firestoreDocument)
		}
		return types.Credentials{}, fmt.Errorf("failed to fetch credentials doc: %w", err)
	}

	var fc firestoreCredentials
	if err := doc.DataTo(&fc); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "credentials doc has unexpected fields", slog.Any("error", err))
		return types.Credentials{}, fmt.Errorf("failed to decode credentials doc: %w", err)
	}
	creds := types.Credentials{
		Username:       fc.Username,
		Password:       fc.Password,
		InstallationID: fc.InstallationID,
	}
	if err := creds.Validate(); err != nil {
		return types.Credentials{}, fmt.Errorf("incomplete credentials doc: %w", err)
	}
	return creds, nil
}

// SetCredentials writes the config/senec document.
func (f *FirestoreProvider) SetCredentials(ctx context.Context, creds types.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	_, err := f.client.Collection(firestoreCollection).Doc(firestoreDocument).Set(ctx, firestoreCredentials{
		Username:       creds.Username,
		Password:       creds.Password,
		InstallationID: creds.InstallationID,
	})
	if err != nil {
		return fmt.Errorf("failed to write credentials doc: %w", err)
	}
	return nil
}
