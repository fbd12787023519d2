package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/levenlabs/go-lflag"
	"github.com/senecgrab/senecgrab/pkg/types"
)

// FileProvider reads credentials from the options file Home Assistant writes
// for add-ons.
type FileProvider struct {
	path string
}

// addonOptions are the keys the add-on configuration UI uses.
type addonOptions struct {
	Username string `json:"SENEC_USERNAME"`
	Password string `json:"SENEC_PASSWORD"`
	// the UI stores the number as either a string or a number
	InstallationID json.RawMessage `json:"SENEC_ANLAGENUMMER"`
}

func configuredFile() *FileProvider {
	path := lflag.String("options-file", "/data/options.json", "Path of the add-on options JSON file")

	f := &FileProvider{}
	lflag.Do(func() {
		f.path = *path
	})
	return f
}

// NewFileProvider returns a FileProvider reading path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// Validate checks if the provider is properly configured.
func (f *FileProvider) Validate() error {
	if f.path == "" {
		return errors.New("options-file is required")
	}
	return nil
}

// GetCredentials reads the options file. The file is read on every call so
// edits are picked up without a restart.
func (f *FileProvider) GetCredentials(ctx context.Context) (types.Credentials, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.Credentials{}, fmt.Errorf("%w: %s does not exist", ErrCredentialsNotFound, f.path)
		}
		return types.Credentials{}, fmt.Errorf("failed to read options file: %w", err)
	}

	var opts addonOptions
	if err := json.Unmarshal(b, &opts); err != nil {
		return types.Credentials{}, fmt.Errorf("failed to decode options file %s: %w", f.path, err)
	}

	id, err := decodeInstallationID(opts.InstallationID)
	if err != nil {
		return types.Credentials{}, fmt.Errorf("invalid SENEC_ANLAGENUMMER in %s: %w", f.path, err)
	}

	creds := types.Credentials{
		Username:       strings.TrimSpace(opts.Username),
		Password:       opts.Password,
		InstallationID: id,
	}
	if err := creds.Validate(); err != nil {
		return types.Credentials{}, fmt.Errorf("incomplete options file %s: %w", f.path, err)
	}
	return creds, nil
}

func decodeInstallationID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// Close implements Database.
func (f *FileProvider) Close() error {
	return nil
}
