package controller

import (
	"context"
	"log/slog"

	"github.com/senecgrab/senecgrab/pkg/log"
	"github.com/senecgrab/senecgrab/pkg/types"
	"github.com/stretchr/testify/mock"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}

type mockSession struct {
	mock.Mock
	authenticated bool
}

func (m *mockSession) EnsureAuthenticated(ctx context.Context, creds types.Credentials) error {
	if m.authenticated {
		return nil
	}
	args := m.Called(ctx, creds)
	err := args.Error(0)
	m.authenticated = err == nil
	return err
}

func (m *mockSession) IsAuthenticated() bool {
	return m.authenticated
}

type mockStats struct {
	mock.Mock
	session *mockSession
}

func (m *mockStats) Refresh(ctx context.Context) (types.Buckets, error) {
	args := m.Called(ctx)
	err := args.Error(1)
	if err != nil {
		// the real aggregator invalidates the session on failure
		m.session.authenticated = false
	}
	return args.Get(0).(types.Buckets), err
}
