package storagemock

import (
	"context"

	"github.com/senecgrab/senecgrab/pkg/storage"
	"github.com/senecgrab/senecgrab/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetCredentials(ctx context.Context) (types.Credentials, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.Credentials), args.Error(1)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
