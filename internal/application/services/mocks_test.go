package services

import (
	"context"
	"testing"
	"time"

	"github.com/nexuscrm/forcemapper/internal/config"
	"github.com/nexuscrm/forcemapper/internal/domain/ports"
	"github.com/nexuscrm/forcemapper/internal/infrastructure/memstore"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"
)

// MockConnection implements ports.Connection
type MockConnection struct {
	mock.Mock
}

func (m *MockConnection) DescribeSObject(ctx context.Context, name string) (*ports.DescribeSObjectResult, error) {
	args := m.Called(ctx, name)
	result, _ := args.Get(0).(*ports.DescribeSObjectResult)
	return result, args.Error(1)
}

func (m *MockConnection) DescribeSObjects(ctx context.Context, names []string) ([]*ports.DescribeSObjectResult, error) {
	args := m.Called(ctx, names)
	results, _ := args.Get(0).([]*ports.DescribeSObjectResult)
	return results, args.Error(1)
}

func (m *MockConnection) Deploy(ctx context.Context, zipFile []byte, opts ports.DeployOptions) (*ports.AsyncResult, error) {
	args := m.Called(ctx, zipFile, opts)
	result, _ := args.Get(0).(*ports.AsyncResult)
	return result, args.Error(1)
}

func (m *MockConnection) CheckStatus(ctx context.Context, ids []string) ([]*ports.AsyncResult, error) {
	args := m.Called(ctx, ids)
	results, _ := args.Get(0).([]*ports.AsyncResult)
	return results, args.Error(1)
}

func (m *MockConnection) CheckDeployStatus(ctx context.Context, id string) (*ports.DeployResult, error) {
	args := m.Called(ctx, id)
	result, _ := args.Get(0).(*ports.DeployResult)
	return result, args.Error(1)
}

// testUnit is a persistence unit with a fast poll curve
func testUnit() config.PersistenceUnit {
	unit := config.Default()
	unit.PollInitial = time.Millisecond
	unit.PollMax = 5 * time.Millisecond
	return unit
}

// newTestHandler wires a handler to a fresh in-memory org
func newTestHandler(t *testing.T, unit config.PersistenceUnit) (*SchemaHandler, *memstore.Org) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	org := memstore.New(logger)
	return NewSchemaHandler(logger, unit, org), org
}
