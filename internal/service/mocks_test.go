package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/Rrens/sqlgate/internal/datasource"
	"github.com/Rrens/sqlgate/internal/domain"
	"github.com/Rrens/sqlgate/internal/llm"
	"github.com/Rrens/sqlgate/internal/sqlguard"
)

// MockConnectionRepository mocks the ConnectionRepository
type MockConnectionRepository struct {
	mock.Mock
}

func (m *MockConnectionRepository) Create(ctx context.Context, conn *domain.Connection) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

func (m *MockConnectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Connection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Connection), args.Error(1)
}

func (m *MockConnectionRepository) List(ctx context.Context) ([]domain.Connection, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Connection), args.Error(1)
}

func (m *MockConnectionRepository) Update(ctx context.Context, id uuid.UUID, conn *domain.Connection) error {
	args := m.Called(ctx, id, conn)
	return args.Error(0)
}

func (m *MockConnectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockHistoryRepository mocks the HistoryRepository
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Add(ctx context.Context, entry *domain.QueryHistory, keep int) error {
	args := m.Called(ctx, entry, keep)
	return args.Error(0)
}

func (m *MockHistoryRepository) ListByConnection(ctx context.Context, connectionID uuid.UUID, limit int) ([]domain.QueryHistory, error) {
	args := m.Called(ctx, connectionID, limit)
	return args.Get(0).([]domain.QueryHistory), args.Error(1)
}

// MockAdapterProvider mocks the datasource router
type MockAdapterProvider struct {
	mock.Mock
}

func (m *MockAdapterProvider) Supports(dbType domain.DatabaseType) bool {
	args := m.Called(dbType)
	return args.Bool(0)
}

func (m *MockAdapterProvider) Get(ctx context.Context, connectionID uuid.UUID, dbType domain.DatabaseType, config datasource.ConnectionConfig) (datasource.Adapter, error) {
	args := m.Called(ctx, connectionID, dbType, config)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(datasource.Adapter), args.Error(1)
}

func (m *MockAdapterProvider) Probe(ctx context.Context, dbType domain.DatabaseType, config datasource.ConnectionConfig) error {
	args := m.Called(ctx, dbType, config)
	return args.Error(0)
}

func (m *MockAdapterProvider) CloseConnection(connectionID uuid.UUID) error {
	args := m.Called(connectionID)
	return args.Error(0)
}

// MockAdapter mocks a connected datasource adapter
type MockAdapter struct {
	mock.Mock
}

func (m *MockAdapter) DatabaseType() domain.DatabaseType {
	args := m.Called()
	return args.Get(0).(domain.DatabaseType)
}

func (m *MockAdapter) PromptHints() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockAdapter) Connect(ctx context.Context, config datasource.ConnectionConfig) error {
	args := m.Called(ctx, config)
	return args.Error(0)
}

func (m *MockAdapter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockAdapter) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockAdapter) ListTables(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAdapter) DescribeTable(ctx context.Context, tableName string) (*domain.TableInfo, error) {
	args := m.Called(ctx, tableName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TableInfo), args.Error(1)
}

func (m *MockAdapter) SchemaDDL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockAdapter) Query(ctx context.Context, stmt sqlguard.Executable, opts datasource.QueryOptions) (*domain.QueryResult, error) {
	args := m.Called(ctx, stmt, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QueryResult), args.Error(1)
}

// MockSchemaCache mocks the redis schema cache
type MockSchemaCache struct {
	mock.Mock
}

func (m *MockSchemaCache) Get(ctx context.Context, connectionID uuid.UUID) (*domain.SchemaInfo, error) {
	args := m.Called(ctx, connectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SchemaInfo), args.Error(1)
}

func (m *MockSchemaCache) Set(ctx context.Context, connectionID uuid.UUID, schema *domain.SchemaInfo) error {
	args := m.Called(ctx, connectionID, schema)
	return args.Error(0)
}

func (m *MockSchemaCache) Invalidate(ctx context.Context, connectionID uuid.UUID) error {
	args := m.Called(ctx, connectionID)
	return args.Error(0)
}

func (m *MockSchemaCache) FlushAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockProvider mocks an LLM provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) AvailableModels() []string { return []string{"mock-1"} }

func (m *MockProvider) DefaultModel() string { return "mock-1" }

func (m *MockProvider) IsConfigured() bool { return true }

func (m *MockProvider) GenerateSQL(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	args := m.Called(ctx, req, model)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Response), args.Error(1)
}
