package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/sqlgate/internal/domain"
	"github.com/Rrens/sqlgate/internal/security"
	"github.com/Rrens/sqlgate/internal/sqlguard"
)

type fixture struct {
	connRepo    *MockConnectionRepository
	historyRepo *MockHistoryRepository
	adapters    *MockAdapterProvider
	adapter     *MockAdapter
	encryptor   *security.Encryptor

	engine      *sqlguard.Engine
	connections *ConnectionService
	queries     *QueryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	key, err := security.GenerateKey()
	require.NoError(t, err)
	encryptor, err := security.NewEncryptor(key)
	require.NoError(t, err)

	engine, err := sqlguard.NewEngine(sqlguard.Config{})
	require.NoError(t, err)

	f := &fixture{
		connRepo:    new(MockConnectionRepository),
		historyRepo: new(MockHistoryRepository),
		adapters:    new(MockAdapterProvider),
		adapter:     new(MockAdapter),
		encryptor:   encryptor,
		engine:      engine,
	}
	f.connections = NewConnectionService(f.connRepo, f.adapters, encryptor, engine.Ceiling(), 30*time.Second)
	f.queries = NewQueryService(engine, f.connections, f.historyRepo, QueryConfig{
		MaxSQLBytes:  1024,
		HistoryLimit: 50,
		Timeout:      30 * time.Second,
	})
	return f
}

// connection stores a connection in the mocked repository
func (f *fixture) connection(t *testing.T, dbType domain.DatabaseType, maxRows int64) *domain.Connection {
	t.Helper()

	creds, err := f.encryptor.Encrypt([]byte("s3cret"))
	require.NoError(t, err)

	conn := &domain.Connection{
		ID:                   uuid.New(),
		Name:                 "analytics",
		DatabaseType:         dbType,
		Host:                 "db.internal",
		Port:                 5432,
		Database:             "shop",
		Username:             "reader",
		CredentialsEncrypted: creds,
		SSLMode:              "disable",
		MaxRows:              maxRows,
		TimeoutSeconds:       10,
	}
	f.connRepo.On("GetByID", mock.Anything, conn.ID).Return(conn, nil)
	return conn
}
