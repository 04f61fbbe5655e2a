package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/sqlgate/internal/datasource"
	"github.com/Rrens/sqlgate/internal/domain"
	"github.com/Rrens/sqlgate/internal/security"
)

// AdapterProvider hands out connected datasource adapters
type AdapterProvider interface {
	Supports(dbType domain.DatabaseType) bool
	Get(ctx context.Context, connectionID uuid.UUID, dbType domain.DatabaseType, config datasource.ConnectionConfig) (datasource.Adapter, error)
	Probe(ctx context.Context, dbType domain.DatabaseType, config datasource.ConnectionConfig) error
	CloseConnection(connectionID uuid.UUID) error
}

// ConnectionService handles registered target database operations
type ConnectionService struct {
	connectionRepo domain.ConnectionRepository
	adapters       AdapterProvider
	encryptor      *security.Encryptor
	ceiling        int64
	defaultTimeout int
}

// NewConnectionService creates a new connection service. ceiling is the
// engine's row ceiling; no connection may be configured above it.
func NewConnectionService(
	connectionRepo domain.ConnectionRepository,
	adapters AdapterProvider,
	encryptor *security.Encryptor,
	ceiling int64,
	defaultTimeout time.Duration,
) *ConnectionService {
	return &ConnectionService{
		connectionRepo: connectionRepo,
		adapters:       adapters,
		encryptor:      encryptor,
		ceiling:        ceiling,
		defaultTimeout: int(defaultTimeout.Seconds()),
	}
}

func (s *ConnectionService) maxRows(requested int64) int64 {
	if requested <= 0 || requested > s.ceiling {
		return s.ceiling
	}
	return requested
}

// Create registers a new target database
func (s *ConnectionService) Create(ctx context.Context, input domain.ConnectionCreate) (*domain.ConnectionInfo, error) {
	if !s.adapters.Supports(input.DatabaseType) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedDatabase, input.DatabaseType)
	}

	encryptedCreds, err := s.encryptor.Encrypt([]byte(input.Password))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	timeout := input.TimeoutSeconds
	if timeout == 0 {
		timeout = s.defaultTimeout
	}
	sslMode := input.SSLMode
	if sslMode == "" && input.DatabaseType != domain.DatabaseTypeSQLite {
		sslMode = "disable"
	}

	now := time.Now().UTC()
	conn := &domain.Connection{
		ID:                   uuid.New(),
		Name:                 input.Name,
		DatabaseType:         input.DatabaseType,
		Host:                 input.Host,
		Port:                 input.Port,
		Database:             input.Database,
		Username:             input.Username,
		CredentialsEncrypted: encryptedCreds,
		SSLMode:              sslMode,
		MaxRows:              s.maxRows(input.MaxRows),
		TimeoutSeconds:       timeout,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.connectionRepo.Create(ctx, conn); err != nil {
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}

	log.Info().
		Str("connection_id", conn.ID.String()).
		Str("database_type", string(conn.DatabaseType)).
		Int64("max_rows", conn.MaxRows).
		Msg("connection registered")

	info := conn.ToInfo()
	return &info, nil
}

// Get retrieves a connection without credentials
func (s *ConnectionService) Get(ctx context.Context, connectionID uuid.UUID) (*domain.ConnectionInfo, error) {
	conn, err := s.connectionRepo.GetByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	info := conn.ToInfo()
	return &info, nil
}

// GetFull retrieves a connection together with its decrypted password
func (s *ConnectionService) GetFull(ctx context.Context, connectionID uuid.UUID) (*domain.Connection, string, error) {
	conn, err := s.connectionRepo.GetByID(ctx, connectionID)
	if err != nil {
		return nil, "", err
	}

	password, err := s.encryptor.Decrypt(conn.CredentialsEncrypted)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	return conn, string(password), nil
}

// Adapter returns the connected adapter for a registered connection
func (s *ConnectionService) Adapter(ctx context.Context, connectionID uuid.UUID) (*domain.Connection, datasource.Adapter, error) {
	conn, password, err := s.GetFull(ctx, connectionID)
	if err != nil {
		return nil, nil, err
	}

	adapter, err := s.adapters.Get(ctx, conn.ID, conn.DatabaseType, adapterConfig(conn, password))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get database adapter: %w", err)
	}
	return conn, adapter, nil
}

// List retrieves all connections without credentials
func (s *ConnectionService) List(ctx context.Context) ([]domain.ConnectionInfo, error) {
	connections, err := s.connectionRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}

	infos := make([]domain.ConnectionInfo, len(connections))
	for i, conn := range connections {
		infos[i] = conn.ToInfo()
	}
	return infos, nil
}

// Update updates a connection and drops its pooled adapter
func (s *ConnectionService) Update(ctx context.Context, connectionID uuid.UUID, input domain.ConnectionUpdate) (*domain.ConnectionInfo, error) {
	conn, err := s.connectionRepo.GetByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		conn.Name = *input.Name
	}
	if input.Host != nil {
		conn.Host = *input.Host
	}
	if input.Port != nil {
		conn.Port = *input.Port
	}
	if input.Database != nil {
		conn.Database = *input.Database
	}
	if input.Username != nil {
		conn.Username = *input.Username
	}
	if input.Password != nil {
		encryptedCreds, err := s.encryptor.Encrypt([]byte(*input.Password))
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt credentials: %w", err)
		}
		conn.CredentialsEncrypted = encryptedCreds
	}
	if input.SSLMode != nil {
		conn.SSLMode = *input.SSLMode
	}
	if input.MaxRows != nil {
		conn.MaxRows = s.maxRows(*input.MaxRows)
	}
	if input.TimeoutSeconds != nil {
		conn.TimeoutSeconds = *input.TimeoutSeconds
	}

	if err := s.connectionRepo.Update(ctx, connectionID, conn); err != nil {
		return nil, fmt.Errorf("failed to update connection: %w", err)
	}
	s.closeAdapter(connectionID)

	info := conn.ToInfo()
	return &info, nil
}

// Delete deletes a connection and its history
func (s *ConnectionService) Delete(ctx context.Context, connectionID uuid.UUID) error {
	if err := s.connectionRepo.Delete(ctx, connectionID); err != nil {
		return err
	}
	s.closeAdapter(connectionID)
	return nil
}

// Test connects to a registered database with a fresh adapter
func (s *ConnectionService) Test(ctx context.Context, connectionID uuid.UUID) error {
	conn, password, err := s.GetFull(ctx, connectionID)
	if err != nil {
		return err
	}
	return s.adapters.Probe(ctx, conn.DatabaseType, adapterConfig(conn, password))
}

func (s *ConnectionService) closeAdapter(connectionID uuid.UUID) {
	if err := s.adapters.CloseConnection(connectionID); err != nil {
		log.Warn().Err(err).Str("connection_id", connectionID.String()).Msg("failed to close datasource connection")
	}
}

func adapterConfig(conn *domain.Connection, password string) datasource.ConnectionConfig {
	return datasource.ConnectionConfig{
		Host:     conn.Host,
		Port:     conn.Port,
		Database: conn.Database,
		Username: conn.Username,
		Password: password,
		SSLMode:  conn.SSLMode,
	}
}
