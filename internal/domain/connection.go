package domain

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Rrens/sqlgate/internal/sqlguard"
)

// DatabaseType represents supported database types
type DatabaseType string

const (
	DatabaseTypePostgres DatabaseType = "postgres"
	DatabaseTypeMySQL    DatabaseType = "mysql"
	DatabaseTypeSQLite   DatabaseType = "sqlite"
)

// Dialect is the grammar queries for this database are validated with
func (t DatabaseType) Dialect() string {
	switch t {
	case DatabaseTypeMySQL:
		return sqlguard.DialectMySQL
	case DatabaseTypeSQLite:
		return sqlguard.DialectSQLite
	default:
		return sqlguard.DialectPostgres
	}
}

// Connection represents a registered target database
type Connection struct {
	ID                   uuid.UUID    `json:"id"`
	Name                 string       `json:"name"`
	DatabaseType         DatabaseType `json:"database_type"`
	Host                 string       `json:"host"`
	Port                 int          `json:"port"`
	Database             string       `json:"database"`
	Username             string       `json:"username"`
	CredentialsEncrypted []byte       `json:"-"`
	SSLMode              string       `json:"ssl_mode"`
	MaxRows              int64        `json:"max_rows"`
	TimeoutSeconds       int          `json:"timeout_seconds"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// ConnectionCreate represents connection creation data. For sqlite,
// Database is the file path and the network fields are ignored.
type ConnectionCreate struct {
	Name           string       `json:"name" validate:"required,max=255"`
	DatabaseType   DatabaseType `json:"database_type" validate:"required,oneof=postgres mysql sqlite"`
	Host           string       `json:"host" validate:"required_unless=DatabaseType sqlite,max=255"`
	Port           int          `json:"port" validate:"required_unless=DatabaseType sqlite,max=65535"`
	Database       string       `json:"database" validate:"required,max=1024"`
	Username       string       `json:"username" validate:"required_unless=DatabaseType sqlite,max=255"`
	Password       string       `json:"password"`
	SSLMode        string       `json:"ssl_mode" validate:"omitempty,oneof=disable require verify-ca verify-full"`
	MaxRows        int64        `json:"max_rows" validate:"omitempty,min=1"`
	TimeoutSeconds int          `json:"timeout_seconds" validate:"omitempty,min=1,max=300"`
}

// ConnectionUpdate represents connection update data
type ConnectionUpdate struct {
	Name           *string `json:"name,omitempty" validate:"omitempty,max=255"`
	Host           *string `json:"host,omitempty" validate:"omitempty,max=255"`
	Port           *int    `json:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	Database       *string `json:"database,omitempty" validate:"omitempty,max=1024"`
	Username       *string `json:"username,omitempty" validate:"omitempty,max=255"`
	Password       *string `json:"password,omitempty"`
	SSLMode        *string `json:"ssl_mode,omitempty" validate:"omitempty,oneof=disable require verify-ca verify-full"`
	MaxRows        *int64  `json:"max_rows,omitempty" validate:"omitempty,min=1"`
	TimeoutSeconds *int    `json:"timeout_seconds,omitempty" validate:"omitempty,min=1,max=300"`
}

// ConnectionInfo represents connection info without sensitive data
type ConnectionInfo struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	DatabaseType DatabaseType `json:"database_type"`
	Host         string       `json:"host,omitempty"`
	Port         int          `json:"port,omitempty"`
	Database     string       `json:"database"`
	Username     string       `json:"username,omitempty"`
	SSLMode      string       `json:"ssl_mode,omitempty"`
	MaxRows      int64        `json:"max_rows"`
	CreatedAt    time.Time    `json:"created_at"`
}

// ConnectionRepository defines the interface for connection storage
type ConnectionRepository interface {
	Create(ctx context.Context, conn *Connection) error
	GetByID(ctx context.Context, id uuid.UUID) (*Connection, error)
	List(ctx context.Context) ([]Connection, error)
	Update(ctx context.Context, id uuid.UUID, conn *Connection) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ToInfo converts Connection to ConnectionInfo (without sensitive data)
func (c *Connection) ToInfo() ConnectionInfo {
	return ConnectionInfo{
		ID:           c.ID,
		Name:         c.Name,
		DatabaseType: c.DatabaseType,
		Host:         c.Host,
		Port:         c.Port,
		Database:     c.Database,
		Username:     c.Username,
		SSLMode:      c.SSLMode,
		MaxRows:      c.MaxRows,
		CreatedAt:    c.CreatedAt,
	}
}
