// Package database provides MySQL connection management for the load destination.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/dbsmedya/json2csv/internal/config"
)

// OpenFunc opens a database handle for a DSN.
type OpenFunc func(dsn string) (*sql.DB, error)

func openMySQL(dsn string) (*sql.DB, error) {
	return sql.Open("mysql", dsn)
}

// Manager handles the connection to the destination database.
type Manager struct {
	Destination *sql.DB
	config      *config.DatabaseConfig
	open        OpenFunc
	maxRetries  int
	backoff     time.Duration
}

// NewManager creates a new database manager from configuration.
func NewManager(cfg *config.DatabaseConfig) *Manager {
	return &Manager{
		config:     cfg,
		open:       openMySQL,
		maxRetries: 3,
		backoff:    time.Second,
	}
}

// SetOpener replaces the function used to open connections.
func (m *Manager) SetOpener(open OpenFunc) {
	if open != nil {
		m.open = open
	}
}

// SetRetry configures connection attempts and the initial backoff.
func (m *Manager) SetRetry(maxRetries int, backoff time.Duration) {
	if maxRetries > 0 {
		m.maxRetries = maxRetries
	}
	if backoff > 0 {
		m.backoff = backoff
	}
}

// Connect establishes the destination connection.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.config.Enabled {
		return fmt.Errorf("destination database is not enabled")
	}

	db, err := m.connectWithRetry(ctx, m.config)
	if err != nil {
		return fmt.Errorf("failed to connect to destination database: %w", err)
	}
	m.Destination = db
	return nil
}

// connectWithRetry attempts to connect with exponential backoff.
func (m *Manager) connectWithRetry(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	var err error
	backoff := m.backoff

	for i := 0; i < m.maxRetries; i++ {
		var db *sql.DB
		db, err = m.connect(cfg)
		if err == nil {
			pingErr := db.PingContext(ctx)
			if pingErr == nil {
				return db, nil
			}
			_ = db.Close()
			err = pingErr
		}

		if i < m.maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2 // Exponential backoff
			}
		}
	}

	return nil, fmt.Errorf("failed after %d retries: %w", m.maxRetries, err)
}

// connect creates a database connection.
func (m *Manager) connect(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := m.open(BuildDSN(cfg))
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(10 * time.Minute)

	return db, nil
}

// BuildDSN constructs a MySQL DSN from configuration.
func BuildDSN(cfg *config.DatabaseConfig) string {
	// Format: user:password@tcp(host:port)/database?params
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
	)

	if cfg.Database != "" {
		dsn += cfg.Database
	}

	// Cells are stored as utf8mb4 TEXT
	params := "?charset=utf8mb4&parseTime=true"
	switch cfg.TLS {
	case "disable":
		params += "&tls=false"
	case "required":
		params += "&tls=true"
	case "preferred", "":
		params += "&tls=preferred"
	}

	return dsn + params
}

// Close closes the destination connection.
func (m *Manager) Close() error {
	if m.Destination == nil {
		return nil
	}
	if err := m.Destination.Close(); err != nil {
		return fmt.Errorf("destination close: %w", err)
	}
	return nil
}
