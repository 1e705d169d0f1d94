package postgres

import (
	"context"
	"errors"
	"fmt"

	"medmind-api/internal/config"
	"medmind-api/internal/logger"
	"medmind-api/internal/repository/db"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Ensure PostgresDB implements db.Database interface
var _ db.Database = (*PostgresDB)(nil)

const uniqueViolation = "23505"

// PostgresDB implements the db.Database interface
type PostgresDB struct {
	conn *sqlx.DB
}

// NewPostgresDB opens a connection pool and applies pending migrations
func NewPostgresDB(dbConfig config.DatabaseConfig) (*PostgresDB, error) {
	p, err := Connect(dbConfig)
	if err != nil {
		return nil, err
	}

	if err = p.RunMigrations(dbConfig.MigrationsPath); err != nil {
		p.Close()
		return nil, fmt.Errorf("error running migrations: %w", err)
	}

	logger.Log.Info("Migrations completed successfully")

	return p, nil
}

// Connect opens a connection pool without touching the schema
func Connect(dbConfig config.DatabaseConfig) (*PostgresDB, error) {
	logger.Log.WithField("host", dbConfig.Host).Info("Connecting to PostgreSQL")

	conn, err := sqlx.Open("postgres", dbConfig.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err = conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	logger.Log.Info("Successfully connected to PostgreSQL")

	return &PostgresDB{conn: conn}, nil
}

// Close closes the database connection
func (p *PostgresDB) Close() error {
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// RunMigrations applies every pending migration found at sourceURL
func (p *PostgresDB) RunMigrations(sourceURL string) error {
	driver, err := postgres.WithInstance(p.conn.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("error creating migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return fmt.Errorf("error creating migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error running migrations: %w", err)
	}

	logger.Log.WithField("source", sourceURL).Info("Database migrations applied successfully")
	return nil
}

// withTx runs fn inside a transaction, rolling back on error or panic
func (p *PostgresDB) withTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := p.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx failed: %w, unable to rollback: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// validID reports whether id can be compared against a UUID column
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
