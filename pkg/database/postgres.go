package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/grievance-api/pkg/config"
)

// NewPostgres returns a configured PostgreSQL client.
func NewPostgres(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// schema mirrors the collections of the remote data service. Comments and forward
// history live inside the grievance row so a snapshot is written by one statement.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS proctors (
		p_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		dept TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		usn TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		sem INTEGER NOT NULL CHECK (sem BETWEEN 1 AND 8),
		section TEXT NOT NULL,
		dept TEXT NOT NULL,
		p_id TEXT NOT NULL REFERENCES proctors (p_id)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		department TEXT NOT NULL DEFAULT '',
		email TEXT,
		usn TEXT,
		semester INTEGER,
		section TEXT,
		proctor_id TEXT,
		cluster_id TEXT,
		password_hash TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS grievances (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		student_name TEXT NOT NULL,
		student_usn TEXT NOT NULL,
		type TEXT NOT NULL,
		description TEXT NOT NULL,
		priority TEXT NOT NULL,
		status TEXT NOT NULL,
		submission_date TIMESTAMPTZ NOT NULL,
		last_updated TIMESTAMPTZ NOT NULL,
		current_handler TEXT NOT NULL,
		handler_role TEXT NOT NULL,
		comments JSONB NOT NULL DEFAULT '[]',
		forward_history JSONB NOT NULL DEFAULT '[]'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_grievances_current_handler ON grievances (current_handler)`,
	`CREATE INDEX IF NOT EXISTS idx_grievances_student_id ON grievances (student_id)`,
	`CREATE INDEX IF NOT EXISTS idx_students_p_id ON students (p_id)`,
}

// EnsureSchema creates the tables used by the postgres store when they are missing.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
