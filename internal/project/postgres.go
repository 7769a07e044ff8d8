package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	playerrors "github.com/jscyril/multitrack/pkg/errors"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	document   JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

// PostgresStore keeps projects as JSONB documents in PostgreSQL
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres connects to databaseURL and creates the projects table
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create projects table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Save upserts p
func (s *PostgresStore) Save(ctx context.Context, p *Project) error {
	p.UpdatedAt = time.Now()
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO projects (id, name, document, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`,
		p.ID, p.Name, doc, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save project %s: %w", p.ID, err)
	}
	return nil
}

// Load reads the project with id
func (s *PostgresStore) Load(ctx context.Context, id string) (*Project, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT document FROM projects WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, playerrors.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", id, err)
	}
	var p Project
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("parse project %s: %w", id, err)
	}
	return &p, nil
}

// List returns every project, most recently updated first
func (s *PostgresStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, jsonb_array_length(document->'tracks'), updated_at
		FROM projects ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Tracks, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes the project with id
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return playerrors.ErrProjectNotFound
	}
	return nil
}
