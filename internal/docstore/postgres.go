package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Postgres stores one JSONB document per aggregate in a single table.
type Postgres struct {
	db    *sql.DB
	clock func() time.Time
}

// PostgresOption configures a Postgres store.
type PostgresOption func(*Postgres)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) PostgresOption {
	return func(p *Postgres) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// NewPostgres constructs a Postgres-backed document store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *Postgres {
	p := &Postgres{db: db, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// EnsureSchema creates the documents table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			doc        JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (collection, id)
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure documents schema: %w", err)
	}
	return nil
}

func (p *Postgres) Save(ctx context.Context, collection, id string, doc []byte) error {
	query := `
		INSERT INTO documents (collection, id, doc, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (collection, id) DO UPDATE SET
			doc = EXCLUDED.doc,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := p.db.ExecContext(ctx, query, collection, id, doc, p.clock()); err != nil {
		return fmt.Errorf("save document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, collection, id string) ([]byte, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND id = $2`, collection, id,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get document %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	if _, err := p.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id,
	); err != nil {
		return fmt.Errorf("delete document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context, collection string) (map[string][]byte, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, doc FROM documents WHERE collection = $1`, collection,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents %s: %w", collection, err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		out[id] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents %s: %w", collection, err)
	}
	return out, nil
}
