package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
)

// Postgres persists audit events in a single append-only table.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the audit table if it does not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			id         UUID PRIMARY KEY,
			ts         TIMESTAMPTZ NOT NULL,
			action     TEXT NOT NULL,
			actor      TEXT NOT NULL,
			subject    TEXT NOT NULL,
			detail     JSONB
		);
		CREATE INDEX IF NOT EXISTS audit_events_subject_idx ON audit_events (subject, ts DESC);
	`)
	if err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *Postgres) Append(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	detail, err := json.Marshal(event.Detail)
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO audit_events (id, ts, action, actor, subject, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, event.ID, event.Timestamp, event.Action, event.Actor.String(), event.Subject, detail)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Postgres) ListBySubject(ctx context.Context, subject string) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, ts, action, actor, subject, detail
		FROM audit_events
		WHERE subject = $1
		ORDER BY ts DESC
	`, subject)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Postgres) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, ts, action, actor, subject, detail
		FROM audit_events
		ORDER BY ts DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEvents(rows pgxRows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var (
			event  Event
			actor  string
			detail []byte
		)
		if err := rows.Scan(&event.ID, &event.Timestamp, &event.Action, &actor, &event.Subject, &detail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Actor = domain.UserID(actor)
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &event.Detail); err != nil {
				return nil, fmt.Errorf("decode audit detail: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
