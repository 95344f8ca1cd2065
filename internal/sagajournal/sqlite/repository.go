// Package sqlite provides a SQLite-backed implementation of
// sagajournal.Repository.
//
// WAL mode is enabled on Open so readers never block the saga goroutine that
// is writing transitions while a status request reads the same saga.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/orderappu/recon-api/internal/sagajournal"

	// Pure-Go SQLite driver; no CGO, so the binary stays trivially
	// cross-compilable.
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS recon_journal (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    saga_id     TEXT NOT NULL,
    status      TEXT NOT NULL,
    step        TEXT NOT NULL DEFAULT '',
    payload     TEXT,
    errors      TEXT NOT NULL DEFAULT '[]',
    created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_recon_journal_saga ON recon_journal(saga_id, id);
`

type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the journal database and applies the schema.
func Open(path string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("sqlite: create dir for %q: %w", path, err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error { return r.db.Close() }

func (r *Repository) Append(ctx context.Context, e *sagajournal.Entry) error {
	const q = `
		INSERT INTO recon_journal (saga_id, status, step, payload, errors, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		e.SagaID,
		string(e.Status),
		e.Step,
		nullableString(e.Payload),
		e.Errors,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: append journal for %q: %w", e.SagaID, err)
	}
	return nil
}

func (r *Repository) Latest(ctx context.Context, sagaID string) (*sagajournal.Entry, bool, error) {
	const q = `
		SELECT saga_id, status, step, COALESCE(payload,''), errors, created_at
		FROM   recon_journal
		WHERE  saga_id = ?
		ORDER  BY id DESC
		LIMIT  1`

	e, err := scanEntry(r.db.QueryRowContext(ctx, q, sagaID))
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: latest for %q: %w", sagaID, err)
	}
	return e, true, nil
}

// InFlight finds sagas whose last row is non-terminal and returns every row
// for each, oldest first.
func (r *Repository) InFlight(ctx context.Context) (map[string][]sagajournal.Entry, error) {
	const q = `
		SELECT j.saga_id, j.status, j.step, COALESCE(j.payload,''), j.errors, j.created_at
		FROM   recon_journal j
		JOIN (
		    SELECT saga_id, MAX(id) AS last_id
		    FROM recon_journal
		    GROUP BY saga_id
		) heads ON heads.saga_id = j.saga_id
		JOIN recon_journal tail ON tail.id = heads.last_id
		WHERE tail.status NOT IN ('COMPLETED','COMPENSATED','FAILED')
		ORDER BY j.saga_id, j.id`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlite: in-flight scan: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]sagajournal.Entry)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: in-flight scan: %w", err)
		}
		out[e.SagaID] = append(out[e.SagaID], *e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*sagajournal.Entry, error) {
	var e sagajournal.Entry
	var createdAt string
	if err := row.Scan(&e.SagaID, &e.Status, &e.Step, &e.Payload, &e.Errors, &createdAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse time %q: %w", createdAt, err)
	}
	e.CreatedAt = t
	return &e, nil
}

// nullableString returns nil for empty strings so SQLite stores NULL instead
// of empty TEXT on non-STARTED rows.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ sagajournal.Repository = (*Repository)(nil)
