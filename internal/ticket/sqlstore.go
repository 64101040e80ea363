package ticket

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/tursodatabase/go-libsql"
)

const schema = `
CREATE TABLE IF NOT EXISTS tickets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	acceptance_criteria TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// SQLStore persists tickets in a libsql database, either a local file
// (file: URL) or a remote instance (url + auth token).
type SQLStore struct {
	db *sql.DB
}

// OpenSQL connects to the database, verifies the connection, and ensures
// the tickets table exists.
func OpenSQL(url, authToken string) (*SQLStore, error) {
	connStr := url
	if authToken != "" {
		connStr = url + "?authToken=" + authToken
	}
	db, err := sql.Open("libsql", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Remote libsql aggressively closes idle streams; keep the pool small
	// and connections fresh.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(0)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tickets table: %w", err)
	}

	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Create(ctx context.Context, t Ticket) (Ticket, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tickets (title, description, acceptance_criteria, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.Title, t.Description, t.AcceptanceCriteria, now, now)
	if err != nil {
		return Ticket{}, fmt.Errorf("insert ticket: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Ticket{}, fmt.Errorf("ticket id: %w", err)
	}
	t.ID = id
	t.CreatedAt = now
	t.UpdatedAt = now
	return t, nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (Ticket, error) {
	var t Ticket
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, acceptance_criteria, created_at, updated_at
		 FROM tickets WHERE id = ?`, id).
		Scan(&t.ID, &t.Title, &t.Description, &t.AcceptanceCriteria, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Ticket{}, ErrNotFound
	}
	if err != nil {
		return Ticket{}, fmt.Errorf("select ticket %d: %w", id, err)
	}
	return t, nil
}
