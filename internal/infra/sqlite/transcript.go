// Package sqlite stores the chat transcript in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"voice-home/internal/domain"
)

// MemoryDSN keeps the transcript for the lifetime of the process only.
const MemoryDSN = ":memory:"

type Transcript struct {
	db *sql.DB
}

// Open opens or creates the transcript database. A file DSN has its parent
// directory created first.
func Open(dsn string) (*Transcript, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}
	if !isMemory(dsn) {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	t := &Transcript{db: db}
	if err := t.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return t, nil
}

func isMemory(dsn string) bool {
	return dsn == MemoryDSN || strings.Contains(dsn, "mode=memory")
}

func (t *Transcript) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		text TEXT NOT NULL,
		from_user INTEGER NOT NULL,
		kind TEXT NOT NULL,
		attachment_name TEXT,
		attachment_type TEXT,
		attachment_url TEXT,
		created_at INTEGER NOT NULL
	);
	`
	if _, err := t.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (t *Transcript) Append(ctx context.Context, msg domain.Message) error {
	var name, contentType, url sql.NullString
	if a := msg.Attachment; a != nil {
		name = sql.NullString{String: a.Name, Valid: true}
		contentType = sql.NullString{String: a.ContentType, Valid: a.ContentType != ""}
		url = sql.NullString{String: a.URL, Valid: a.URL != ""}
	}

	query := `
		INSERT INTO messages (id, text, from_user, kind, attachment_name, attachment_type, attachment_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := t.db.ExecContext(ctx, query,
		msg.ID, msg.Text, msg.FromUser, string(msg.Kind),
		name, contentType, url, msg.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// Recent returns the last limit messages, oldest first. A non-positive limit
// returns the whole transcript.
func (t *Transcript) Recent(ctx context.Context, limit int) ([]domain.Message, error) {
	query := `
		SELECT id, text, from_user, kind, attachment_name, attachment_type, attachment_url, created_at
		FROM (SELECT * FROM messages ORDER BY seq DESC LIMIT ?)
		ORDER BY seq ASC`
	if limit <= 0 {
		limit = -1
	}

	rows, err := t.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var (
			msg                    domain.Message
			kind                   string
			name, contentType, url sql.NullString
			createdAt              int64
		)
		if err := rows.Scan(&msg.ID, &msg.Text, &msg.FromUser, &kind, &name, &contentType, &url, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		msg.Kind = domain.MessageKind(kind)
		msg.Timestamp = time.UnixMilli(createdAt)
		if name.Valid {
			msg.Attachment = &domain.Attachment{Name: name.String, ContentType: contentType.String, URL: url.String}
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

func (t *Transcript) Count(ctx context.Context) (int, error) {
	var n int
	if err := t.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func (t *Transcript) Ping(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

func (t *Transcript) Close() error {
	return t.db.Close()
}
