package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Aswinikumar555/ai-customer-support/internal/domain"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// SQLStore implements ConversationStore on database/sql for SQLite and PostgreSQL.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// Open connects to the database, verifies it is reachable and applies migrations.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if driver == DriverSQLite && (dsn == ":memory:" || strings.Contains(dsn, "mode=memory")) {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLStore{db: db, driver: driver}
	if err := store.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// NewSQLiteStore creates a migrated SQLite store.
func NewSQLiteStore(dsn string) (*SQLStore, error) {
	return Open(context.Background(), DriverSQLite, dsn)
}

// Ping checks that the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &domain.StorageError{Op: "ping", Err: err}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Create inserts a new conversation.
func (s *SQLStore) Create(ctx context.Context, c *domain.Conversation) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	messages, err := encodeMessages(c.Messages)
	if err != nil {
		return "", &domain.StorageError{Op: "create", Err: err}
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO conversations (id, owner_id, title, messages, message_count, created_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)
	`), c.ID, c.OwnerID, c.Title, messages, len(c.Messages), toUnix(c.CreatedAt), toUnix(c.UpdatedAt))
	if err != nil {
		return "", &domain.StorageError{Op: "create", Err: err}
	}
	c.Version = 1
	return c.ID, nil
}

// FindByIDAndOwner retrieves a conversation owned by ownerID.
func (s *SQLStore) FindByIDAndOwner(ctx context.Context, id, ownerID string) (*domain.Conversation, error) {
	var (
		c                    domain.Conversation
		messages             []byte
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, owner_id, title, messages, created_at, updated_at, version
		FROM conversations WHERE id = ? AND owner_id = ?
	`), id, ownerID).Scan(&c.ID, &c.OwnerID, &c.Title, &messages, &createdAt, &updatedAt, &c.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "find", Err: err}
	}

	c.Messages, err = decodeMessages(messages)
	if err != nil {
		return nil, &domain.StorageError{Op: "find", Err: err}
	}
	c.CreatedAt = fromUnix(createdAt)
	c.UpdatedAt = fromUnix(updatedAt)
	return &c, nil
}

// ListByOwner returns conversation summaries, most recently updated first.
func (s *SQLStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.ConversationSummary, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, title, message_count, created_at, updated_at
		FROM conversations WHERE owner_id = ?
		ORDER BY updated_at DESC, id ASC
	`), ownerID)
	if err != nil {
		return nil, &domain.StorageError{Op: "list", Err: err}
	}
	defer rows.Close()

	summaries := []domain.ConversationSummary{}
	for rows.Next() {
		var (
			sum                  domain.ConversationSummary
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.MessageCount, &createdAt, &updatedAt); err != nil {
			return nil, &domain.StorageError{Op: "list", Err: err}
		}
		sum.CreatedAt = fromUnix(createdAt)
		sum.UpdatedAt = fromUnix(updatedAt)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list", Err: err}
	}
	return summaries, nil
}

// Save writes c back if its Version still matches the stored row.
func (s *SQLStore) Save(ctx context.Context, c *domain.Conversation) error {
	messages, err := encodeMessages(c.Messages)
	if err != nil {
		return &domain.StorageError{Op: "save", Err: err}
	}

	result, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE conversations
		SET title = ?, messages = ?, message_count = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND owner_id = ? AND version = ?
	`), c.Title, messages, len(c.Messages), toUnix(c.UpdatedAt), c.ID, c.OwnerID, c.Version)
	if err != nil {
		return &domain.StorageError{Op: "save", Err: err}
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return &domain.StorageError{Op: "save", Err: err}
	}
	if affected == 1 {
		c.Version++
		return nil
	}

	// Nothing matched: either the row is gone or someone else saved first.
	var current int64
	err = s.db.QueryRowContext(ctx, s.rebind(
		`SELECT version FROM conversations WHERE id = ? AND owner_id = ?`,
	), c.ID, c.OwnerID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return &domain.StorageError{Op: "save", Err: err}
	}
	return domain.ErrConflict
}

func encodeMessages(messages []domain.Message) (string, error) {
	if messages == nil {
		messages = []domain.Message{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return "", fmt.Errorf("encode messages: %w", err)
	}
	return string(data), nil
}

func decodeMessages(data []byte) ([]domain.Message, error) {
	messages := []domain.Message{}
	if len(data) == 0 {
		return messages, nil
	}
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return messages, nil
}

func toUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnix(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
