package lead

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a lead does not exist.
var ErrNotFound = errors.New("lead not found")

// Store provides persistent storage for leads and their outbound messages
// using SQLite. Store handles database migrations automatically on
// initialization.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new Store instance with a SQLite database at the given
// path. It creates the data directory if it does not exist and runs database
// migrations. Returns an error if the database cannot be opened or migrations
// fail.
func NewStore(dataPath string) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataPath, "drip.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:   db,
		path: dataPath,
	}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate creates necessary tables
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS leads (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			status TEXT NOT NULL,
			status_changed_at DATETIME NOT NULL,
			last_auto_message_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS lead_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			lead_id TEXT NOT NULL,
			text TEXT NOT NULL,
			kind TEXT NOT NULL,
			sent_at DATETIME NOT NULL,
			FOREIGN KEY (lead_id) REFERENCES leads(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_lead ON lead_messages(lead_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Create inserts a new lead. StatusChangedAt defaults to CreatedAt when unset.
func (s *Store) Create(ctx context.Context, l *Lead) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if l.StatusChangedAt.IsZero() {
		l.StatusChangedAt = l.CreatedAt
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (id, name, status, status_changed_at, last_auto_message_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, l.Name, l.Status, l.StatusChangedAt.UTC(), nullableTime(l.LastAutoMessageAt), l.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

// Get returns a single lead by ID.
func (s *Store) Get(ctx context.Context, id string) (*Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, status, status_changed_at, last_auto_message_at, created_at
		 FROM leads WHERE id = ?`, id)

	l, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return l, nil
}

// GetAll returns a snapshot of every tracked lead, ordered by creation time.
func (s *Store) GetAll(ctx context.Context) ([]*Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, status, status_changed_at, last_auto_message_at, created_at
		 FROM leads ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var leads []*Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// SetStatus transitions a lead to a new status and resets the elapsed-day
// baseline to changedAt.
func (s *Store) SetStatus(ctx context.Context, id string, status Status, changedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET status = ?, status_changed_at = ? WHERE id = ?`,
		status, changedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	return checkAffected(res)
}

// CommitSend records one outbound follow-up atomically: it stamps
// last_auto_message_at and appends the message in a single transaction.
// Either both happen or neither does.
func (s *Store) CommitSend(ctx context.Context, id, text string, kind MessageKind, sentAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE leads SET last_auto_message_at = ? WHERE id = ?`,
		sentAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to stamp lead: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO lead_messages (lead_id, text, kind, sent_at) VALUES (?, ?, ?, ?)`,
		id, text, kind, sentAt.UTC()); err != nil {
		return fmt.Errorf("failed to record message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit send: %w", err)
	}
	return nil
}

// Messages returns the outbound record for a lead, oldest first.
func (s *Store) Messages(ctx context.Context, id string) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lead_id, text, kind, sent_at FROM lead_messages
		 WHERE lead_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []*Message
	for rows.Next() {
		m := &Message{}
		if err := rows.Scan(&m.ID, &m.LeadID, &m.Text, &m.Kind, &m.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.SentAt = m.SentAt.UTC()
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*Lead, error) {
	l := &Lead{}
	var lastAuto sql.NullTime
	if err := row.Scan(&l.ID, &l.Name, &l.Status, &l.StatusChangedAt, &lastAuto, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.StatusChangedAt = l.StatusChangedAt.UTC()
	l.CreatedAt = l.CreatedAt.UTC()
	if lastAuto.Valid {
		t := lastAuto.Time.UTC()
		l.LastAutoMessageAt = &t
	}
	return l, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
