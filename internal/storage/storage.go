package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"wedding-rsvp/internal/models"
)

// Columns follow the guest sheet layout (A..N) so exports line up.
const schema = `
CREATE TABLE IF NOT EXISTS guests (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	role           TEXT NOT NULL DEFAULT '',
	email          TEXT NOT NULL DEFAULT '',
	contact        TEXT NOT NULL DEFAULT '',
	message        TEXT NOT NULL DEFAULT '',
	allowed_guests INTEGER NOT NULL DEFAULT 1,
	companions     TEXT NOT NULL DEFAULT '[]',
	table_number   TEXT NOT NULL DEFAULT '',
	is_vip         INTEGER NOT NULL DEFAULT 0,
	status         TEXT NOT NULL DEFAULT 'pending',
	added_by       TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS guests_name ON guests(name);
`

const columns = `id, name, role, email, contact, message, allowed_guests, companions,
	table_number, is_vip, status, added_by, created_at, updated_at`

// Store keeps the guest directory in a SQLite database
type Store struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// NewStorage opens (creating if needed) the database at path
func NewStorage(path string, log zerolog.Logger) (*Store, error) {
	// Ensure directory exists
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{
		db:  db,
		log: log.With().Str("component", "storage").Logger(),
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// List returns all guests in insertion order
func (s *Store) List(ctx context.Context) ([]models.Guest, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM guests ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query guests: %w", err)
	}
	defer rows.Close()

	guests := make([]models.Guest, 0)
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		guests = append(guests, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read guests: %w", err)
	}
	return guests, nil
}

// Create inserts a new guest with a fresh id
func (s *Store) Create(ctx context.Context, guest models.NewGuest) (models.Guest, error) {
	g := guest.Build()
	if g.Name == "" {
		return models.Guest{}, models.Validation("name is required")
	}
	ts := s.now()
	g.ID = uuid.NewString()
	g.CreatedAt = ts
	g.UpdatedAt = ts

	companions, err := json.Marshal(g.Companions)
	if err != nil {
		return models.Guest{}, fmt.Errorf("failed to marshal companions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO guests (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.Role, g.Email, g.Contact, g.Message, g.AllowedGuests, string(companions),
		g.TableNumber, g.IsVIP, string(g.Status), g.AddedBy, formatTime(g.CreatedAt), formatTime(g.UpdatedAt))
	if err != nil {
		return models.Guest{}, fmt.Errorf("failed to insert guest: %w", err)
	}

	s.log.Debug().Str("id", g.ID).Msg("Inserted guest")
	return g, nil
}

// Update applies patch to one row inside a transaction
func (s *Store) Update(ctx context.Context, key models.GuestKey, patch models.GuestPatch) (models.Guest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Guest{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	g, err := findGuest(ctx, tx, key)
	if err != nil {
		return models.Guest{}, err
	}
	if patch.IfUpdatedAt != nil && !patch.IfUpdatedAt.Equal(g.UpdatedAt) {
		return models.Guest{}, &models.ConflictError{ID: g.ID, Reason: "record changed since it was read"}
	}

	patch.Apply(&g)
	g.UpdatedAt = s.now()

	companions, err := json.Marshal(g.Companions)
	if err != nil {
		return models.Guest{}, fmt.Errorf("failed to marshal companions: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE guests SET
		name = ?, role = ?, email = ?, contact = ?, message = ?, allowed_guests = ?, companions = ?,
		table_number = ?, is_vip = ?, status = ?, added_by = ?, updated_at = ?
		WHERE id = ?`,
		g.Name, g.Role, g.Email, g.Contact, g.Message, g.AllowedGuests, string(companions),
		g.TableNumber, g.IsVIP, string(g.Status), g.AddedBy, formatTime(g.UpdatedAt), g.ID)
	if err != nil {
		return models.Guest{}, fmt.Errorf("failed to update guest: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Guest{}, fmt.Errorf("failed to commit update: %w", err)
	}
	return g, nil
}

// Delete removes one row
func (s *Store) Delete(ctx context.Context, key models.GuestKey) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	g, err := findGuest(ctx, tx, key)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM guests WHERE id = ?`, g.ID); err != nil {
		return fmt.Errorf("failed to delete guest: %w", err)
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func findGuest(ctx context.Context, tx *sql.Tx, key models.GuestKey) (models.Guest, error) {
	var row *sql.Row
	if id := strings.TrimSpace(key.ID); id != "" {
		row = tx.QueryRowContext(ctx, `SELECT `+columns+` FROM guests WHERE id = ?`, id)
	} else {
		row = tx.QueryRowContext(ctx, `SELECT `+columns+` FROM guests WHERE trim(name) = ? ORDER BY rowid LIMIT 1`,
			strings.TrimSpace(key.Name))
	}
	g, err := scanGuest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Guest{}, models.NotFound(key.String())
	}
	return g, err
}

func scanGuest(row scanner) (models.Guest, error) {
	var (
		g                    models.Guest
		companions, status   string
		createdAt, updatedAt string
	)
	err := row.Scan(&g.ID, &g.Name, &g.Role, &g.Email, &g.Contact, &g.Message, &g.AllowedGuests,
		&companions, &g.TableNumber, &g.IsVIP, &status, &g.AddedBy, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return g, err
		}
		return g, fmt.Errorf("failed to scan guest: %w", err)
	}

	// Unreadable companion data is treated as none, like the sheet reader does.
	if err := json.Unmarshal([]byte(companions), &g.Companions); err != nil || g.Companions == nil {
		g.Companions = []models.Companion{}
	}
	g.Status = models.GuestStatus(status)
	if g.Status == "" {
		g.Status = models.StatusPending
	}
	g.AllowedGuests = models.NormalizeAllowance(g.AllowedGuests)
	g.CreatedAt = parseTime(createdAt)
	g.UpdatedAt = parseTime(updatedAt)
	return g, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
