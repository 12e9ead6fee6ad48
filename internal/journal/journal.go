// Package journal persists committed measurements in a SQLite database
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/philipparndt/gomol/internal/engine"
)

// Entry is one recorded measurement
type Entry struct {
	ID        int64
	Source    string
	Structure string
	Kind      engine.MeasurementKind
	Value     float64
	Unit      string
	Atoms     []string
	CreatedAt time.Time
}

// FromMeasurement builds an entry for a measurement of the structure loaded
// from source
func FromMeasurement(source string, m engine.Measurement) Entry {
	return Entry{
		Source:    source,
		Structure: string(m.Structure),
		Kind:      m.Kind,
		Value:     m.Value,
		Unit:      m.Unit,
		Atoms:     append([]string(nil), m.Atoms...),
	}
}

// Store is a measurement journal backed by SQLite
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the journal at path. ":memory:" keeps it in memory.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("journal path required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS measurements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		structure TEXT NOT NULL,
		kind TEXT NOT NULL,
		value REAL NOT NULL,
		unit TEXT NOT NULL,
		atoms TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create measurements table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database location
func (s *Store) Path() string { return s.path }

// Record appends an entry and returns it with ID and timestamp set
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	atoms, err := json.Marshal(e.Atoms)
	if err != nil {
		return Entry{}, fmt.Errorf("encode atoms: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO measurements (source, structure, kind, value, unit, atoms, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Source, e.Structure, string(e.Kind), e.Value, e.Unit, string(atoms), e.CreatedAt.UnixMilli())
	if err != nil {
		return Entry{}, fmt.Errorf("insert measurement: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return Entry{}, fmt.Errorf("insert measurement: %w", err)
	}
	return e, nil
}

// List returns the most recent entries, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, source, structure, kind, value, unit, atoms, created_at FROM measurements ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select measurements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			kind    string
			atoms   string
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Source, &e.Structure, &kind, &e.Value, &e.Unit, &atoms, &created); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if err := json.Unmarshal([]byte(atoms), &e.Atoms); err != nil {
			return nil, fmt.Errorf("decode atoms of %d: %w", e.ID, err)
		}
		e.Kind = engine.MeasurementKind(kind)
		e.CreatedAt = time.UnixMilli(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Clear deletes every entry
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM measurements`); err != nil {
		return fmt.Errorf("delete measurements: %w", err)
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
