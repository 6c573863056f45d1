package checkpoint

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chazu/warren/interp"
)

// ErrNoCheckpoint indicates the store holds no checkpoint yet.
var ErrNoCheckpoint = errors.New("no checkpoint found")

// Meta describes one stored checkpoint.
type Meta struct {
	ID      int64
	TakenAt time.Time
	Version int
	Size    int
}

// Store keeps checkpoints in a SQLite database.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) a checkpoint store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS checkpoints (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		taken_at TEXT NOT NULL,
		version INTEGER NOT NULL,
		data BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating checkpoints table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores a snapshot and returns its checkpoint ID.
func (s *Store) Put(records []interp.Record) (int64, error) {
	data, err := Marshal(records)
	if err != nil {
		return 0, fmt.Errorf("encoding checkpoint: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		"INSERT INTO checkpoints (taken_at, version, data) VALUES (?, ?, ?)",
		time.Now().UTC().Format(time.RFC3339Nano), interp.SnapshotVersion, data,
	)
	if err != nil {
		return 0, fmt.Errorf("saving checkpoint: %w", err)
	}
	return res.LastInsertId()
}

// Get loads the checkpoint with the given ID.
func (s *Store) Get(id int64) ([]interp.Record, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM checkpoints WHERE id = ?", id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoCheckpoint
		}
		return nil, fmt.Errorf("querying checkpoint %d: %w", id, err)
	}
	return Unmarshal(data)
}

// Latest loads the most recent checkpoint.
func (s *Store) Latest() (int64, []interp.Record, error) {
	var id int64
	var data []byte
	err := s.db.QueryRow("SELECT id, data FROM checkpoints ORDER BY id DESC LIMIT 1").Scan(&id, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil, ErrNoCheckpoint
		}
		return 0, nil, fmt.Errorf("querying latest checkpoint: %w", err)
	}
	records, err := Unmarshal(data)
	if err != nil {
		return 0, nil, err
	}
	return id, records, nil
}

// List returns metadata for the most recent checkpoints, newest first.
func (s *Store) List(limit int) ([]Meta, error) {
	rows, err := s.db.Query(
		"SELECT id, taken_at, version, length(data) FROM checkpoints ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	defer rows.Close()

	var out []Meta
	for rows.Next() {
		var m Meta
		var takenAt string
		if err := rows.Scan(&m.ID, &takenAt, &m.Version, &m.Size); err != nil {
			return nil, fmt.Errorf("scanning checkpoint row: %w", err)
		}
		m.TakenAt, _ = time.Parse(time.RFC3339Nano, takenAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep checkpoints.
func (s *Store) Prune(keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`DELETE FROM checkpoints WHERE id NOT IN (
			SELECT id FROM checkpoints ORDER BY id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return fmt.Errorf("pruning checkpoints: %w", err)
	}
	return nil
}
