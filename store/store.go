// Package store keeps device state in a flat key/value table so calibration
// progress survives power loss.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const KeyDeviceID = "device.id"

// opTimeout bounds a single store call from the control loop.
const opTimeout = 2 * time.Second

// KV is what the rest of the program needs from a store.
type KV interface {
	Get(key string) (string, bool, error)
	SetMany(kv map[string]string) error
}

type SQLite struct {
	db   *sql.DB
	path string
}

func Open(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

// DefaultPath puts the database next to the user's config.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "hushlight", "hushlight.db"), nil
}

func (s *SQLite) Path() string { return s.path }

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return v, true, nil
}

// SetMany writes all pairs in one transaction so a power cut never leaves a
// half-updated set of statistics.
func (s *SQLite) SetMany(kv map[string]string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	for _, k := range sortedKeys(kv) {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO kv(key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value
`, k, kv[k]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func sortedKeys(kv map[string]string) []string {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Memory is an in-process KV for tests and simulations.
type Memory struct {
	mu sync.Mutex
	kv map[string]string
}

func NewMemory() *Memory {
	return &Memory{kv: map[string]string{}}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.kv[key]
	return v, ok, nil
}

func (m *Memory) SetMany(kv map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range kv {
		m.kv[k] = v
	}
	return nil
}

// DeviceID returns the persisted device id, minting one on first boot.
func DeviceID(s KV) (string, error) {
	id, ok, err := s.Get(KeyDeviceID)
	if err != nil {
		return "", err
	}
	if ok {
		if _, err := uuid.Parse(id); err == nil {
			return id, nil
		}
	}
	id = uuid.NewString()
	if err := s.SetMany(map[string]string{KeyDeviceID: id}); err != nil {
		return "", fmt.Errorf("save device id: %w", err)
	}
	return id, nil
}
