package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultPath returns the database location under the user config dir.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, herr := os.UserHomeDir()
		if herr != nil {
			return "", err
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "threechat", "threechat.db"), nil
}

// OpenThreeChatDB opens the database at dbPath, creating the file and schema
// if needed.
func OpenThreeChatDB(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return db, nil
}

// GetValue returns the value stored under key. ok is false when the key is absent.
func GetValue(db *sql.DB, key string) (value string, ok bool, err error) {
	err = db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetValue overwrites the whole value under key.
func SetValue(db *sql.DB, key, value string, nowUnix int64) error {
	_, err := db.Exec(
		`INSERT INTO kv(key, value, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		value,
		nowUnix,
	)
	return err
}

func DeleteValue(db *sql.DB, key string) error {
	_, err := db.Exec("DELETE FROM kv WHERE key = ?", key)
	return err
}

// KV adapts a database handle to the store's key-value storage.
type KV struct {
	DB *sql.DB
}

func (k KV) Get(key string) (string, bool, error) {
	return GetValue(k.DB, key)
}

func (k KV) Set(key, value string) error {
	return SetValue(k.DB, key, value, time.Now().Unix())
}

func (k KV) Delete(key string) error {
	return DeleteValue(k.DB, key)
}

func (k KV) Close() error {
	return k.DB.Close()
}

const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Backend is a durable key-value store the chat history can live in.
type Backend interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}

// Open opens the named backend at path.
func Open(backend, path string) (Backend, error) {
	switch backend {
	case BackendSQLite, "":
		conn, err := OpenThreeChatDB(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite history %s: %w", path, err)
		}
		return KV{DB: conn}, nil
	case BackendBolt:
		kv, err := OpenBolt(path)
		if err != nil {
			return nil, fmt.Errorf("open bolt history %s: %w", path, err)
		}
		return kv, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
