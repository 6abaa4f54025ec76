package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store says where the authorization store lives. Path is used by sqlite,
// URL by postgres.
type Store struct {
	Driver string
	Path   string
	URL    string
}

// GetStore reads DB_DRIVER, DB_PATH and DATABASE_URL.
func GetStore() *Store {
	return &Store{
		Driver: strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		Path:   getEnv("DB_PATH", filepath.Join("db", GetName()+".db")),
		URL:    os.Getenv("DATABASE_URL"),
	}
}

func (s *Store) Validate() error {
	switch s.Driver {
	case DriverSQLite:
		if s.Path == "" {
			return errors.New("DB_PATH is empty")
		}
	case DriverPostgres:
		if s.URL == "" {
			return errors.New("DATABASE_URL is required for postgres")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", s.Driver)
	}
	return nil
}

// DSN turns foreign keys on for every sqlite connection in the pool.
func (s *Store) DSN() string {
	if s.Driver == DriverPostgres {
		return s.URL
	}
	return s.Path + "?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on"
}

func (s *Store) IsSQLite() bool {
	return s.Driver == DriverSQLite
}

// EnsureDir creates the parent directory of a file-backed sqlite store.
func (s *Store) EnsureDir() error {
	if !s.IsSQLite() || s.Path == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(s.Path), 0o755)
}
