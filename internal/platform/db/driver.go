package db

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
)

// Driver names the relational backend selected by DATABASE_URL.
type Driver string

const (
	Postgres Driver = "postgres"
	SQLite   Driver = "sqlite"
)

//go:embed migrations
var migrationFiles embed.FS

// ParseURL splits a DATABASE_URL into the driver and the DSN handed to it.
// postgres:// and postgresql:// URLs are passed through untouched; sqlite://
// URLs are reduced to the file path (":memory:" is accepted).
func ParseURL(url string) (Driver, string, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return Postgres, url, nil
	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("sqlite url has no file path")
		}
		return SQLite, path, nil
	default:
		return "", "", fmt.Errorf("unsupported database url scheme in %q", redact(url))
	}
}

// Migrations returns the embedded migration files for the driver.
func Migrations(d Driver) (fs.FS, error) {
	return fs.Sub(migrationFiles, "migrations/"+string(d))
}

func redact(url string) string {
	if i := strings.Index(url, "@"); i >= 0 {
		if j := strings.Index(url, "://"); j >= 0 && j < i {
			return url[:j+3] + "***" + url[i:]
		}
	}
	return url
}
