// Package db opens the job archive database.
package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// NormalizeDSN checks dsn for driver and returns the form handed to gorm.
// MySQL DSNs always get parseTime so timestamps scan into time.Time.
func NormalizeDSN(driver, dsn string) (string, error) {
	if strings.TrimSpace(dsn) == "" {
		return "", fmt.Errorf("db: empty dsn")
	}
	switch driver {
	case DriverSQLite:
		return dsn, nil
	case DriverMySQL:
		cfg, err := gomysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("db: invalid mysql dsn: %w", err)
		}
		if cfg.DBName == "" {
			return "", fmt.Errorf("db: mysql dsn has no database name")
		}
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil
	default:
		return "", fmt.Errorf("db: unsupported driver %q (want %s or %s)", driver, DriverSQLite, DriverMySQL)
	}
}

// Connect opens a GORM connection. A file-backed sqlite database gets its
// parent directory created.
func Connect(driver, dsn string) (*gorm.DB, error) {
	normalized, err := NormalizeDSN(driver, dsn)
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch driver {
	case DriverMySQL:
		dialector = mysql.Open(normalized)
	default:
		if path := sqlitePath(normalized); path != "" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("db: create directory for %s: %w", path, err)
			}
		}
		dialector = sqlite.Open(normalized)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: connect (%s): %w", driver, err)
	}
	return db, nil
}

// sqlitePath returns the file behind a sqlite DSN, or "" for in-memory
// databases.
func sqlitePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.HasPrefix(path, ":memory:") {
		return ""
	}
	return path
}
