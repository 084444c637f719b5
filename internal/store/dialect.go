package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
)

// Supported values for Options.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Drivers lists every supported store driver.
var Drivers = []string{DriverSQLite, DriverPostgres, DriverMySQL}

// dialect captures the SQL differences between the supported databases.
type dialect struct {
	name string
	// sqlDriver is the database/sql driver name registered by the driver package.
	sqlDriver string
	// returningID is true when INSERT ... RETURNING id is used instead of LastInsertId.
	returningID bool
	// upsertNoop is appended to the registry insert to make duplicates a no-op.
	upsertNoop string
	// schema holds the idempotent DDL statements run at open.
	schema []string
}

func dialectFor(driver string) (*dialect, error) {
	switch driver {
	case DriverSQLite, "":
		return &dialect{
			name:       DriverSQLite,
			sqlDriver:  "sqlite",
			upsertNoop: `ON CONFLICT ("key") DO NOTHING`,
			schema: []string{
				`CREATE TABLE IF NOT EXISTS "keys" (
					"key" TEXT PRIMARY KEY,
					"type" TEXT NOT NULL,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					expiration DATETIME
				)`,
				`CREATE TABLE IF NOT EXISTS api_keys (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					key_hash TEXT UNIQUE NOT NULL,
					active INTEGER NOT NULL DEFAULT 1,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
			},
		}, nil
	case DriverPostgres:
		return &dialect{
			name:        DriverPostgres,
			sqlDriver:   "pgx",
			returningID: true,
			upsertNoop:  `ON CONFLICT ("key") DO NOTHING`,
			schema: []string{
				`CREATE TABLE IF NOT EXISTS "keys" (
					"key" TEXT PRIMARY KEY,
					"type" TEXT NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
					expiration TIMESTAMPTZ
				)`,
				`CREATE TABLE IF NOT EXISTS api_keys (
					id BIGSERIAL PRIMARY KEY,
					name TEXT NOT NULL,
					key_hash TEXT UNIQUE NOT NULL,
					active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
			},
		}, nil
	case DriverMySQL:
		return &dialect{
			name:      DriverMySQL,
			sqlDriver: "mysql",
			// Assigning the key to itself leaves the existing row untouched.
			upsertNoop: "ON DUPLICATE KEY UPDATE `key` = `key`",
			schema: []string{
				"CREATE TABLE IF NOT EXISTS `keys` (" +
					"`key` VARCHAR(255) PRIMARY KEY," +
					"`type` VARCHAR(16) NOT NULL," +
					"created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)," +
					"expiration DATETIME(6) NULL" +
					")",
				"CREATE TABLE IF NOT EXISTS api_keys (" +
					"id BIGINT AUTO_INCREMENT PRIMARY KEY," +
					"name VARCHAR(255) NOT NULL," +
					"key_hash CHAR(64) NOT NULL UNIQUE," +
					"active TINYINT(1) NOT NULL DEFAULT 1," +
					"created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)" +
					")",
			},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q (supported: %s)", driver, strings.Join(Drivers, ", "))
	}
}

// quote wraps an identifier for the dialect. "key" and "keys" are reserved
// words in MySQL, so registry columns are always quoted.
func (d *dialect) quote(name string) string {
	if d.name == DriverMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// prepareDSN adapts a user supplied DSN to what the driver needs.
func (d *dialect) prepareDSN(dsn string) (string, error) {
	switch d.name {
	case DriverSQLite:
		return sqliteDSN(dsn)
	case DriverMySQL:
		return mysqlDSN(dsn)
	default:
		if dsn == "" {
			return "", fmt.Errorf("%s store requires a dsn", d.name)
		}
		return dsn, nil
	}
}

// sqliteDSN returns an in-memory DSN for an empty path, otherwise makes sure
// the parent directory exists and enables WAL with a busy timeout.
func sqliteDSN(dsn string) (string, error) {
	if dsn == "" || dsn == ":memory:" {
		return ":memory:", nil
	}
	if strings.Contains(dsn, "?") {
		return dsn, nil
	}
	if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("create data dir: %w", err)
		}
	}
	return dsn + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", nil
}

// mysqlDSN forces parseTime so DATETIME columns scan into time.Time, and
// pins the session location to UTC.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}
