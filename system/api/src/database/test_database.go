package database

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"gorm.io/gorm"
)

// OpenTestDatabase returns a migrated database private to the test. It uses
// TEST_DB_CONNECTION_STRING (postgres) when set and an in-memory sqlite
// database otherwise.
func OpenTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()

	driver, dsn := DriverSqlite, fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	if conn := os.Getenv("TEST_DB_CONNECTION_STRING"); conn != "" {
		driver, dsn = DriverPostgres, conn
	}

	db, err := Open(driver, dsn)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if driver == DriverSqlite {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		if driver == DriverPostgres {
			_ = db.Exec("DELETE FROM attestation_records").Error
			_ = db.Exec("DELETE FROM outbox_events").Error
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}
