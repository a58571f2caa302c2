package database

import (
	"fmt"
	"sync"

	"kyc-attestation/system/api/src/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	dbConnection *gorm.DB
	dbOnce       sync.Once
)

func Open(driver, connectionString string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSqlite, "":
		dialector = sqlite.Open(connectionString)
	case DriverPostgres:
		dialector = postgres.Open(connectionString)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	return gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
}

// InitializeDatabaseConnection opens the process-wide connection once.
func InitializeDatabaseConnection(driver, connectionString string) error {
	var err error
	dbOnce.Do(func() {
		dbConnection, err = Open(driver, connectionString)
	})
	return err
}

func GetDatabaseConnection() *gorm.DB {
	if dbConnection == nil {
		panic("Database connection not initialized: call InitializeDatabaseConnection() first")
	}
	return dbConnection
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.AttestationRecord{},
		&model.OutboxEvent{},
	)
}
