package database

import (
	appbuilder "kyc-attestation/system/pkg/app_builder"
	"kyc-attestation/system/pkg/utilities"
)

type DatabaseConfig interface {
	appbuilder.AppConfig
	GetDatabaseDriver() string
	GetDatabaseConnectionString() string
}

func ConnectToDatabase[T utilities.JsonConfigObj[U], U DatabaseConfig](a *appbuilder.AppBuilder[T, U]) {
	a.Logger.Infof("Establishing connection to %s database...", a.Config.GetDatabaseDriver())

	if err := InitializeDatabaseConnection(a.Config.GetDatabaseDriver(), a.Config.GetDatabaseConnectionString()); err != nil {
		a.Logger.Fatal(err, "Cannot establish database connection")
	}

	a.Logger.Info("Database connection established successfully.")
}

func RunMigrations[T utilities.JsonConfigObj[U], U DatabaseConfig](a *appbuilder.AppBuilder[T, U]) {
	a.Logger.Info("Running migrations for tables... ")
	if err := AutoMigrate(GetDatabaseConnection()); err != nil {
		a.Logger.Fatal(err, "Migrating database failed")
	}
	a.Logger.Info("All tables created (or already exist).")
}
