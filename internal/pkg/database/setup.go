package database

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ManuelReschke/SubGate/app/models"
	"github.com/ManuelReschke/SubGate/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// DB is the shared connection, nil when no database is configured.
var DB *gorm.DB

// GetDB returns the shared connection.
func GetDB() *gorm.DB {
	return DB
}

// Configured reports whether DB_NAME is set. Without it the service runs on
// in-memory repositories.
func Configured() bool {
	return env.GetEnv("DB_NAME", "") != ""
}

// DSN builds the MySQL data source name from DB_USER, DB_PASSWORD, DB_HOST,
// DB_PORT and DB_NAME.
func DSN() string {
	// "user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=UTC"
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)
}

// Open connects to MySQL.
func Open(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{}
	if !env.IsDev() {
		cfg.Logger = logger.Default.LogMode(logger.Warn)
	}
	return gorm.Open(mysql.New(mysql.Config{
		DSN:                       dsn,   // data source name
		DefaultStringSize:         256,   // default size for string fields
		DisableDatetimePrecision:  true,  // disable datetime precision, which not supported before MySQL 5.6
		DontSupportRenameIndex:    true,  // drop & create when rename index, rename index not supported before MySQL 5.7, MariaDB
		DontSupportRenameColumn:   true,  // `change` when rename column, rename column not supported before MySQL 8, MariaDB
		SkipInitializeWithVersion: false, // auto configure based on currently MySQL version
	}), cfg)
}

// Migrate creates or updates the tables of the service.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Subscriber{},
		&models.BillingWebhookEvent{},
	)
}

// SetupDatabase connects with retries and migrates. It is a no-op when no
// database is configured.
func SetupDatabase() {
	if !Configured() {
		log.Warn("DB_NAME not set, using in-memory repositories")
		return
	}

	var err error
	for i := 0; i < maxRetries; i++ {
		DB, err = Open(DSN())
		if err == nil {
			if err = Migrate(DB); err == nil {
				return
			}
		}

		log.Warnf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Infof("Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}
