package repository

import (
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens the order store. Postgres URLs and keyword DSNs go to postgres,
// anything else is a sqlite path; an empty dsn is an in-memory database.
func NewDB(dsn string) (*gorm.DB, error) {
	config := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	var dialector gorm.Dialector
	memory := false
	switch {
	case isPostgres(dsn):
		dialector = postgres.Open(dsn)
	case dsn == "" || dsn == ":memory:":
		dialector = sqlite.Open(":memory:")
		memory = true
	default:
		dialector = sqlite.Open(strings.TrimPrefix(dsn, "sqlite://"))
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, err
	}
	if memory {
		// every connection would get its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&Order{}, &Product{}, &OrderItem{}); err != nil {
		return nil, err
	}
	return db, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.HasPrefix(dsn, "host=")
}
