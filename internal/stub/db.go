package stub

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB connects GORM to MySQL when a DSN is configured, otherwise to the
// pure-Go SQLite driver. ":memory:" is accepted for throwaway databases.
func OpenDB(mysqlDSN, sqliteDSN string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	if mysqlDSN != "" {
		db, err := gorm.Open(mysql.Open(mysqlDSN), cfg)
		if err != nil {
			return nil, fmt.Errorf("connect mysql: %w", err)
		}
		return db, nil
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN), cfg)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserRecord{}, &TrainRecord{})
}
