package database

import (
	"fmt"
	"time"

	"github.com/sahilchouksey/course-catalog/config"
	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/utils/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Storage defines the interface that all database implementations must satisfy
type Storage interface {
	// Lifecycle methods
	Init() error
	Close() error
	HealthCheck() error

	GetDB() *gorm.DB
}

type GORMStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// StartGORM opens the catalog database selected by DB_DRIVER (postgres or sqlite)
func StartGORM(env *config.EnvironmentVariable, log *logger.Logger) (*GORMStore, error) {
	// Configure GORM logger
	gormLogger := gormlogger.Default.LogMode(gormlogger.Warn)
	if env.GO_ENV == "production" {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Error)
	}

	cfg := &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true, // surface unique violations as gorm.ErrDuplicatedKey
	}

	var dialector gorm.Dialector
	switch env.DB_DRIVER {
	case "sqlite":
		dialector = sqlite.Open(env.DB_SQLITE_PATH + "?_foreign_keys=on")
	case "postgres", "":
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			env.DB_HOST,
			env.DB_USER_NAME,
			env.DB_PASSWORD,
			env.DB_NAME,
			env.DB_PORT,
			env.DB_SSL_MODE,
		)
		dialector = postgres.Open(dsn)
		cfg.PrepareStmt = true
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", env.DB_DRIVER)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		log.Error("unable to connect to database", "driver", env.DB_DRIVER, "error", err)
		return nil, err
	}

	// Get underlying *sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if env.DB_DRIVER == "sqlite" {
		// SQLite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Info("connected to database", "driver", env.DB_DRIVER)

	return NewGORMStore(db, log), nil
}

// NewGORMStore wraps an already opened connection
func NewGORMStore(db *gorm.DB, log *logger.Logger) *GORMStore {
	if log == nil {
		log = logger.Nop()
	}
	return &GORMStore{db: db, log: log}
}

// Models lists every table the catalog owns, parents before children
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.JWTTokenBlacklist{},

		// Catalog hierarchy
		&model.Subject{},
		&model.Course{},
		&model.Module{},
		&model.Content{},

		// Content items
		&model.Text{},
		&model.Video{},
		&model.Image{},
		&model.File{},

		// Audit & logging models
		&model.CronJobLog{},
		&model.AdminAuditLog{},
	}
}

// Migrate runs AutoMigrate for all catalog models
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// Init runs the AutoMigrate to create/update tables
func (s *GORMStore) Init() error {
	s.log.Info("running AutoMigrate", "models", len(Models()))
	if err := Migrate(s.db); err != nil {
		s.log.Error("AutoMigrate failed", "error", err)
		return err
	}
	return nil
}

// Close closes the database connection
func (s *GORMStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the GORM DB instance for use in services and handlers
func (s *GORMStore) GetDB() *gorm.DB {
	return s.db
}

// HealthCheck verifies the database connection is alive
func (s *GORMStore) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
