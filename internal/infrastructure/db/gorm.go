package db

import (
	"time"

	contribDomain "group-savings-engine/internal/domain/contribution"
	groupDomain "group-savings-engine/internal/domain/group"
	loanDomain "group-savings-engine/internal/domain/loan"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// zapWriter routes gorm's printf-style output into a zap logger.
type zapWriter struct{ s *zap.SugaredLogger }

func (w zapWriter) Printf(format string, args ...interface{}) { w.s.Warnf(format, args...) }

func gormLogger(log *zap.Logger) logger.Interface {
	if log == nil {
		return logger.Default.LogMode(logger.Silent)
	}
	return logger.New(zapWriter{s: log.Named("gorm").Sugar()}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

func OpenGorm(dsn string, log *zap.Logger) (*gorm.DB, error) {
	return OpenGormWithDialector(mysql.Open(dsn), log)
}

// OpenGormWithDialector opens a pool on any dialector, so tests can hand in
// sqlmock or sqlite connections.
func OpenGormWithDialector(dial gorm.Dialector, log *zap.Logger) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:         gormLogger(log),
		TranslateError: true,
	}
	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	if log != nil {
		log.Info("gorm: connected", zap.String("dialect", dial.Name()))
	}
	return db, nil
}

// Migrate creates or alters the ledger tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&groupDomain.Group{},
		&groupDomain.Membership{},
		&contribDomain.Contribution{},
		&loanDomain.Loan{},
		&loanDomain.Vote{},
	)
}
