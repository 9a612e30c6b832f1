// internal/storage/sqlite/sqlite.go
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/waifuai/solana-ico/internal/storage"
)

// gormLogger adapts zap to gorm's logger.Interface.
type gormLogger struct {
	zapLogger *zap.Logger
	logLevel  logger.LogLevel
}

func newGormLogger(zapLogger *zap.Logger) logger.Interface {
	return &gormLogger{zapLogger: zapLogger, logLevel: logger.Warn}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.zapLogger.Sugar().Infof(msg, data...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.zapLogger.Sugar().Warnf(msg, data...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.zapLogger.Sugar().Errorf(msg, data...)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		l.zapLogger.Error("trace", append(fields, zap.Error(err))...)
		return
	}
	if l.logLevel >= logger.Info {
		l.zapLogger.Info("trace", fields...)
	}
}

type sqliteStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore opens (or creates) the journal database at dsn. Use ":memory:"
// for an ephemeral store in tests.
func NewStore(dsn string, zapLogger *zap.Logger) (storage.Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: newGormLogger(zapLogger.Named("gorm")),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	return &sqliteStore{db: db, logger: zapLogger}, nil
}

func (s *sqliteStore) RunMigrations() error {
	return s.db.AutoMigrate(
		&storage.Settlement{},
		&storage.AccessGrant{},
		&storage.IcoStateRecord{},
		&storage.ResourceStateRecord{},
	)
}

func (s *sqliteStore) SaveSettlement(ctx context.Context, rec *storage.Settlement) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to save settlement: %w", err)
	}
	return nil
}

func (s *sqliteStore) ListSettlements(ctx context.Context, owner string, limit int) ([]*storage.Settlement, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []*storage.Settlement
	q := s.db.WithContext(ctx).Order("created_at desc").Limit(limit)
	if owner != "" {
		q = q.Where("owner = ?", owner)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	return out, nil
}

func (s *sqliteStore) SaveAccessGrant(ctx context.Context, rec *storage.AccessGrant) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to save access grant: %w", err)
	}
	return nil
}

func (s *sqliteStore) SaveIcoState(ctx context.Context, rec *storage.IcoStateRecord) error {
	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return fmt.Errorf("failed to save ico state: %w", err)
	}
	return nil
}

func (s *sqliteStore) LoadIcoState(ctx context.Context, owner string) (*storage.IcoStateRecord, error) {
	var rec storage.IcoStateRecord
	err := s.db.WithContext(ctx).First(&rec, "owner = ?", owner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ico state: %w", err)
	}
	return &rec, nil
}

func (s *sqliteStore) SaveResourceState(ctx context.Context, rec *storage.ResourceStateRecord) error {
	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return fmt.Errorf("failed to save resource state: %w", err)
	}
	return nil
}

func (s *sqliteStore) ListResourceStates(ctx context.Context, owner string) ([]*storage.ResourceStateRecord, error) {
	var out []*storage.ResourceStateRecord
	if err := s.db.WithContext(ctx).Where("owner = ?", owner).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list resource states: %w", err)
	}
	return out, nil
}

func (s *sqliteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
