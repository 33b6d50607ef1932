// Package storage owns the gorm connection and the notification-TTL reaper.
package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/agusu/ppns-hub/models"
)

// Config selects and authenticates the backing SQL database.
type Config struct {
	Driver   string // "mysql" or "sqlite"
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	DSN      string // used verbatim when Driver == "sqlite"
}

// NewConnection opens a gorm.DB and runs the schema migration for the tables
// the core owns. Dialector-agnostic so tests can run against sqlite
// in-memory while production runs against MySQL.
func NewConnection(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		dialector = sqlite.Open(dsn)
	case "mysql", "":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: connecting: %w", err)
	}

	if err := db.AutoMigrate(&models.Box{}, &models.Client{}, &models.ClientSecret{}, &models.Notification{}); err != nil {
		return nil, fmt.Errorf("storage: migrating: %w", err)
	}

	return db, nil
}

// TTLReaper physically deletes notifications whose createdDateTime+TTL has
// elapsed, standing in for the TTL index a document store would maintain
// natively. It re-checks the configured TTL on every sweep so it can pick
// up a config change without a restart.
type TTLReaper struct {
	db  *gorm.DB
	log *zap.SugaredLogger

	currentTTL time.Duration
}

func NewTTLReaper(db *gorm.DB, log *zap.SugaredLogger, initialTTL time.Duration) *TTLReaper {
	return &TTLReaper{db: db, log: log, currentTTL: initialTTL}
}

// SetTTL replaces the reaper's declared TTL. Called from the config watcher
// when notificationTTLinSeconds changes.
func (r *TTLReaper) SetTTL(ttl time.Duration) {
	if ttl == r.currentTTL {
		return
	}
	r.log.Infow("storage: TTL declaration changed, replacing", "old", r.currentTTL, "new", ttl)
	r.currentTTL = ttl
}

// Run sweeps expired notifications every interval until ctx is cancelled.
func (r *TTLReaper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.sweepOnce(ctx); err != nil {
				r.log.Warnw("storage: TTL sweep failed", "error", err)
			}
		}
	}
}

func (r *TTLReaper) sweepOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-r.currentTTL)
	res := r.db.WithContext(ctx).Where("created_date_time <= ?", cutoff).Delete(&models.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		r.log.Infow("storage: TTL swept expired notifications", "count", res.RowsAffected)
	}
	return nil
}
