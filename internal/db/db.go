// Package db opens the Postgres connection, applies the schema and seeds the
// authorization data.
package db

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/go-facturas/internal/config"
)

// retryDelay is the pause between connection attempts.
var retryDelay = 2 * time.Second

var passwordPattern = regexp.MustCompile(`(password=)(\S+)|(://[^:/@]+:)([^@]+)(@)`)

// Connect opens Postgres with cfg, retrying while the server starts, and
// checks the connection with SELECT 1.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := NormalizeDSN(cfg.DSN())
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(LogLevel(cfg.LogLevel))}

	attempts := cfg.Retries
	if attempts < 1 {
		attempts = 1
	}
	var (
		gdb *gorm.DB
		err error
	)
	for i := 1; i <= attempts; i++ {
		gdb, err = gorm.Open(postgres.Open(dsn), gcfg)
		if err == nil {
			break
		}
		zap.L().Warn("database connection failed, retrying",
			zap.Int("attempt", i), zap.Int("of", attempts), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect database after %d attempts: %w", attempts, err)
	}
	if err := Ping(ctx, gdb); err != nil {
		return nil, err
	}
	zap.L().Info("database connected", zap.String("dsn", MaskDSN(dsn)))
	return gdb, nil
}

// Ping runs SELECT 1. Used at startup and by /healthz.
func Ping(ctx context.Context, gdb *gorm.DB) error {
	if err := gdb.WithContext(ctx).Exec("SELECT 1").Error; err != nil {
		return fmt.Errorf("db ping failed: %w", err)
	}
	return nil
}

// LogLevel maps a config string to the gorm logger level. Unknown values are silent.
func LogLevel(s string) logger.LogLevel {
	switch strings.ToLower(s) {
	case "info":
		return logger.Info
	case "warn":
		return logger.Warn
	case "error":
		return logger.Error
	}
	return logger.Silent
}

// MaskDSN hides the password of a key=value or URL style DSN.
func MaskDSN(dsn string) string {
	return passwordPattern.ReplaceAllStringFunc(dsn, func(m string) string {
		if strings.HasPrefix(m, "password=") {
			return "password=***"
		}
		sub := passwordPattern.FindStringSubmatch(m)
		return sub[3] + "***" + sub[5]
	})
}
