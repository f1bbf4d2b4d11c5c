package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	// registers the postgres:// database driver
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/go-facturas/internal/models"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// AutoMigrate creates or updates every table from the gorm models.
// Dev and test convenience; production uses MigrateSQL.
func AutoMigrate(gdb *gorm.DB) error {
	for _, m := range models.All() {
		if err := gdb.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

// Direction of a SQL migration run.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// MigrateSQL applies the embedded SQL migrations to databaseURL.
// Down rolls back a single step.
func MigrateSQL(databaseURL string, dir Direction) error {
	m, err := newMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	switch dir {
	case Up:
		err = m.Up()
	case Down:
		err = m.Steps(-1)
	default:
		return fmt.Errorf("unknown migration direction %q", dir)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		zap.L().Info("migrations: no change")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", dir, err)
	}
	version, dirty, _ := m.Version()
	zap.L().Info("migrations applied", zap.String("direction", string(dir)),
		zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func newMigrator(databaseURL string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("init migrate: %w", err)
	}
	return m, nil
}
