package migration

import (
	"github.com/millwise/shopfloor/internal/config"
	"github.com/millwise/shopfloor/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.MigrateOnStart {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		}

		if cfg.SeedOnStart {
			return seed.EnsureAdmin(conn)
		}
		return nil
	}),
)
