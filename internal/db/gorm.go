package db

import (
	"context"

	"github.com/chayo-ai/memoryd/config"
	"github.com/chayo-ai/memoryd/internal/di"
	"github.com/chayo-ai/memoryd/internal/mylog"
	"github.com/chayo-ai/memoryd/organization"
	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	Key = di.NewKey()
)

func OpenDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return db, nil
}

func CloseDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrapf(err, "failed to get db")
	}
	if err := sqlDB.Close(); err != nil {
		return errors.Wrapf(err, "failed to close db")
	}

	return nil
}

func init() {
	di.Register(Key, func(ctx context.Context, c *di.Container) (any, error) {
		logger, err := di.Get[*mylog.Logger](ctx, c, mylog.Key)
		if err != nil {
			return nil, err
		}

		cfg, err := di.Get[*config.ServerConfig](ctx, c, config.ServerConfigKey)
		if err != nil {
			return nil, err
		}

		path := cfg.DatabasePath
		if c.Env == di.EnvTest {
			path = ":memory:"
		}

		logger.Info("initialize database", "path", path)
		db, err := OpenDB(path)
		if err != nil {
			return nil, err
		}

		if err := organization.AutoMigrate(db); err != nil {
			return nil, errors.Wrapf(err, "failed to migrate database")
		}

		c.RegisterOnShutdown(func() {
			if err := CloseDB(db); err != nil {
				logger.Warn("failed to close database", "err", err)
			}
		})

		return db, nil
	})
}
