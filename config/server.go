package config

import (
	"context"

	"github.com/chayo-ai/memoryd/internal/di"
)

type ServerConfig struct {
	Host           string `env:"HOST"`
	Port           int    `env:"PORT"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`

	// DatabasePath is the SQLite file holding organization rows.
	// Deployments sharing a database with the dashboard point this at
	// the same file.
	DatabasePath string `env:"DATABASE_PATH"`
}

var ServerConfigKey = di.NewKey()

func init() {
	di.Register(ServerConfigKey, func(ctx context.Context, c *di.Container) (any, error) {
		conf := ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			AllowedOrigins: "*",
			DatabasePath:   "memoryd.db",
		}
		return &conf, resolveConfig(&conf, c.Env == di.EnvTest)
	})
}
