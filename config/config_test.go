package config_test

import (
	"testing"

	"github.com/chayo-ai/memoryd/config"
	"github.com/chayo-ai/memoryd/internal/di"
	"github.com/chayo-ai/memoryd/internal/mytesting"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	mytesting.Suite
}

func (s *ConfigTestSuite) TestMemoryConfigDefaults() {
	c := di.NewContainer(di.EnvTest)
	defer c.Shutdown()

	conf := di.MustGet[*config.MemoryConfig](s.Context, c, config.MemoryConfigKey)

	s.True(conf.SqliteEnabled)
	s.Equal(":memory:", conf.SqlitePath)
	s.Equal("text-embedding-3-small", conf.EmbeddingModel)
	s.Equal(1536, conf.EmbeddingDimension)
	s.Equal(0.7, conf.RetrievalThreshold)
	s.Equal(5, conf.RetrievalLimit)
	s.Equal(0.92, conf.ConflictThreshold)
	s.Equal(12, conf.MinMessageLength)
	s.Equal(1200, conf.MaxChunkChars)

	// Conflict detection must be stricter than retrieval
	s.Greater(conf.ConflictThreshold, conf.RetrievalThreshold)
}

func (s *ConfigTestSuite) TestMemoryConfigEnvOverride() {
	s.T().Setenv("MEMORY_EMBEDDING_DIMENSION", "256")
	s.T().Setenv("MEMORY_RETRIEVAL_THRESHOLD", "0.5")

	c := di.NewContainer(di.EnvTest)
	defer c.Shutdown()

	conf := di.MustGet[*config.MemoryConfig](s.Context, c, config.MemoryConfigKey)
	s.Equal(256, conf.EmbeddingDimension)
	s.Equal(0.5, conf.RetrievalThreshold)
}

func (s *ConfigTestSuite) TestServerConfigDefaults() {
	c := di.NewContainer(di.EnvTest)
	defer c.Shutdown()

	conf := di.MustGet[*config.ServerConfig](s.Context, c, config.ServerConfigKey)
	s.Equal("0.0.0.0", conf.Host)
	s.Equal(8080, conf.Port)
	s.Equal("memoryd.db", conf.DatabasePath)
}

func TestConfig(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
