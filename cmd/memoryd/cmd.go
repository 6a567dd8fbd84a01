package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chayo-ai/memoryd/config"
	"github.com/chayo-ai/memoryd/internal/db"
	"github.com/chayo-ai/memoryd/internal/di"
	"github.com/chayo-ai/memoryd/internal/mylog"
	"github.com/chayo-ai/memoryd/memory"
	"github.com/chayo-ai/memoryd/organization"
	"github.com/chayo-ai/memoryd/prompt"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memoryd [assistant-profile-file OR profile-files-dir ...]",
		Short: "Start the Chayo conversation-memory service",
		RunE: func(cmd *cobra.Command, args []string) error {
			profileFiles, err := collectProfileFiles(args)
			if err != nil {
				return err
			}

			c := di.NewContainer(di.EnvProd)
			defer c.Shutdown()
			ctx := cmd.Context()

			serverConf := di.MustGet[*config.ServerConfig](ctx, c, config.ServerConfigKey)
			memoryConf := di.MustGet[*config.MemoryConfig](ctx, c, config.MemoryConfigKey)
			openaiConf := di.MustGet[*config.OpenAIConfig](ctx, c, config.OpenAIConfigKey)
			logger := di.MustGet[*mylog.Logger](ctx, c, mylog.Key)

			logger.Debug("start memoryd", "config", memoryConf)

			if openaiConf.OpenAIApiKey == "" {
				return errors.Errorf("OPENAI_API_KEY is required to generate embeddings")
			}
			embedder := memory.NewOpenAIEmbedder(openaiConf.OpenAIApiKey, memoryConf.EmbeddingModel, memoryConf.EmbeddingDimension)

			memoryService, err := memory.NewService(ctx, memoryConf, logger, embedder)
			if err != nil {
				return errors.Wrapf(err, "failed to create memory service")
			}
			c.RegisterOnShutdown(func() {
				if err := memoryService.Close(); err != nil {
					logger.Warn("failed to close memory service", "err", err)
				}
			})

			gormDB := di.MustGet[*gorm.DB](ctx, c, db.Key)
			orgStore := organization.NewStore(gormDB)

			// load per-tenant assistant profiles for prompt building
			profiles := map[string]*config.AssistantProfile{}
			if len(profileFiles) > 0 {
				loaded, err := config.LoadProfilesFromFiles(profileFiles)
				if err != nil {
					return errors.Wrapf(err, "failed to load assistant profiles")
				}
				for i := range loaded {
					profile := &loaded[i]
					if profile.OrganizationID == "" {
						return errors.Errorf("assistant profile %s is missing organizationId", profileFiles[i])
					}
					profiles[profile.OrganizationID] = profile
					logger.Info("Assistant profile loaded", "organizationId", profile.OrganizationID)
				}
			}

			promptBuilder := prompt.NewBuilder(memoryService, logger)

			router := mux.NewRouter()
			createMemoryRouter(router, memoryService, orgStore, promptBuilder, profiles, logger)

			handler := handlers.CORS(
				handlers.AllowedOrigins(strings.Split(serverConf.AllowedOrigins, ",")),
				handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
				handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
			)(router)
			handler = handlers.CombinedLoggingHandler(os.Stdout, handler)
			handler = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(handler)

			server := &http.Server{
				Addr:    fmt.Sprintf("%s:%d", serverConf.Host, serverConf.Port),
				Handler: handler,
			}

			closeCh := make(chan os.Signal, 3)
			defer close(closeCh)
			signal.Notify(closeCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGABRT)

			go func() {
				<-closeCh
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Warn("failed to shut down server gracefully", "err", err)
				}
			}()

			logger.Info("Starting server", "host", serverConf.Host, "port", serverConf.Port)

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrapf(err, "server failed")
			}
			return nil
		},
	}

	return cmd
}

func collectProfileFiles(args []string) ([]string, error) {
	var files []string
	for _, filename := range args {
		stat, err := os.Stat(filename)
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "profile file or dir does not exist")
		}
		if stat.IsDir() {
			entries, err := os.ReadDir(filename)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to read profile dir")
			}
			for _, entry := range entries {
				if entry.IsDir() ||
					(!strings.HasSuffix(entry.Name(), ".yaml") && !strings.HasSuffix(entry.Name(), ".yml")) {
					continue
				}
				files = append(files, fmt.Sprintf("%s/%s", filename, entry.Name()))
			}
		} else {
			files = append(files, filename)
		}
	}
	return files, nil
}
