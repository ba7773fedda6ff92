// Package main 运维引导命令：建表与导入项目
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ghostwriter-ai-api/internal/config"
	"ghostwriter-ai-api/internal/wire"
	"ghostwriter-ai-api/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bootstrap",
		Short:         "Database bootstrap for the ghostwriter API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(), newSeedCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables for all entities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			data, cleanup, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := data.PgClient.AutoMigrate(ctx); err != nil {
				return fmt.Errorf("auto migrate: %w", err)
			}
			fmt.Println("Migration complete.")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a project and its outline from a YAML file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			seed, err := parseSeed(raw, cfg.Generation.MaxOutputTokensCeiling)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			data, cleanup, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			project, outline := seed.build()
			err = data.TxManager.WithTransaction(ctx, func(ctx context.Context) error {
				if err := data.ProjectRepo.Create(ctx, project); err != nil {
					return err
				}
				return data.OutlineRepo.Save(ctx, outline)
			})
			if err != nil {
				return fmt.Errorf("seed project: %w", err)
			}
			fmt.Printf("Project created with ID: %s (%d planned chapters)\n", project.ID, outline.TotalChapters())
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "project.yaml", "seed file path")
	return cmd
}

// loadConfig 加载配置并初始化日志
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	return cfg, nil
}

// connect 连接 PostgreSQL
func connect(ctx context.Context, cfg *config.Config) (*wire.PostgresOnlyDataLayer, func(), error) {
	data, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	return data, cleanup, nil
}
