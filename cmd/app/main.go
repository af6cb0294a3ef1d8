package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/notebase/internal"
	pkgconfig "github.com/starford/notebase/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if backend := cmd.String("backend"); backend != "" {
		cfg.Client.Backend = backend
		if err := cfg.Client.Validate(); err != nil {
			return nil, fmt.Errorf("invalid backend: %w", err)
		}
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "notebase",
		Usage:  "Personal tracker for tasks, debts, shows and grocery lists kept as Markdown records",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "backend",
				Usage:   "Content client backend for item commands: live or mock",
				Sources: cli.EnvVars("NOTEBASE_BACKEND"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the content store server over the Markdown vault",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve tracker tools to an MCP client over stdio",
				Action: serveMCP,
			},
			listCommand(),
			showCommand(),
			toggleCommand(),
			payCommand(),
			transactionCommand(),
			checkCommand(),
			nextEpisodeCommand(),
			editCommand(),
			watchCommand(),
			filterCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
