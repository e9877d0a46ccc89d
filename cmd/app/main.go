package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/ansuz/internal"
	"github.com/starford/ansuz/internal/graph"
	"github.com/starford/ansuz/internal/graphservice"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/vault"
	pkgconfig "github.com/starford/ansuz/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// newService builds the graph service for one-shot commands, without the
// HTTP server or watcher.
func newService(cfg *internal.Config) (*graphservice.Service, *graph.Service, error) {
	provider, err := vault.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init vault: %w", err)
	}
	analyzer := graph.NewService(provider, cfg.Graph.CacheTTL())
	svc := graphservice.New(analyzer, graphservice.Config{
		ContextLength: cfg.Graph.ContextLength,
	})
	return svc, analyzer, nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func statsAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, _, err := newService(cfg)
	if err != nil {
		return err
	}

	if cmd.Bool("full") {
		st, sErr := svc.Stats(ctx, "")
		if sErr != nil {
			return sErr
		}
		return json.NewEncoder(os.Stdout).Encode(st)
	}
	qs, err := svc.Quick(ctx, "")
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(qs)
}

func repairAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, analyzer, err := newService(cfg)
	if err != nil {
		return err
	}

	db, err := index.Open(cfg.Index.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	notes, err := analyzer.Notes("")
	if err != nil {
		return err
	}
	dangling, err := svc.Dangling(ctx, "")
	if err != nil {
		return err
	}
	if err := db.Rebuild(notes, dangling); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	maxDistance := int(cmd.Int("max-distance"))
	type repairLine struct {
		Target      string             `json:"target"`
		Occurrences int                `json:"occurrences"`
		Suggestions []index.Suggestion `json:"suggestions"`
	}
	enc := json.NewEncoder(os.Stdout)
	for _, d := range dangling {
		suggestions, sErr := db.Suggest(d.Target, maxDistance, 5)
		if sErr != nil {
			slog.Warn("suggest failed", slog.String("target", d.Target), slog.String("error", sErr.Error()))
			continue
		}
		if err := enc.Encode(repairLine{
			Target:      d.Target,
			Occurrences: d.Occurrences(),
			Suggestions: suggestions,
		}); err != nil {
			return err
		}
	}
	return nil
}

func mcpAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, _, err := newService(cfg)
	if err != nil {
		return err
	}
	return mcpserver.New(svc).ServeStdio()
}

func main() {
	cmd := &cli.Command{
		Name:   "ansuz",
		Usage:  "Wikilink graph engine for Markdown vaults: backlinks, dangling link repair, and note ranking",
		Action: serveAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server with the vault watcher",
				Action: serveAction,
			},
			{
				Name:   "stats",
				Usage:  "Print graph statistics for the vault and exit",
				Action: statsAction,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "full",
						Usage: "Print the full graph instead of the numeric summary",
					},
				},
			},
			{
				Name:   "repair",
				Usage:  "Rebuild the repair index and print fix suggestions for dangling links",
				Action: repairAction,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max-distance",
						Usage: "Maximum edit distance for suggestions",
						Value: 2,
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve graph tools over the Model Context Protocol on stdio",
				Action: mcpAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
