package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/atotto/clipboard"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/linkpeek/internal"
	pkgconfig "github.com/starford/linkpeek/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if v := cmd.String("vault"); v != "" {
		cfg.Vault.Path = v
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
		internal.WithVersion(version),
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
	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
}

func resolve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	res, ok, err := internal.ResolveOnce(ctx, cfg, cmd.String("line"), int(cmd.Int("cursor")))
	if err != nil {
		return err
	}
	if !ok {
		return cli.Exit("no link at cursor", 2)
	}

	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Fprintln(cmd.Root().Writer, string(out))

	if cmd.Bool("copy") {
		target := res.Link.Target()
		if res.File != "" {
			target = res.File
		}
		if err := clipboard.WriteAll(target); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "linkpeek",
		Usage:   "Link resolution and duplicate-view reconciliation service for a note app's modal link previews",
		Version: version,
		Action:  serve,
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
				Name:    "vault",
				Usage:   "Vault directory (overrides vault.path)",
				Sources: cli.EnvVars("LINKPEEK_VAULT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP/SSE service (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:   "resolve",
				Usage:  "Resolve the link under a cursor position and print it as JSON",
				Action: resolve,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "line", Usage: "Line of Markdown source", Required: true},
					&cli.IntFlag{Name: "cursor", Usage: "Cursor offset in UTF-16 code units", Required: true},
					&cli.BoolFlag{Name: "copy", Usage: "Copy the resolved file or link target to the clipboard"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
