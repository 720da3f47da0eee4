package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	_ "go.uber.org/automaxprocs"

	"github.com/sitedog/preview/internal"
	"github.com/sitedog/preview/internal/editor"
	"github.com/sitedog/preview/internal/tui"
	pkgconfig "github.com/sitedog/preview/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cmd.IsSet("root") {
		cfg.Workspace.Root = cmd.String("root")
	}
	if cmd.IsSet("port") {
		cfg.App.HTTP.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("open") {
		cfg.Preview.OpenBrowser = cmd.Bool("open")
	}
	return cfg, nil
}

func serve(mode internal.Mode, logOutput io.Writer) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithMode(mode),
			internal.WithLogOutput(logOutput),
			internal.WithVersion(version),
		}

		if err := internal.Run(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

func convert(ctx context.Context, cmd *cli.Command) error {
	file := cmd.Args().First()
	if file == "" {
		return fmt.Errorf("convert: file argument is required")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Keep informational logs off the terminal the prompt runs on.
	cfg.App.LogLevel = max(cfg.App.LogLevel, slog.LevelWarn)

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
	}
	if v := cmd.String("now"); v != "" {
		now, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return fmt.Errorf("convert: invalid --now %q: %w", v, err)
		}
		opts = append(opts, internal.WithClock(func() time.Time { return now }))
	}
	switch {
	case cmd.Bool("dry-run"):
	case cmd.Bool("yes"):
		opts = append(opts, internal.WithPrompter(editor.Answer(true)))
	default:
		opts = append(opts, internal.WithPrompter(tui.NewPrompter(os.Stdin, os.Stderr)))
	}

	res, err := internal.Convert(ctx, file, !cmd.Bool("dry-run"), opts...)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}

	if res.Found == 0 {
		fmt.Println("No relative dates found in the current document.")
		return nil
	}
	for _, d := range res.Dates {
		fmt.Printf("line %d: %s -> %s\n", d.Line, d.Relative, d.Date)
	}
	switch {
	case res.Converted > 0:
		fmt.Printf("Converted %d relative date(s) to absolute dates.\n", res.Converted)
	case cmd.Bool("dry-run"):
		fmt.Printf("Found %d relative date(s); nothing written.\n", res.Found)
	default:
		fmt.Println("Conversion declined.")
	}
	return nil
}

func main() {
	serverFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "root",
			Aliases: []string{"r"},
			Usage:   "Workspace root to serve",
			Sources: cli.EnvVars("SITEDOG_ROOT"),
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "HTTP port",
			Sources: cli.EnvVars("SITEDOG_PORT"),
		},
		&cli.BoolFlag{
			Name:    "open",
			Usage:   "Open the preview panel in a browser window",
			Sources: cli.EnvVars("SITEDOG_OPEN_BROWSER"),
		},
	}

	cmd := &cli.Command{
		Name:    "sitedog-preview",
		Usage:   "Live cards preview and relative date conversion for sitedog.yml files",
		Version: version,
		Action:  serve(internal.ModeServe, os.Stdout),
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		}, serverFlags...),
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the preview panel and the HTTP API",
				Action: serve(internal.ModeServe, os.Stdout),
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio alongside the HTTP API",
				Action: serve(internal.ModeMCP, os.Stderr),
			},
			{
				Name:      "convert",
				Usage:     "Add absolute expires_date lines after relative expiry dates",
				ArgsUsage: "FILE",
				Action:    convert,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Convert without asking",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Only list the relative dates",
					},
					&cli.StringFlag{
						Name:  "now",
						Usage: "Reference date (YYYY-MM-DD) instead of today",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
