// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/sitedog/preview/internal/api"
	"github.com/sitedog/preview/internal/browser"
	"github.com/sitedog/preview/internal/editor"
	"github.com/sitedog/preview/internal/mcpserver"
	"github.com/sitedog/preview/internal/panel"
	"github.com/sitedog/preview/internal/preview"
	"github.com/sitedog/preview/internal/session"
	"github.com/sitedog/preview/internal/sse"
	"github.com/sitedog/preview/internal/workspace"
)

const shutdownTimeout = 10 * time.Second

// components are the long-lived parts shared by every run mode.
type components struct {
	files  *workspace.FS
	broker *sse.Broker
	hub    *panel.Hub
	sess   *session.Session
	opener *browser.Opener
}

func (c *components) close(logger *slog.Logger) {
	c.broker.Close()
	if c.opener != nil {
		if err := c.opener.Close(); err != nil {
			logger.Warn("browser close failed", slog.String("error", err.Error()))
		}
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{
		logOutput: os.Stdout,
		version:   "dev",
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
}

func (a *application) build(logger *slog.Logger, root string, withBrowser bool) (*components, error) {
	cfg := a.config

	files, err := workspace.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("init workspace: %w", err)
	}

	c := &components{
		files:  files,
		broker: sse.NewBroker(panel.StickyEvents...),
	}

	var opener panel.Opener
	if withBrowser && cfg.Preview.OpenBrowser {
		c.opener = browser.New(cfg.Preview.BrowserBin, logger)
		opener = c.opener
	}
	c.hub = panel.NewHub(c.broker, cfg.App.HTTP.BaseURL()+"/panel", opener, logger)

	ctrl := preview.NewController(c.hub, preview.NewRenderer(cfg.Preview.Assets()), files, logger)
	c.sess = session.New(files, ctrl, logger, session.Options{
		FileName: cfg.Workspace.FileName,
		Now:      a.now,
		Notifier: editor.Fanout(editor.LogNotifier(logger), c.hub),
	})
	return c, nil
}

func (a *application) router(c *components) http.Handler {
	cfg := a.config

	h := api.NewHandler(c.sess, c.files, c.hub)
	apiRouter := api.NewRouter(h, cfg.Auth.AuthEnabled(), cfg.Auth.Token, c.broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  log.New(a.logOutput, "", log.LstdFlags),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// The panel page carries no data; its event stream is authenticated.
	r.Get("/panel", panel.PageHandler(cfg.Preview.Title, "/api/events", "/api/panel/close"))
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		target := "/panel"
		if q := req.URL.RawQuery; q != "" {
			target += "?" + q
		}
		http.Redirect(w, req, target, http.StatusFound)
	})

	r.Mount("/api", apiRouter)
	return r
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := app.newLogger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_root", cfg.Workspace.Root),
		slog.String("file_name", cfg.Workspace.FileName),
		slog.Bool("open_browser", cfg.Preview.OpenBrowser),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := app.build(logger, cfg.Workspace.Root, true)
	if err != nil {
		return err
	}
	defer c.close(logger)

	c.hub.OnUserClose(func(panelID string) {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if _, err := c.sess.ClosePanel(closeCtx); err != nil && !errors.Is(err, session.ErrClosed) {
			logger.Warn("close panel failed", slog.String("panel_id", panelID), slog.String("error", err.Error()))
		}
	})

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           app.router(c),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("panel_url", cfg.App.HTTP.BaseURL()+"/panel"))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	// Session loop.
	g.Go(func() error {
		return c.sess.Run(gCtx)
	})

	// Refresh the preview when a configuration file changes on disk.
	g.Go(func() error {
		err := workspace.Watch(gCtx, c.files.Root(), cfg.Workspace.FileName, workspace.DefaultDebounce, logger, func(path string) {
			if err := c.sess.FileChanged(gCtx, path); err != nil && !errors.Is(err, session.ErrClosed) && gCtx.Err() == nil {
				logger.Warn("file change refresh failed", slog.String("path", path), slog.String("error", err.Error()))
			}
		})
		if err != nil {
			logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// MCP over stdio; the application stops when the client hangs up.
	if app.mode == ModeMCP {
		srv := mcpserver.New(c.sess, c.files, app.version)
		g.Go(func() error {
			defer cancel()
			logger.Info("Starting MCP server on stdio")
			if err := srv.Listen(gCtx, os.Stdin, os.Stdout, app.logOutput); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		})
	}

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Ends open event streams so Shutdown does not wait on them.
		c.broker.Close()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// Convert runs the relative date conversion on a single file without
// serving anything. The file's directory becomes the workspace root. The
// user confirms through the prompter set with WithPrompter; without one
// the conversion is only reported.
func Convert(ctx context.Context, file string, save bool, opts ...Option) (session.ConvertResult, error) {
	app, err := newApplication(opts)
	if err != nil {
		return session.ConvertResult{}, err
	}
	logger := app.newLogger()

	abs, err := filepath.Abs(file)
	if err != nil {
		return session.ConvertResult{}, fmt.Errorf("resolve %s: %w", file, err)
	}
	c, err := app.build(logger, filepath.Dir(abs), false)
	if err != nil {
		return session.ConvertResult{}, err
	}
	defer c.close(logger)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.sess.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	prompter := app.prompter
	if prompter == nil {
		prompter = editor.Answer(false)
	}
	return c.sess.ConvertRelativeDates(ctx, abs, prompter, save)
}
