package internal

import (
	"io"
	"time"

	"github.com/sitedog/preview/internal/editor"
)

// Mode selects the trigger surfaces the application serves.
type Mode int

const (
	// ModeServe serves the HTTP API and the panel page.
	ModeServe Mode = iota
	// ModeMCP additionally serves MCP tools over stdio.
	ModeMCP
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	mode      Mode
	logOutput io.Writer
	version   string
	now       func() time.Time
	prompter  editor.Prompter
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMode sets the run mode.
func WithMode(mode Mode) Option {
	return func(a *application) {
		a.mode = mode
	}
}

// WithLogOutput sets where logs are written.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(version string) Option {
	return func(a *application) {
		a.version = version
	}
}

// WithClock sets the clock used for date conversion.
func WithClock(now func() time.Time) Option {
	return func(a *application) {
		a.now = now
	}
}

// WithPrompter sets how the convert command asks for confirmation.
func WithPrompter(p editor.Prompter) Option {
	return func(a *application) {
		a.prompter = p
	}
}
