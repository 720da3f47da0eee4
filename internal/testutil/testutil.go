// Package testutil provides shared test helpers for setting up workspaces and sessions.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/sitedog/preview/internal/session"
	"github.com/sitedog/preview/internal/workspace"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WriteFile writes content to the slash-separated rel path under root,
// creating parent directories.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Workspace creates a temporary workspace holding files, keyed by
// slash-separated relative path.
func Workspace(t *testing.T, files map[string]string) (string, *workspace.FS) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		WriteFile(t, root, rel, content)
	}
	fs, err := workspace.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, fs
}

// Run runs the session loop until the test ends.
func Run(t *testing.T, sess *session.Session) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = sess.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}
