// Package session serialises editor triggers. Commands, live edits, file
// changes and panel events all run one at a time on the session loop, which
// owns the open documents and the preview controller.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/sitedog/preview/internal/apperr"
	"github.com/sitedog/preview/internal/editor"
	"github.com/sitedog/preview/internal/preview"
)

// DefaultFileName is the configuration file the preview accepts.
const DefaultFileName = "sitedog.yml"

// Confirmation buttons of the convert prompt.
const (
	AcceptLabel  = "Yes"
	DeclineLabel = "No"
)

// ErrClosed is returned when the session loop is not running anymore.
var ErrClosed = errors.New("session: closed")

// Files is the workspace seen by the session.
type Files interface {
	Read(path string) ([]byte, error)
	Write(path string, content []byte) error
	Rel(path string) (string, error)
}

// Options configures a Session.
type Options struct {
	// FileName is the base name ShowPreview and live refresh accept.
	FileName string
	// Now returns the current time for date conversion.
	Now func() time.Time
	// Notifier receives user-facing messages.
	Notifier editor.Notifier
}

type request struct {
	fn   func()
	done chan struct{}
}

// Session executes editor triggers sequentially.
type Session struct {
	files    Files
	buffers  *editor.Buffers
	preview  *preview.Controller
	notifier editor.Notifier
	logger   *slog.Logger
	fileName string
	now      func() time.Time

	reqs    chan request
	stopped chan struct{}
}

// New creates a session. Run must be started before any operation returns.
func New(files Files, ctrl *preview.Controller, logger *slog.Logger, opts Options) *Session {
	if opts.FileName == "" {
		opts.FileName = DefaultFileName
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Notifier == nil {
		opts.Notifier = editor.LogNotifier(logger)
	}
	return &Session{
		files:    files,
		buffers:  editor.NewBuffers(),
		preview:  ctrl,
		notifier: opts.Notifier,
		logger:   logger,
		fileName: opts.FileName,
		now:      opts.Now,
		reqs:     make(chan request),
		stopped:  make(chan struct{}),
	}
}

// FileName returns the accepted configuration file name.
func (s *Session) FileName() string {
	return s.fileName
}

// Run processes triggers until ctx is cancelled. The open panel is disposed
// on the way out.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.stopped)
	s.logger.Info("session: started", slog.String("file_name", s.fileName))
	for {
		select {
		case <-ctx.Done():
			s.preview.Dispose()
			s.logger.Info("session: stopped")
			return nil
		case req := <-s.reqs:
			req.fn()
			close(req.done)
		}
	}
}

// exec runs fn on the session loop and waits for it.
func (s *Session) exec(ctx context.Context, fn func() error) error {
	var err error
	req := request{fn: func() { err = fn() }, done: make(chan struct{})}
	select {
	case s.reqs <- req:
	case <-s.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-req.done
	return err
}

// resolve returns the document at p, loading it from disk when it is not
// open yet, or the active document when p is empty.
func (s *Session) resolve(p string) (*editor.Document, error) {
	if p == "" {
		doc := s.buffers.Active()
		if doc == nil {
			return nil, apperr.ErrNoActiveEditor
		}
		return doc, nil
	}
	rel, err := s.files.Rel(p)
	if err != nil {
		return nil, err
	}
	if doc, err := s.buffers.Activate(rel); err == nil {
		return doc, nil
	}
	return s.load(rel)
}

func (s *Session) load(rel string) (*editor.Document, error) {
	data, err := s.files.Read(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("document %s: %w", rel, apperr.ErrNotFound)
		}
		return nil, err
	}
	return s.buffers.Open(rel, string(data)), nil
}

func (s *Session) matches(p string) bool {
	return path.Base(p) == s.fileName
}

// UserMessage returns the message shown to the user for a command error,
// or "" when err has none.
func (s *Session) UserMessage(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNoActiveEditor):
		return "No active editor found"
	case errors.Is(err, apperr.ErrWrongFileName):
		return fmt.Sprintf("Please open a %s file", s.fileName)
	}
	return ""
}

// report shows the user message matching err and returns err.
func (s *Session) report(err error) error {
	if msg := s.UserMessage(err); msg != "" {
		editor.Error(s.notifier, msg)
	}
	return err
}

// ShowPreview opens the preview for the document at path, or the active
// document, creating the panel or revealing the existing one.
func (s *Session) ShowPreview(ctx context.Context, path string) (preview.State, error) {
	var st preview.State
	err := s.exec(ctx, func() error {
		doc, err := s.resolve(path)
		if err != nil {
			return s.report(err)
		}
		if !s.matches(doc.Path) {
			return s.report(fmt.Errorf("%s: %w", doc.Path, apperr.ErrWrongFileName))
		}
		if err := s.preview.Show(doc.Path); err != nil {
			return err
		}
		st = s.preview.State()
		return nil
	})
	return st, err
}

// RefreshPreview re-reads the active document from disk into the panel. It
// does nothing without a panel or an active document.
func (s *Session) RefreshPreview(ctx context.Context) (preview.State, error) {
	var st preview.State
	err := s.exec(ctx, func() error {
		if s.preview.IsOpen() {
			if doc := s.buffers.Active(); doc != nil {
				s.preview.RefreshFromFile(doc.Path)
			}
		}
		st = s.preview.State()
		return nil
	})
	return st, err
}

// FileChanged handles a change of the file at path on disk. Clean buffers
// are reloaded and an open panel shows the file's new content.
func (s *Session) FileChanged(ctx context.Context, path string) error {
	return s.exec(ctx, func() error {
		rel, err := s.files.Rel(path)
		if err != nil {
			return err
		}
		if _, err := s.buffers.Get(rel); err == nil {
			if data, err := s.files.Read(rel); err == nil {
				s.buffers.Sync(rel, string(data))
			}
		}
		if s.preview.RefreshFromFile(rel) {
			s.logger.Debug("session: refreshed on file change", slog.String("path", rel))
		}
		return nil
	})
}

// EditDocument replaces the in-memory text of an open document. A matching
// file refreshes the open panel from the new text.
func (s *Session) EditDocument(ctx context.Context, path, text string) (editor.Document, error) {
	var out editor.Document
	err := s.exec(ctx, func() error {
		rel, err := s.files.Rel(path)
		if err != nil {
			return err
		}
		if _, err := s.buffers.Get(rel); err != nil {
			if _, err := s.load(rel); err != nil {
				if !errors.Is(err, apperr.ErrNotFound) {
					return err
				}
				s.buffers.Open(rel, "")
			}
		}
		doc, err := s.buffers.Update(rel, text)
		if err != nil {
			return err
		}
		s.liveRefresh(doc)
		out = *doc
		return nil
	})
	return out, err
}

func (s *Session) liveRefresh(doc *editor.Document) {
	if s.matches(doc.Path) && s.preview.RefreshFromText(doc.Path, doc.Text) {
		s.logger.Debug("session: live refresh", slog.String("path", doc.Path), slog.Int("version", doc.Version))
	}
}

// OpenDocument opens the document at path from disk and makes it active.
func (s *Session) OpenDocument(ctx context.Context, path string) (editor.Document, error) {
	var out editor.Document
	err := s.exec(ctx, func() error {
		doc, err := s.resolve(path)
		if err != nil {
			return err
		}
		out = *doc
		return nil
	})
	return out, err
}

// ActivateDocument makes an already open document active.
func (s *Session) ActivateDocument(ctx context.Context, path string) (editor.Document, error) {
	var out editor.Document
	err := s.exec(ctx, func() error {
		rel, err := s.files.Rel(path)
		if err != nil {
			return err
		}
		doc, err := s.buffers.Activate(rel)
		if err != nil {
			return err
		}
		out = *doc
		return nil
	})
	return out, err
}

// SaveDocument writes the in-memory text of an open document to disk.
func (s *Session) SaveDocument(ctx context.Context, path string) (editor.Document, error) {
	var out editor.Document
	err := s.exec(ctx, func() error {
		rel, err := s.files.Rel(path)
		if err != nil {
			return err
		}
		doc, err := s.buffers.Get(rel)
		if err != nil {
			return err
		}
		if err := s.save(doc); err != nil {
			return err
		}
		out = *doc
		return nil
	})
	return out, err
}

func (s *Session) save(doc *editor.Document) error {
	if err := s.files.Write(doc.Path, []byte(doc.Text)); err != nil {
		return err
	}
	s.buffers.MarkSaved(doc.Path)
	s.logger.Info("session: saved", slog.String("path", doc.Path), slog.Int("version", doc.Version))
	return nil
}

// CloseDocument forgets an open document. Unsaved changes are dropped.
func (s *Session) CloseDocument(ctx context.Context, path string) error {
	return s.exec(ctx, func() error {
		rel, err := s.files.Rel(path)
		if err != nil {
			return err
		}
		if _, err := s.buffers.Get(rel); err != nil {
			return err
		}
		s.buffers.Close(rel)
		return nil
	})
}

// Document returns a copy of the open document at path, or of the active
// document when path is empty.
func (s *Session) Document(ctx context.Context, path string) (editor.Document, error) {
	var out editor.Document
	err := s.exec(ctx, func() error {
		var doc *editor.Document
		if path == "" {
			doc = s.buffers.Active()
			if doc == nil {
				return apperr.ErrNoActiveEditor
			}
		} else {
			rel, err := s.files.Rel(path)
			if err != nil {
				return err
			}
			if doc, err = s.buffers.Get(rel); err != nil {
				return err
			}
		}
		out = *doc
		return nil
	})
	return out, err
}

// Documents lists the paths of open documents.
func (s *Session) Documents(ctx context.Context) ([]string, error) {
	var out []string
	err := s.exec(ctx, func() error {
		out = s.buffers.Paths()
		return nil
	})
	return out, err
}

// ClosePanel disposes the preview panel. It reports whether one was open.
func (s *Session) ClosePanel(ctx context.Context) (bool, error) {
	var closed bool
	err := s.exec(ctx, func() error {
		closed = s.preview.Dispose()
		return nil
	})
	return closed, err
}

// PostPanelUpdate sends the update message with text to the open panel.
func (s *Session) PostPanelUpdate(ctx context.Context, text string) error {
	return s.exec(ctx, func() error {
		return s.preview.PostUpdate(text)
	})
}

// PanelState returns the preview panel state.
func (s *Session) PanelState(ctx context.Context) (preview.State, error) {
	var st preview.State
	err := s.exec(ctx, func() error {
		st = s.preview.State()
		return nil
	})
	return st, err
}
