package preview

import (
	"fmt"
	"log/slog"

	"github.com/sitedog/preview/internal/apperr"
)

// Reader reads workspace files by root-relative path.
type Reader interface {
	Read(path string) ([]byte, error)
}

// State describes the preview panel.
type State struct {
	Open    bool   `json:"open"`
	PanelID string `json:"panel_id,omitempty"`
	File    string `json:"file,omitempty"`
	Kind    Kind   `json:"kind,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Controller owns the single preview panel. The panel handle is nil while
// no panel exists; Show creates it and disposal clears it. Controller is
// not safe for concurrent use; its owner serialises calls.
type Controller struct {
	factory  PanelFactory
	renderer *Renderer
	files    Reader
	logger   *slog.Logger
	title    string

	panel Panel
	file  string
	last  Result
}

// NewController creates a controller with no panel.
func NewController(factory PanelFactory, renderer *Renderer, files Reader, logger *slog.Logger) *Controller {
	return &Controller{
		factory:  factory,
		renderer: renderer,
		files:    files,
		logger:   logger,
		title:    renderer.assets.Title,
	}
}

// IsOpen reports whether a panel exists.
func (c *Controller) IsOpen() bool {
	return c.panel != nil
}

// Show creates the panel if needed, or reveals the existing one, and then
// refreshes it from the file at path.
func (c *Controller) Show(path string) error {
	if c.panel == nil {
		p, err := c.factory.CreatePanel(PanelOptions{
			ViewType:                ViewType,
			Title:                   c.title,
			Column:                  ColumnBeside,
			EnableScripts:           true,
			RetainContextWhenHidden: true,
		})
		if err != nil {
			return fmt.Errorf("preview: create panel: %w", err)
		}
		c.panel = p
		p.OnDidDispose(func() { c.forget(p) })
		c.logger.Info("preview: panel created", slog.String("panel_id", p.ID()))
	} else {
		c.panel.Reveal(ColumnBeside)
	}
	c.RefreshFromFile(path)
	return nil
}

// RefreshFromFile re-reads path from disk and replaces the panel content.
// It returns false when there is no panel.
func (c *Controller) RefreshFromFile(path string) bool {
	if c.panel == nil {
		return false
	}
	c.file = path
	data, err := c.files.Read(path)
	if err != nil {
		c.apply(c.renderer.RenderReadError(err))
		return true
	}
	c.apply(c.renderer.Render(string(data)))
	return true
}

// RefreshFromText replaces the panel content from in-memory text of path.
// It returns false when there is no panel.
func (c *Controller) RefreshFromText(path, text string) bool {
	if c.panel == nil {
		return false
	}
	c.file = path
	c.apply(c.renderer.Render(text))
	return true
}

// PostUpdate sends the update message carrying text to the panel.
func (c *Controller) PostUpdate(text string) error {
	if c.panel == nil {
		return apperr.ErrNoPanel
	}
	return c.panel.PostMessage(UpdateMessage{Command: "update", YAML: text})
}

// Dispose closes the panel. It returns false when there is none.
func (c *Controller) Dispose() bool {
	p := c.panel
	if p == nil {
		return false
	}
	p.Dispose()
	c.forget(p)
	return true
}

// State returns the current panel state.
func (c *Controller) State() State {
	if c.panel == nil {
		return State{}
	}
	st := State{Open: true, PanelID: c.panel.ID(), File: c.file, Kind: c.last.Kind}
	if c.last.Err != nil {
		st.Error = c.last.Err.Error()
	}
	return st
}

// Result returns the last rendered document.
func (c *Controller) Result() Result {
	return c.last
}

func (c *Controller) apply(res Result) {
	c.last = res
	c.panel.SetHTML(res.HTML)
	if res.Err != nil {
		c.logger.Debug("preview: rendered error view",
			slog.String("file", c.file),
			slog.String("kind", string(res.Kind)),
			slog.String("error", res.Err.Error()))
		return
	}
	c.logger.Debug("preview: rendered", slog.String("file", c.file))
}

func (c *Controller) forget(p Panel) {
	if c.panel != p {
		return
	}
	c.logger.Info("preview: panel disposed", slog.String("panel_id", p.ID()))
	c.panel = nil
	c.file = ""
	c.last = Result{}
}
