// Package panel serves the preview panel as a browser page. Panel content
// and lifecycle changes travel to the page over Server-Sent Events.
package panel

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/sitedog/preview/internal/checksum"
	"github.com/sitedog/preview/internal/editor"
	"github.com/sitedog/preview/internal/preview"
	"github.com/sitedog/preview/internal/sse"
)

// Event types published by panels.
const (
	EventContent  = "panel.content"
	EventState    = "panel.state"
	EventReveal   = "panel.reveal"
	EventMessage  = "panel.message"
	EventDisposed = "panel.disposed"
	EventNotice   = "panel.notice"
)

// StickyEvents are the event types the broker should retain for pages
// that connect after the fact.
var StickyEvents = []string{EventState, EventContent}

// Window is an external browser window showing the panel page.
type Window interface {
	Activate() error
	Close() error
	// Closed is closed when the user closes the window.
	Closed() <-chan struct{}
}

// Opener opens the panel page in a browser window.
type Opener interface {
	Open(ctx context.Context, url string) (Window, error)
}

// CloseFunc is called when the user closes a panel from the browser side.
// It must route the close through the panel's owner, which then calls
// Dispose.
type CloseFunc func(panelID string)

// Snapshot is the current document of the live panel.
type Snapshot struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	HTML     string `json:"html"`
	Revision string `json:"revision"`
}

// Hub creates panels and tracks the live one. It implements
// preview.PanelFactory.
type Hub struct {
	broker  *sse.Broker
	pageURL string
	opener  Opener
	logger  *slog.Logger

	mu      sync.Mutex
	current *webPanel
	onClose CloseFunc
}

// NewHub creates a hub publishing to broker. pageURL is where the panel
// page is served; opener may be nil.
func NewHub(broker *sse.Broker, pageURL string, opener Opener, logger *slog.Logger) *Hub {
	return &Hub{broker: broker, pageURL: pageURL, opener: opener, logger: logger}
}

// Notify shows a user-facing message on connected panel pages.
func (h *Hub) Notify(msg editor.Message) {
	h.broker.Publish(sse.Event{Type: EventNotice, Data: msg})
}

// OnUserClose sets the callback for closes initiated from the browser.
func (h *Hub) OnUserClose(fn CloseFunc) {
	h.mu.Lock()
	h.onClose = fn
	h.mu.Unlock()
}

// CreatePanel creates a panel and, with an opener, a browser window for it.
func (h *Hub) CreatePanel(opts preview.PanelOptions) (preview.Panel, error) {
	p := &webPanel{
		id:    uuid.NewString(),
		title: opts.Title,
		hub:   h,
	}

	if h.opener != nil {
		w, err := h.opener.Open(context.Background(), h.pageURL)
		if err != nil {
			return nil, err
		}
		p.window = w
		go h.watchWindow(p, w)
	}

	h.mu.Lock()
	h.current = p
	h.mu.Unlock()

	h.broker.Publish(sse.Event{Type: EventState, Data: map[string]any{
		"open":   true,
		"id":     p.id,
		"title":  p.title,
		"column": string(opts.Column),
	}})
	h.logger.Debug("panel: created", slog.String("id", p.id), slog.String("url", h.pageURL))
	return p, nil
}

// Current returns the live panel's document.
func (h *Hub) Current() (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return Snapshot{}, false
	}
	return h.current.snapshot(), true
}

// RequestClose asks the owner to close the panel with the given id, or
// the live panel when id is empty. It reports whether a live panel
// matched.
func (h *Hub) RequestClose(id string) bool {
	h.mu.Lock()
	cur := h.current
	fn := h.onClose
	h.mu.Unlock()

	if cur == nil || (id != "" && id != cur.id) {
		return false
	}
	if fn != nil {
		fn(cur.id)
	} else {
		cur.Dispose()
	}
	return true
}

func (h *Hub) watchWindow(p *webPanel, w Window) {
	<-w.Closed()
	if p.isDisposed() {
		return
	}
	h.logger.Info("panel: browser window closed", slog.String("id", p.id))
	h.RequestClose(p.id)
}

func (h *Hub) released(p *webPanel) {
	h.mu.Lock()
	if h.current == p {
		h.current = nil
	}
	h.mu.Unlock()

	h.broker.Forget(EventContent)
	h.broker.Publish(sse.Event{Type: EventState, Data: map[string]any{"open": false, "id": p.id}})
	h.broker.Publish(sse.Event{Type: EventDisposed, Data: map[string]string{"id": p.id}})
}

// webPanel is a preview.Panel rendered by every connected panel page.
type webPanel struct {
	id     string
	title  string
	hub    *Hub
	window Window

	mu       sync.Mutex
	html     string
	revision string
	disposed bool
	onDis    []func()
}

func (p *webPanel) ID() string { return p.id }

func (p *webPanel) SetHTML(html string) {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.html = html
	p.revision = checksum.Revision(html)
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.hub.broker.Publish(sse.Event{Type: EventContent, Data: snap})
}

func (p *webPanel) Reveal(column preview.ViewColumn) {
	if p.isDisposed() {
		return
	}
	if p.window != nil {
		if err := p.window.Activate(); err != nil {
			p.hub.logger.Warn("panel: activate window failed", slog.String("error", err.Error()))
		}
	}
	p.hub.broker.Publish(sse.Event{Type: EventReveal, Data: map[string]string{
		"id":     p.id,
		"column": string(column),
	}})
}

func (p *webPanel) PostMessage(msg preview.UpdateMessage) error {
	if p.isDisposed() {
		return nil
	}
	p.hub.broker.Publish(sse.Event{Type: EventMessage, Data: msg})
	return nil
}

func (p *webPanel) OnDidDispose(fn func()) {
	p.mu.Lock()
	p.onDis = append(p.onDis, fn)
	p.mu.Unlock()
}

func (p *webPanel) Dispose() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	callbacks := p.onDis
	p.onDis = nil
	p.mu.Unlock()

	if p.window != nil {
		if err := p.window.Close(); err != nil {
			p.hub.logger.Debug("panel: close window", slog.String("error", err.Error()))
		}
	}
	p.hub.released(p)
	for _, fn := range callbacks {
		fn()
	}
}

func (p *webPanel) isDisposed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disposed
}

func (p *webPanel) snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *webPanel) snapshotLocked() Snapshot {
	return Snapshot{ID: p.id, Title: p.title, HTML: p.html, Revision: p.revision}
}
