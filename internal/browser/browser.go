// Package browser opens the preview panel page in a real browser window
// driven over the DevTools protocol.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/sitedog/preview/internal/panel"
)

// ErrLaunch is returned when the browser cannot be started or reached.
var ErrLaunch = errors.New("browser: launch failed")

// Opener launches a browser on first use and opens one window per panel.
// Rod downloads Chromium when bin is empty and no browser is installed.
type Opener struct {
	bin    string
	logger *slog.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// New creates an opener. bin is the browser executable; empty means the
// launcher's lookup.
func New(bin string, logger *slog.Logger) *Opener {
	return &Opener{bin: bin, logger: logger}
}

// ensure lazily launches and connects to the browser.
func (o *Opener) ensure() (*rod.Browser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.browser != nil {
		return o.browser, nil
	}

	l := launcher.New().Headless(false)
	if o.bin != "" {
		l = l.Bin(o.bin)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}
	// Target events are needed to notice windows closed by the user.
	if err := (proto.TargetSetDiscoverTargets{Discover: true}).Call(b); err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	o.launcher, o.browser = l, b
	o.logger.Info("browser: launched", slog.String("control_url", u))
	return b, nil
}

// Open opens url in a new browser window.
func (o *Opener) Open(ctx context.Context, url string) (panel.Window, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := o.ensure()
	if err != nil {
		return nil, err
	}
	page, err := b.Page(proto.TargetCreateTarget{URL: url, NewWindow: true})
	if err != nil {
		return nil, fmt.Errorf("browser: open %s: %w", url, err)
	}

	wctx, cancel := context.WithCancel(context.Background())
	w := &window{page: page, cancel: cancel, closed: make(chan struct{})}
	go w.watch(wctx, b)
	return w, nil
}

// Close shuts the browser down.
func (o *Opener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.browser == nil {
		return nil
	}
	err := o.browser.Close()
	o.launcher.Kill()
	o.browser, o.launcher = nil, nil
	return err
}

type window struct {
	page   *rod.Page
	cancel context.CancelFunc
	closed chan struct{}
	once   sync.Once
}

// watch waits for the page's target to be destroyed, or for the browser
// connection to end.
func (w *window) watch(ctx context.Context, b *rod.Browser) {
	defer w.markClosed()
	wait := b.Context(ctx).EachEvent(func(e *proto.TargetTargetDestroyed) bool {
		return e.TargetID == w.page.TargetID
	})
	wait()
}

func (w *window) markClosed() {
	w.once.Do(func() { close(w.closed) })
}

func (w *window) Activate() error {
	_, err := w.page.Activate()
	return err
}

func (w *window) Close() error {
	defer w.cancel()
	return w.page.Close()
}

func (w *window) Closed() <-chan struct{} {
	return w.closed
}
