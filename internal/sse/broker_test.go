package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func recv(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg := <-ch:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
	return ""
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "panel.reveal", Data: map[string]string{"id": "p1"}})

	s := recv(t, ch)
	if !strings.Contains(s, "event: panel.reveal") {
		t.Errorf("missing event type in %q", s)
	}
	if !strings.Contains(s, `"id":"p1"`) {
		t.Errorf("missing data in %q", s)
	}
}

func TestStickyReplay(t *testing.T) {
	b := NewBroker("panel.content")
	defer b.Close()

	b.Publish(Event{Type: "panel.content", Data: map[string]string{"html": "v1"}})
	b.Publish(Event{Type: "panel.content", Data: map[string]string{"html": "v2"}})
	b.Publish(Event{Type: "panel.reveal", Data: map[string]string{}})

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	s := recv(t, ch)
	if !strings.Contains(s, `"html":"v2"`) {
		t.Errorf("expected latest sticky event, got %q", s)
	}
	select {
	case extra := <-ch:
		t.Errorf("non-sticky event replayed: %q", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestForget(t *testing.T) {
	b := NewBroker("panel.content")
	defer b.Close()

	b.Publish(Event{Type: "panel.content", Data: "v1"})
	b.Forget("panel.content")

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)
	select {
	case msg := <-ch:
		t.Errorf("forgotten event replayed: %q", msg)
	case <-time.After(50 * time.Millisecond):
	}

	b.Publish(Event{Type: "panel.content", Data: "v2"})
	if s := recv(t, ch); !strings.Contains(s, `"v2"`) {
		t.Errorf("got %q", s)
	}

	late := b.Subscribe()
	defer b.Unsubscribe(late)
	if s := recv(t, late); !strings.Contains(s, `"v2"`) {
		t.Errorf("re-published sticky event should be replayed once, got %q", s)
	}
	select {
	case msg := <-late:
		t.Errorf("duplicate replay: %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCloseClosesClients(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()
	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("client channel not closed")
	}

	b.Publish(Event{Type: "x"})
	b.Forget("x")
	if b.ClientCount() != 0 {
		t.Error("closed broker should report 0 clients")
	}
	if _, ok := <-b.Subscribe(); ok {
		t.Error("subscribe after close should return a closed channel")
	}
}

func TestServeHTTP_Streams(t *testing.T) {
	b := NewBroker("panel.content")
	defer b.Close()
	b.Publish(Event{Type: "panel.content", Data: map[string]string{"html": "<p>x</p>"}})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(rec, req)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && b.ClientCount() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "event: panel.content") {
		t.Errorf("body = %q", rec.Body.String())
	}
}
