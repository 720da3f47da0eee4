// Package sse implements a Server-Sent Events broker for real-time updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// envelope carries an event to broadcast, a request to drop a retained
// sticky event, or a new subscriber. All share one channel so a Subscribe
// observes every Publish and Forget issued before it.
type envelope struct {
	event     Event
	forget    bool
	subscribe chan []byte
	ack       chan struct{}
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients + retained sticky events). Public methods communicate with this loop
// through channels, so no mutexes are required.
//
// Events whose type is registered as sticky are retained, and the latest one
// of each sticky type is replayed to every new subscriber.
type Broker struct {
	sticky      map[string]bool
	stickyOrder []string

	unsubscribeCh chan chan []byte
	publishCh     chan envelope
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. Events of the given types are
// retained and replayed on subscribe.
func NewBroker(stickyTypes ...string) *Broker {
	sticky := make(map[string]bool, len(stickyTypes))
	for _, t := range stickyTypes {
		sticky[t] = true
	}

	b := &Broker{
		sticky:        sticky,
		stickyOrder:   stickyTypes,
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan envelope, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	retained := make(map[string][]byte)

	send := func(ch chan []byte, raw []byte) {
		select {
		case ch <- raw:
		default:
			// Client buffer full; skip to avoid blocking broker loop.
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case env := <-b.publishCh:
			if env.subscribe != nil {
				clients[env.subscribe] = struct{}{}
				for _, t := range b.stickyOrder {
					if raw, ok := retained[t]; ok {
						send(env.subscribe, raw)
					}
				}
				close(env.ack)
				continue
			}
			event := env.event
			if env.forget {
				delete(retained, event.Type)
				continue
			}
			raw, err := encode(event)
			if err != nil {
				continue
			}
			if b.sticky[event.Type] {
				retained[event.Type] = raw
			}
			for ch := range clients {
				send(ch, raw)
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel. Retained sticky
// events are queued on the channel immediately.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	ack := make(chan struct{})
	select {
	case b.publishCh <- envelope{subscribe: ch, ack: ack}:
	case <-b.stopped:
		close(ch)
		return ch
	}

	select {
	case <-ack:
	case <-b.stopped:
		select {
		case <-ack:
		default:
			close(ch)
		}
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- envelope{event: event}:
	case <-b.stopped:
	}
}

// Forget drops the retained event of a sticky type so later subscribers
// no longer receive it. Events published before Forget are still
// delivered to current subscribers.
func (b *Broker) Forget(eventType string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- envelope{event: Event{Type: eventType}, forget: true}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
