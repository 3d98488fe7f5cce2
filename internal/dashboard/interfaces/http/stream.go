package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"cragwatch/internal/dashboard/application/events"
)

// RefreshBroker fans out view refresh announcements to connected SSE
// clients, so the page repaints right after a rebuild instead of waiting
// for its own poll tick.
type RefreshBroker struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

// NewRefreshBroker constructs a broker with no clients.
func NewRefreshBroker() *RefreshBroker {
	return &RefreshBroker{clients: make(map[chan []byte]struct{})}
}

// HandleViewRefreshed is the event bus subscriber for rebuild announcements.
// Delivery happens under the lock so a concurrent Unsubscribe can never
// close a channel between snapshot and send; sends never block, a slow
// client simply misses the event and catches up on the next one.
func (b *RefreshBroker) HandleViewRefreshed(_ context.Context, event events.ViewRefreshed) error {
	payload, err := json.Marshal(map[string]any{
		"mode": event.Mode,
		"at":   event.At,
	})
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe registers a client and returns its delivery channel.
func (b *RefreshBroker) Subscribe() chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a client and closes its channel. Channels that are
// not (or no longer) subscribed are ignored, so a double unsubscribe is
// harmless.
func (b *RefreshBroker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[ch]; !ok {
		return
	}
	delete(b.clients, ch)
	close(ch)
}

// StreamHandler serves the SSE refresh stream.
type StreamHandler struct {
	broker *RefreshBroker
}

// NewStreamHandler constructs a stream handler over the given broker.
func NewStreamHandler(broker *RefreshBroker) *StreamHandler {
	return &StreamHandler{broker: broker}
}

func writeEvent(w io.Writer, name string, data []byte) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
}

// ServeHTTP handles GET /api/v1/refresh/stream.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.broker.Subscribe()
	defer h.broker.Unsubscribe(ch)

	writeEvent(w, "ready", []byte("{}"))
	flusher.Flush()

	done := r.Context().Done()
	for {
		select {
		case payload, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, "refresh", payload)
			flusher.Flush()
		case <-done:
			return
		}
	}
}
