// Package sse implements a Server-Sent Events broker that pushes request and
// taxonomy changes to connected browsers.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"
)

// Event types sent to clients.
const (
	TypeFeedUpdated         = "feed.updated"
	TypeTaxonomyInvalidated = "taxonomy.invalidated"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type requestEventReq struct {
	kind string
	data map[string]string
}

// invalidation collects taxonomy invalidations waiting for the next flush.
type invalidation struct {
	kinds map[string]struct{}
	all   bool
}

func (v *invalidation) add(kinds []string) {
	if len(kinds) == 0 {
		v.all = true
		return
	}
	if v.kinds == nil {
		v.kinds = make(map[string]struct{})
	}
	for _, k := range kinds {
		v.kinds[k] = struct{}{}
	}
}

func (v *invalidation) empty() bool {
	return !v.all && len(v.kinds) == 0
}

// event builds the taxonomy.invalidated payload. Once everything was dropped
// the individual lists no longer matter.
func (v *invalidation) event() Event {
	lists := []string{}
	if !v.all {
		for k := range v.kinds {
			lists = append(lists, k)
		}
		sort.Strings(lists)
	}
	return Event{Type: TypeTaxonomyInvalidated, Data: map[string]any{
		"lists": lists,
		"all":   v.all,
	}}
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop goroutine owns the client set and both throttles: the
// feed.updated timestamp and the pending taxonomy invalidations. Public
// methods talk to it over channels.
type Broker struct {
	feedMin time.Duration

	subscribeCh    chan chan []byte
	unsubscribeCh  chan chan []byte
	publishCh      chan Event
	requestEventCh chan requestEventReq
	invalidateCh   chan []string
	countReqCh     chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits feed.updated, and taxonomy.invalidated,
// at most once per feedThrottle each. Invalidations arriving inside the window
// are merged into one event sent when it closes.
func NewBroker(feedThrottle time.Duration) *Broker {
	if feedThrottle <= 0 {
		feedThrottle = 2 * time.Second
	}

	b := &Broker{
		feedMin:        feedThrottle,
		subscribeCh:    make(chan chan []byte),
		unsubscribeCh:  make(chan chan []byte),
		publishCh:      make(chan Event, 256),
		requestEventCh: make(chan requestEventReq, 256),
		invalidateCh:   make(chan []string, 256),
		countReqCh:     make(chan chan int),
		stopCh:         make(chan struct{}),
		stopped:        make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		lastFeed    time.Time
		lastInvalid time.Time
		pending     invalidation
		flush       *time.Timer
		flushC      <-chan time.Time
	)
	defer func() {
		if flush != nil {
			flush.Stop()
		}
	}()

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client, drop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.requestEventCh:
			broadcast(Event{Type: req.kind, Data: req.data})

			now := time.Now()
			if now.Sub(lastFeed) >= b.feedMin {
				lastFeed = now
				broadcast(Event{Type: TypeFeedUpdated, Data: map[string]string{}})
			}

		case kinds := <-b.invalidateCh:
			pending.add(kinds)
			if flushC != nil {
				continue
			}
			if wait := b.feedMin - time.Since(lastInvalid); wait > 0 {
				flush = time.NewTimer(wait)
				flushC = flush.C
				continue
			}
			lastInvalid = time.Now()
			broadcast(pending.event())
			pending = invalidation{}

		case <-flushC:
			flushC = nil
			if !pending.empty() {
				lastInvalid = time.Now()
				broadcast(pending.event())
				pending = invalidation{}
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

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
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
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishRequestEvent publishes a request or response change followed by a
// throttled feed.updated.
func (b *Broker) PublishRequestEvent(kind string, data map[string]string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.requestEventCh <- requestEventReq{kind: kind, data: data}:
	case <-b.stopped:
	}
}

// PublishTaxonomyInvalidated tells clients to refetch the named lists. A nil
// kinds means every list.
func (b *Broker) PublishTaxonomyInvalidated(kinds []string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.invalidateCh <- append([]string(nil), kinds...):
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
	w.Header().Set("Access-Control-Allow-Origin", "*")
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
