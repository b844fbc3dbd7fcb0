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

func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
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
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "request.created", Data: map[string]string{"share_token": "abc123"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: request.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"share_token":"abc123"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishRequestEvent_FeedThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishRequestEvent("request.created", map[string]string{"share_token": "a"})
	b.PublishRequestEvent("response.created", map[string]string{"share_token": "a"})

	time.Sleep(50 * time.Millisecond)
	feedCount, otherCount := 0, 0
	for _, s := range drain(ch) {
		if strings.Contains(s, "event: "+TypeFeedUpdated) {
			feedCount++
		} else {
			otherCount++
		}
	}

	if otherCount != 2 {
		t.Errorf("request events = %d, want 2", otherCount)
	}
	if feedCount != 1 {
		t.Errorf("feed events = %d, want 1 (throttled)", feedCount)
	}
}

func TestPublishTaxonomyInvalidated(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishTaxonomyInvalidated([]string{"area"})

	time.Sleep(50 * time.Millisecond)
	msgs := drain(ch)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1: %q", len(msgs), msgs)
	}
	if !strings.Contains(msgs[0], "event: "+TypeTaxonomyInvalidated) ||
		!strings.Contains(msgs[0], `"lists":["area"]`) || !strings.Contains(msgs[0], `"all":false`) {
		t.Errorf("single list event = %q", msgs[0])
	}
}

func TestPublishTaxonomyInvalidated_MergedInsideWindow(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishTaxonomyInvalidated([]string{"area"})
	b.PublishTaxonomyInvalidated([]string{"subcategory"})
	b.PublishTaxonomyInvalidated([]string{"category", "subcategory"})

	time.Sleep(50 * time.Millisecond)
	if msgs := drain(ch); len(msgs) != 1 {
		t.Fatalf("leading edge: got %d messages, want 1: %q", len(msgs), msgs)
	}

	time.Sleep(600 * time.Millisecond)
	msgs := drain(ch)
	if len(msgs) != 1 {
		t.Fatalf("trailing edge: got %d messages, want 1: %q", len(msgs), msgs)
	}
	if !strings.Contains(msgs[0], `"lists":["category","subcategory"]`) || !strings.Contains(msgs[0], `"all":false`) {
		t.Errorf("merged event = %q", msgs[0])
	}

	// Dropping everything absorbs any single lists in the same window.
	b.PublishTaxonomyInvalidated(nil)
	b.PublishTaxonomyInvalidated([]string{"area"})
	time.Sleep(600 * time.Millisecond)
	msgs = drain(ch)
	if len(msgs) != 1 {
		t.Fatalf("all: got %d messages, want 1: %q", len(msgs), msgs)
	}
	if !strings.Contains(msgs[0], `"lists":[]`) || !strings.Contains(msgs[0], `"all":true`) {
		t.Errorf("all lists event = %q", msgs[0])
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishRequestEvent("response.created", map[string]string{"share_token": "x"})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: response.created") {
		t.Errorf("handler output missing event: %q", body)
	}
	if got := w.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("content type = %q", got)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Buffer holds 64; the rest must be dropped without blocking.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// No-ops after close.
	b.Publish(Event{Type: "request.created"})
	b.PublishRequestEvent("request.created", nil)
	b.PublishTaxonomyInvalidated(nil)
}
