package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func drain(ch chan []byte) []string {
	time.Sleep(50 * time.Millisecond)
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

	b.Publish(Event{Type: TypeCreated, Data: map[string]string{"id": "7"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.HasPrefix(s, "event: commitment.created\n") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `data: {"id":"7"}`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishChange_Types(t *testing.T) {
	tests := []struct {
		kind, id string
		want     string
	}{
		{"created", "1", "event: commitment.created\ndata: {\"id\":\"1\"}"},
		{"updated", "2", "event: commitment.updated\ndata: {\"id\":\"2\"}"},
		{"deleted", "3", "event: commitment.deleted\ndata: {\"id\":\"3\"}"},
		{"purged", "", "event: commitments.purged\ndata: {}"},
		{"reloaded", "", "event: commitments.reloaded\ndata: {}"},
	}
	for _, tc := range tests {
		t.Run(tc.kind, func(t *testing.T) {
			b := NewBroker(time.Hour)
			defer b.Close()
			ch := b.Subscribe()
			defer b.Unsubscribe(ch)

			b.PublishChange(tc.kind, tc.id)
			msgs := drain(ch)
			if len(msgs) != 2 {
				t.Fatalf("got %d messages, want 2: %q", len(msgs), msgs)
			}
			if !strings.HasPrefix(msgs[0], tc.want) {
				t.Errorf("message = %q, want prefix %q", msgs[0], tc.want)
			}
			if !strings.Contains(msgs[1], TypeChanged) {
				t.Errorf("second message = %q, want %s", msgs[1], TypeChanged)
			}
		})
	}
}

func TestPublishChange_UnknownKindIgnored(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange("renamed", "1")
	if msgs := drain(ch); len(msgs) != 0 {
		t.Errorf("unexpected messages %q", msgs)
	}
}

func TestPublishChange_Throttle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange("created", "1")
	b.PublishChange("updated", "1")
	b.PublishChange("deleted", "1")

	changed, other := 0, 0
	for _, s := range drain(ch) {
		if strings.Contains(s, TypeChanged) {
			changed++
		} else {
			other++
		}
	}
	if other != 3 {
		t.Errorf("change events = %d, want 3", other)
	}
	if changed != 1 {
		t.Errorf("%s events = %d, want 1 (throttled)", TypeChanged, changed)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100*time.Millisecond, WithHeartbeat(20*time.Millisecond))
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishChange("updated", "42")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "event: commitment.updated") {
		t.Errorf("handler output missing event: %q", body)
	}
	if !strings.Contains(body, ": ping\n\n") {
		t.Errorf("handler output missing heartbeat: %q", body)
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

	// Capacity is 64; the extra sends must not block the loop.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: TypeReloaded, Data: map[string]string{}})
	}
	if b.ClientCount() != 1 {
		t.Error("broker loop stalled")
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

	b.Publish(Event{Type: TypeUpdated, Data: map[string]string{"id": "1"}})
	b.PublishChange("updated", "1")
}
