package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"wedding/guesthub/internal/events"
)

// streamRecorder captures a streamed body and signals once marker appears.
type streamRecorder struct {
	*httptest.ResponseRecorder
	marker string
	seen   chan struct{}
	once   sync.Once

	mu   sync.Mutex
	body bytes.Buffer
}

func newStreamRecorder(marker string) *streamRecorder {
	return &streamRecorder{
		ResponseRecorder: httptest.NewRecorder(),
		marker:           marker,
		seen:             make(chan struct{}),
	}
}

func (r *streamRecorder) CloseNotify() <-chan bool { return make(chan bool) }

func (r *streamRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	r.body.Write(p)
	hit := strings.Contains(r.body.String(), r.marker)
	r.mu.Unlock()
	if hit {
		r.once.Do(func() { close(r.seen) })
	}
	return len(p), nil
}

func (r *streamRecorder) WriteString(s string) (int, error) {
	return r.Write([]byte(s))
}

func (r *streamRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.String()
}

func TestEventStreamFiltersByType(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?types=guest_created", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+s.token(t, uuid.New()))

	rec := newStreamRecorder("event:guest_created")
	done := make(chan struct{})
	go func() {
		s.engine.ServeHTTP(rec, req)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
wait:
	for {
		select {
		case <-rec.seen:
			break wait
		case <-deadline:
			t.Fatalf("no guest_created event streamed; body: %q", rec.String())
		case <-ticker.C:
			s.bus.Emit(events.Event{Type: events.TypeGuestUpdated})
			s.bus.Emit(events.Event{Type: events.TypeGuestCreated})
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after the client went away")
	}

	body := rec.String()
	if strings.Contains(body, "guest_updated") {
		t.Fatalf("filtered event leaked into stream: %q", body)
	}
}
