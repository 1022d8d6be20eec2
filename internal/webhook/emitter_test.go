package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/minhvu/taskhive-BE/internal/dedup"
)

func TestDedupKeyIgnoresEventIdentityFields(t *testing.T) {
	t.Parallel()

	// Two emissions of the same logical event differ in EventID and
	// OccurredAt but must share a dedup key.
	a := NewEvent("task.assigned", "manager-1", "task-42", map[string]any{"role": "packer"})
	b := NewEvent("task.assigned", "manager-1", "task-42", map[string]any{"role": "packer"})

	if a.EventID == b.EventID {
		t.Fatal("test setup: event ids should differ")
	}
	if a.DedupKey() != b.DedupKey() {
		t.Fatal("logical duplicates must share a dedup key")
	}

	c := NewEvent("task.assigned", "manager-1", "task-43", map[string]any{"role": "packer"})
	if a.DedupKey() == c.DedupKey() {
		t.Fatal("different subjects must not share a dedup key")
	}

	d := NewEvent("task.assigned", "manager-1", "task-42", map[string]any{"role": "driver"})
	if a.DedupKey() == d.DedupKey() {
		t.Fatal("different data must not share a dedup key")
	}
}

func TestDedupKeyDistinguishesUnencodableData(t *testing.T) {
	t.Parallel()

	// A data value json cannot encode must not hash like empty data, or
	// every such event would suppress the next legitimate send.
	broken := NewEvent("task.assigned", "manager-1", "task-42", map[string]any{"ch": make(chan int)})
	empty := NewEvent("task.assigned", "manager-1", "task-42", nil)

	if broken.DedupKey() == empty.DedupKey() {
		t.Fatal("unencodable data must not share a key with empty data")
	}
	if broken.DedupKey() != broken.DedupKey() {
		t.Fatal("dedup key must be deterministic for the same event")
	}
}

func TestEmitSuppressesDuplicateWithinWindow(t *testing.T) {
	t.Parallel()

	var received atomic.Int32
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer endpoint.Close()

	em := NewEmitter(dedup.NewMemoryCache(), endpoint.URL, time.Second, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		event := NewEvent("task.assigned", "manager-1", "task-42", map[string]any{"role": "packer"})
		if err := em.Emit(ctx, event); err != nil {
			t.Fatalf("Emit returned error: %v", err)
		}
	}

	if got := received.Load(); got != 1 {
		t.Fatalf("expected exactly 1 outbound send, got %d", got)
	}
}

func TestEmitKeepsClaimOnSendFailure(t *testing.T) {
	t.Parallel()

	var received atomic.Int32
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer endpoint.Close()

	em := NewEmitter(dedup.NewMemoryCache(), endpoint.URL, time.Second, time.Minute)
	ctx := context.Background()

	event := NewEvent("task.completed", "worker-1", "task-7", nil)
	if err := em.Emit(ctx, event); err != nil {
		t.Fatalf("a failed send must be absorbed, got %v", err)
	}

	// The claim is not rolled back: a retry inside the window is suppressed
	// before reaching the endpoint.
	if err := em.Emit(ctx, event); err != nil {
		t.Fatal(err)
	}
	if got := received.Load(); got != 1 {
		t.Fatalf("expected the retry to be suppressed, endpoint saw %d requests", got)
	}
}

func TestEmitAbsorbsUnreachableEndpoint(t *testing.T) {
	t.Parallel()

	em := NewEmitter(dedup.NewMemoryCache(), "http://127.0.0.1:1", 200*time.Millisecond, time.Minute)

	event := NewEvent("task.assigned", "manager-1", "task-1", nil)
	if err := em.Emit(context.Background(), event); err != nil {
		t.Fatalf("connection failure must be absorbed, got %v", err)
	}
}
