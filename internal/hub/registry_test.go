package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// fakeSession records sent messages and can be told to fail.
type fakeSession struct {
	id        string
	recipient string

	mu     sync.Mutex
	sent   []Message
	fail   bool
	closed bool
}

func (s *fakeSession) ID() string        { return s.id }
func (s *fakeSession) Recipient() string { return s.recipient }

func (s *fakeSession) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("connection reset")
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestRegistryJoinAndSessionsFor(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	if got := r.SessionsFor("u1"); len(got) != 0 {
		t.Fatalf("expected no sessions for unknown recipient, got %d", len(got))
	}

	s1 := &fakeSession{id: "s1", recipient: "u1"}
	s2 := &fakeSession{id: "s2", recipient: "u1"}
	other := &fakeSession{id: "s3", recipient: "u2"}

	r.Join(s1, []string{"room-a"})
	r.Join(s2, []string{"room-a", "room-b"})
	r.Join(other, []string{"room-a"})

	if got := r.SessionsFor("u1"); len(got) != 2 {
		t.Fatalf("expected 2 sessions for u1, got %d", len(got))
	}
	if got := r.SessionsFor("u2"); len(got) != 1 {
		t.Fatalf("expected 1 session for u2, got %d", len(got))
	}
}

func TestRegistryRejoinIsIdempotent(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	s := &fakeSession{id: "s1", recipient: "u1"}

	r.Join(s, []string{"room-a"})
	r.Join(s, []string{"room-b"}) // replaces the room set, no duplicate entry

	if got := r.SessionsFor("u1"); len(got) != 1 {
		t.Fatalf("expected 1 session after re-join, got %d", len(got))
	}

	if got := r.Broadcast(context.Background(), "room-a", Message{ID: "m1"}); got != 0 {
		t.Fatalf("expected 0 deliveries to the abandoned room, got %d", got)
	}
	if got := r.Broadcast(context.Background(), "room-b", Message{ID: "m2"}); got != 1 {
		t.Fatalf("expected 1 delivery to the new room, got %d", got)
	}
}

func TestRegistryLeaveUnknownSessionIsNoop(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Leave("never-joined") // must not panic
}

func TestRegistryLeaveRemovesRoomMembership(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	s := &fakeSession{id: "s1", recipient: "u1"}
	r.Join(s, []string{"room-a"})
	r.Leave("s1")

	if got := r.SessionsFor("u1"); len(got) != 0 {
		t.Fatalf("expected no sessions after leave, got %d", len(got))
	}
	if got := r.Broadcast(context.Background(), "room-a", Message{ID: "m1"}); got != 0 {
		t.Fatalf("expected no deliveries after leave, got %d", got)
	}
}

func TestRegistryBroadcastEvictsFailedSession(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	healthy := &fakeSession{id: "ok", recipient: "u1"}
	broken := &fakeSession{id: "broken", recipient: "u2", fail: true}

	r.Join(healthy, []string{"room"})
	r.Join(broken, []string{"room"})

	delivered := r.Broadcast(context.Background(), "room", Message{ID: "m1"})
	if delivered != 1 {
		t.Fatalf("expected 1 delivery, got %d", delivered)
	}
	if healthy.sentCount() != 1 {
		t.Fatalf("healthy session should have received the message")
	}

	// The failed session is gone; the healthy one stays registered.
	if got := r.SessionsFor("u2"); len(got) != 0 {
		t.Fatal("failed session should have been evicted")
	}
	if got := r.SessionsFor("u1"); len(got) != 1 {
		t.Fatal("healthy session should remain registered")
	}
	if !broken.closed {
		t.Fatal("evicted session should be closed")
	}
}

func TestRegistryConcurrentJoinLeave(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	const workers = 64

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			recipient := fmt.Sprintf("user-%d", i%8)
			s := &fakeSession{id: fmt.Sprintf("sess-%d", i), recipient: recipient}
			r.Join(s, []string{"shared-room"})
			r.SessionsFor(recipient)
			r.Broadcast(context.Background(), "shared-room", Message{ID: "m"})
			r.Leave(s.id)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		recipient := fmt.Sprintf("user-%d", i)
		if got := r.SessionsFor(recipient); len(got) != 0 {
			t.Fatalf("expected all sessions gone for %s, got %d", recipient, len(got))
		}
	}
}
