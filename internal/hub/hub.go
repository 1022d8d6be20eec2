package hub

import (
	"context"
	"encoding/json"
	"time"
)

// Message is the one outbound message type pushed over a live session.
type Message struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Session is a live transport connection for one recipient. Implementations
// must be safe for concurrent Send calls.
type Session interface {
	ID() string
	Recipient() string
	Send(ctx context.Context, msg Message) error
	Close() error
}
