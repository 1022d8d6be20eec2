package webhook

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is the outbound automation event document.
type Event struct {
	EventID    uuid.UUID      `json:"event_id"`
	Kind       string         `json:"kind"`
	OccurredAt time.Time      `json:"occurred_at"`
	ActorID    string         `json:"actor_id"`
	SubjectID  string         `json:"subject_id"`
	Data       map[string]any `json:"data"`
}

func NewEvent(kind, actorID, subjectID string, data map[string]any) Event {
	return Event{
		EventID:    uuid.New(),
		Kind:       kind,
		OccurredAt: time.Now(),
		ActorID:    actorID,
		SubjectID:  subjectID,
		Data:       data,
	}
}

// DedupKey hashes the semantically relevant fields of the event. EventID and
// OccurredAt are deliberately excluded: a retried emission of the same
// logical event carries a fresh id and timestamp but must map to the same
// key. json.Marshal sorts map keys, so the data digest is deterministic.
func (e Event) DedupKey() string {
	data, err := json.Marshal(e.Data)
	if err != nil {
		// A non-encodable value must not collapse onto the empty-data key.
		data = fmt.Appendf(nil, "unencodable:%v", err)
	}
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s|%s", e.Kind, e.ActorID, e.SubjectID, data))
	return hex.EncodeToString(h[:])
}
