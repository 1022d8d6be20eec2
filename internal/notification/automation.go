package notification

import (
	"encoding/json"

	db "github.com/minhvu/taskhive-BE/internal/db/sqlc"
	"github.com/minhvu/taskhive-BE/internal/webhook"
)

// Task lifecycle and membership changes are surfaced to external automation.
// Chat-centric kinds stay internal.
var automationKinds = map[db.NotificationKind]bool{
	db.NotificationKindTaskAssigned:  true,
	db.NotificationKindTaskCompleted: true,
	db.NotificationKindMemberJoined:  true,
}

// AutomationEvent converts a stored notification into an outbound webhook
// event. The second return value is false for kinds that never leave the
// system.
func AutomationEvent(n db.Notification, actorID string) (webhook.Event, bool) {
	if !automationKinds[n.Kind] {
		return webhook.Event{}, false
	}

	data := make(map[string]any)
	// The payload was validated against its kind schema at creation, so
	// this cannot fail for rows read back from the store.
	_ = json.Unmarshal(n.Payload, &data)

	return webhook.NewEvent(string(n.Kind), actorID, n.RecipientID, data), true
}
