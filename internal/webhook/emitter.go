package webhook

import (
	"context"
	"time"

	"github.com/minhvu/taskhive-BE/internal/dedup"
	"github.com/rs/zerolog/log"
	"resty.dev/v3"
)

// Emitter sends outbound automation events to the configured external
// endpoint, consulting the dedup cache before every send.
//
// Trade-off for operators: a claimed key is never rolled back. If the send
// fails after TryClaim, the event will NOT be retried until the dedup window
// expires. This buys at-most-once-per-window without compensating rollback
// logic; it is not guaranteed-eventual-delivery.
type Emitter struct {
	client   *resty.Client
	cache    dedup.Cache
	endpoint string
	window   time.Duration
}

func NewEmitter(cache dedup.Cache, endpoint string, timeout, window time.Duration) *Emitter {
	client := resty.New().SetTimeout(timeout)

	return &Emitter{
		client:   client,
		cache:    cache,
		endpoint: endpoint,
		window:   window,
	}
}

// Emit sends the event unless an identical logical event already went out
// inside the dedup window. A suppressed duplicate is not an error. Transport
// failures are logged and absorbed; only a dedup-cache failure is returned,
// since without a claim verdict the emitter cannot safely send.
func (em *Emitter) Emit(ctx context.Context, event Event) error {
	key := event.DedupKey()

	claimed, err := em.cache.TryClaim(ctx, key, em.window)
	if err != nil {
		return err
	}
	if !claimed {
		log.Debug().Str("kind", event.Kind).Str("dedup_key", key).Msg("duplicate webhook event suppressed")
		return nil
	}

	res, err := em.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(em.endpoint)
	if err != nil {
		log.Warn().Err(err).Str("kind", event.Kind).Str("event_id", event.EventID.String()).
			Msg("webhook send failed, claim retained until window expiry")
		return nil
	}

	if !res.IsSuccess() {
		log.Warn().Int("status", res.StatusCode()).Str("kind", event.Kind).
			Str("event_id", event.EventID.String()).
			Msg("webhook endpoint rejected event, claim retained until window expiry")
		return nil
	}

	log.Info().Str("kind", event.Kind).Str("event_id", event.EventID.String()).Msg("webhook event sent")
	return nil
}
