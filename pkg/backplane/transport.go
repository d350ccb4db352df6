package backplane

import "context"

// Transport is the best-effort pub/sub channel collaborator: at-most-once
// delivery, no ordering guarantee. Publish and Subscribe operate on plain
// string payloads; the envelope encoding lives above this layer.
type Transport interface {
	Publish(ctx context.Context, channel string, payload string) error

	// Subscribe registers handler for messages on channel and returns an
	// unsubscribe function. The handler is invoked from a
	// transport-managed goroutine.
	Subscribe(ctx context.Context, channel string, handler func(payload string)) (unsubscribe func() error, err error)
}

// Publisher is the outbound half of the backplane, consumed by the
// orchestrator's Set/Remove paths.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// HandlerFunc receives one expanded invalidation event, already filtered
// for local-echo.
type HandlerFunc func(Event)

// Subscriber is the inbound half of the backplane. Subscribe lazily opens
// the channel subscription on first attachment.
type Subscriber interface {
	Subscribe(handler HandlerFunc) (unsubscribe func() error, err error)
}
