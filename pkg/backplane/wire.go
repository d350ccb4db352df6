package backplane

import (
	"encoding/json"
	"errors"
	"fmt"
)

// WireVersion is the only envelope version this package understands.
// Receivers drop any message whose v differs.
const WireVersion = 1

// ErrWireVersionMismatch means a received envelope's v field is not
// WireVersion. The caller drops the message silently.
var ErrWireVersionMismatch = errors.New("backplane: wire version mismatch")

// ErrInvalidEnvelope means a received envelope carried neither a single
// key/tag nor a non-empty items array, or an empty src.
var ErrInvalidEnvelope = errors.New("backplane: invalid envelope")

// item is one entry of an envelope's items array.
type item struct {
	Key string `json:"key,omitempty"`
	Tag string `json:"tag,omitempty"`
}

// envelope is the versioned wire format for backplane messages.
type envelope struct {
	V     int    `json:"v"`
	Src   string `json:"src"`
	Key   string `json:"key,omitempty"`
	Tag   string `json:"tag,omitempty"`
	Items []item `json:"items,omitempty"`
}

// Event is one invalidation: either a Key or a Tag, never both.
type Event struct {
	Key string
	Tag string
}

// encodeEnvelope marshals a batch of events from src into the wire format.
// A single event is encoded as a top-level key/tag; more than one uses the
// items array.
func encodeEnvelope(src string, events []Event) ([]byte, error) {
	if src == "" {
		return nil, fmt.Errorf("backplane: encode: %w: empty src", ErrInvalidEnvelope)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("backplane: encode: %w: no events", ErrInvalidEnvelope)
	}

	env := envelope{V: WireVersion, Src: src}
	if len(events) == 1 {
		env.Key = events[0].Key
		env.Tag = events[0].Tag
	} else {
		env.Items = make([]item, len(events))
		for i, e := range events {
			env.Items[i] = item{Key: e.Key, Tag: e.Tag}
		}
	}

	return json.Marshal(env)
}

// decodeEnvelope parses and validates a wire payload, expanding it into its
// constituent events. Unknown JSON fields are ignored by construction
// (envelope declares no catch-all).
func decodeEnvelope(payload []byte) (src string, events []Event, err error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", nil, fmt.Errorf("backplane: decode envelope: %w", err)
	}

	if env.V != WireVersion {
		return "", nil, ErrWireVersionMismatch
	}
	if env.Src == "" {
		return "", nil, fmt.Errorf("backplane: decode: %w: empty src", ErrInvalidEnvelope)
	}

	if len(env.Items) > 0 {
		events = make([]Event, len(env.Items))
		for i, it := range env.Items {
			events[i] = Event{Key: it.Key, Tag: it.Tag}
		}
		return env.Src, events, nil
	}

	if env.Key == "" && env.Tag == "" {
		return "", nil, fmt.Errorf("backplane: decode: %w: no key, tag, or items", ErrInvalidEnvelope)
	}

	return env.Src, []Event{{Key: env.Key, Tag: env.Tag}}, nil
}
