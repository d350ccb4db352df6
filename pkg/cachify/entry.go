package cachify

import (
	"encoding/json"
	"time"
)

// State is the entry's position in its lifecycle, derived from its
// Metadata and the current clock reading.
type State int

const (
	// StateMiss means no usable value exists: the fail-safe window has
	// elapsed, or neither payload nor metadata are present.
	StateMiss State = iota
	// StateFresh means now <= LogicalExpiration.
	StateFresh
	// StateStale means LogicalExpiration < now <= FailSafeUntil.
	StateStale
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "Fresh"
	case StateStale:
		return "Stale"
	default:
		return "Miss"
	}
}

// Metadata is the sibling record stored at key+":meta" alongside a cache
// entry's payload. The invariant CreatedAt <= LogicalExpiration <=
// FailSafeUntil must hold for every metadata value ever written.
type Metadata struct {
	CreatedAt         time.Time `json:"created_at"`
	LogicalExpiration time.Time `json:"logical_expiration"`
	FailSafeUntil     time.Time `json:"fail_safe_until"`
}

// StateAt reports the derived State of an entry given its metadata (which
// may be nil, meaning absent) and whether a payload was found.
func StateAt(now time.Time, meta *Metadata, payloadPresent bool) State {
	if meta == nil {
		if payloadPresent {
			// Backward compatibility: a payload with no metadata is Fresh.
			return StateFresh
		}
		return StateMiss
	}
	switch {
	case !now.After(meta.LogicalExpiration):
		return StateFresh
	case !now.After(meta.FailSafeUntil):
		return StateStale
	default:
		return StateMiss
	}
}

func (m *Metadata) marshal() ([]byte, error) {
	return json.Marshal(m)
}

func unmarshalMetadata(data []byte) (*Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Result is what Get and GetOrSet hand back to callers. A nil *Result with
// a nil error means KeyMissing: a normal outcome, not a failure.
type Result struct {
	Value       []byte
	Stale       bool
	StaleReason StaleReason
}
