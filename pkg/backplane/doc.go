// Package backplane keeps L1 caches across cachify instances coherent
// through a best-effort pub/sub transport. A Publisher emits invalidation
// events (immediate or batched); a Subscriber decodes them, drops
// self-originated echoes, and dispatches to registered handlers.
package backplane
