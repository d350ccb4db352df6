// Package store defines the L1/L2 collaborator contract consumed by
// pkg/cachify, plus two concrete implementations: an LRU-bounded in-process
// MemoryStore and a Redis-backed DistributedStore. Neither implementation
// assumes atomicity across keys.
package store
