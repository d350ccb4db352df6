// Package similarity implements SimHash-based near-duplicate detection for
// the request-cache middleware: canonicalization of request payloads, a
// 64-bit fingerprint, an LSH-bucketed candidate index, and Hamming-distance
// scoring with a pluggable embedding scorer override.
package similarity
