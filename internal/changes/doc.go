// Package changes stages proposed file edits and applies them safely.
//
// Producers propose Change records into a Store. A Stager persists the store
// to a single compressed artifact under the workspace, loads it back and
// applies it. Every entry records the fingerprint of the file it was computed
// against; entries whose target changed since then are reported as stale and
// kept for a later run instead of being overwritten.
package changes
