// Package lock handles parsing and writing of releases.lock.yaml files.
// The lock file records the version and commit each repository was last
// released at, which is what the @unreleased set is computed from.
package lock
