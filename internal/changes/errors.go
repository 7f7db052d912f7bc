package changes

import (
	"errors"
	"fmt"
)

// ErrNoChanges is returned by Load when nothing has been staged.
var ErrNoChanges = errors.New("no staged changes")

// ConflictError is returned when two producers disagree on the current
// content of a file.
type ConflictError struct {
	Key      Key
	Existing Change
	Proposed Change
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting changes for %s: %s and %s were computed against different contents",
		e.Key, producerName(e.Existing), producerName(e.Proposed))
}

func producerName(c Change) string {
	if c.Producer == "" {
		return "unnamed producer"
	}
	return fmt.Sprintf("producer %q", c.Producer)
}

// StaleError reports an entry whose target changed after it was staged.
type StaleError struct {
	Key      Key
	Baseline string
	Current  string
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("%s changed since it was staged (baseline %s, now %s)", e.Key, short(e.Baseline), short(e.Current))
}

// IoError reports a failure to write one entry.
type IoError struct {
	Key Key
	Err error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Key, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// CorruptStoreError is returned when a persisted store cannot be read back.
type CorruptStoreError struct {
	Path string
	Err  error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("corrupt staging store %s: %v", e.Path, e.Err)
}

func (e *CorruptStoreError) Unwrap() error { return e.Err }

// SerializationError is returned when a store cannot be persisted.
type SerializationError struct {
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("failed to persist staging store %s: %v", e.Path, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

func short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
