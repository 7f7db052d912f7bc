package changes

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"

	"github.com/minio/blake2b-simd"
	"github.com/spf13/afero"
)

// Absent is the fingerprint of a file that does not exist. Producers use it
// as baseline to propose the creation of a file.
const Absent = "absent"

// Key identifies a pending change: one file in one repository.
type Key struct {
	Repo string `cbor:"repo"`
	Path string `cbor:"path"`
}

func (k Key) String() string {
	return path.Join(k.Repo, k.Path)
}

// Change is a proposed replacement of a file's content. It is not modified
// after it has been proposed.
type Change struct {
	Repo     string `cbor:"repo"`
	Path     string `cbor:"path"`
	Baseline string `cbor:"baseline"`
	Content  []byte `cbor:"content"`
	Producer string `cbor:"producer,omitempty"`
	Reason   string `cbor:"reason,omitempty"`
}

// Key returns the store key of the change.
func (c Change) Key() Key {
	return Key{Repo: c.Repo, Path: c.Path}
}

func (c Change) validate() error {
	if c.Repo == "" {
		return errors.New("change has no repository")
	}
	if !isLocal(c.Repo) {
		return fmt.Errorf("change has invalid repository %q", c.Repo)
	}
	if c.Path == "" || !isLocal(c.Path) {
		return fmt.Errorf("change for %s has invalid path %q", c.Repo, c.Path)
	}
	if c.Baseline == "" {
		return fmt.Errorf("change for %s has no baseline fingerprint", c.Key())
	}
	return nil
}

// normalize returns c with its repository and path in cleaned form.
func (c Change) normalize() Change {
	c.Repo = path.Clean(c.Repo)
	c.Path = path.Clean(c.Path)
	return c
}

// isLocal reports whether the slash separated p names an entry below the
// directory it is resolved against.
func isLocal(p string) bool {
	p = path.Clean(p)
	return p != "." && filepath.IsLocal(filepath.FromSlash(p))
}

// Fingerprint returns the hex encoded BLAKE2b-256 digest of content.
func Fingerprint(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// FingerprintFile fingerprints the file at name, returning Absent when the
// file does not exist.
func FingerprintFile(fsys afero.Fs, name string) (string, error) {
	data, err := afero.ReadFile(fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return Absent, nil
	}
	if err != nil {
		return "", err
	}
	return Fingerprint(data), nil
}
