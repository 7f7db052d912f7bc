package changes

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/nightlyone/lockfile"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Locations of the staging artifact and its lock, relative to the workspace
// root.
const (
	StateDir     = ".repokeep"
	ArtifactName = "changes.gz"
	LockName     = "changes.lock"
)

// schema identifies the layout of the persisted envelope.
const schema = "repokeep.changes/v1"

// DefaultJobs bounds concurrent writes during Apply.
const DefaultJobs = 4

type envelope struct {
	Schema  string   `cbor:"schema"`
	Changes []Change `cbor:"changes"`
}

// Handle identifies a persisted store.
type Handle struct {
	Path string
}

// Stager persists, loads and applies staging stores for one workspace.
type Stager struct {
	fs     afero.Fs
	root   string
	jobs   int
	logger *zap.Logger

	lock   lockfile.Lockfile
	locked bool
}

// Option configures a Stager.
type Option func(*Stager)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Stager) { s.logger = l }
}

// WithJobs bounds the number of files written concurrently.
func WithJobs(n int) Option {
	return func(s *Stager) {
		if n > 0 {
			s.jobs = n
		}
	}
}

// NewStager returns a stager for the workspace at root. Repository paths of
// staged changes are resolved relative to root.
func NewStager(fsys afero.Fs, root string, opts ...Option) *Stager {
	s := &Stager{fs: fsys, root: root, jobs: DefaultJobs, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle returns the handle of the workspace's staging artifact.
func (s *Stager) Handle() Handle {
	return Handle{Path: filepath.Join(s.root, StateDir, ArtifactName)}
}

// Target returns the path a change writes to.
func (s *Stager) Target(key Key) string {
	return filepath.Join(s.root, filepath.FromSlash(key.Repo), filepath.FromSlash(key.Path))
}

// Acquire takes the workspace lock. It fails immediately when another
// process holds it.
func (s *Stager) Acquire() error {
	if s.locked {
		return nil
	}
	root, err := filepath.Abs(s.root)
	if err != nil {
		return fmt.Errorf("resolving workspace root: %w", err)
	}
	dir := filepath.Join(root, StateDir)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // state dir is not secret
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	lock, err := lockfile.New(filepath.Join(dir, LockName))
	if err != nil {
		return fmt.Errorf("creating lock: %w", err)
	}
	if err := lock.TryLock(); err != nil {
		if owner, oerr := lock.GetOwner(); oerr == nil {
			return fmt.Errorf("workspace is locked by process %d: %w", owner.Pid, err)
		}
		return fmt.Errorf("workspace is locked: %w", err)
	}
	s.lock = lock
	s.locked = true
	s.logger.Debug("acquired workspace lock", zap.String("path", string(lock)))
	return nil
}

// Release drops the workspace lock taken by Acquire.
func (s *Stager) Release() error {
	if !s.locked {
		return nil
	}
	s.locked = false
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("releasing lock: %w", err)
	}
	return nil
}

// Persist writes store to the staging artifact. An empty store removes the
// artifact instead.
func (s *Stager) Persist(store *Store) (Handle, error) {
	h := s.Handle()

	if store.Len() == 0 {
		if err := s.fs.Remove(h.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return h, &SerializationError{Path: h.Path, Err: err}
		}
		s.logger.Debug("removed empty staging store", zap.String("path", h.Path))
		return h, nil
	}

	data, err := cbor.Marshal(envelope{Schema: schema, Changes: store.Changes()})
	if err != nil {
		return h, &SerializationError{Path: h.Path, Err: err}
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return h, &SerializationError{Path: h.Path, Err: err}
	}
	if err := zw.Close(); err != nil {
		return h, &SerializationError{Path: h.Path, Err: err}
	}

	if err := writeAtomic(s.fs, h.Path, buf.Bytes()); err != nil {
		return h, &SerializationError{Path: h.Path, Err: err}
	}
	s.logger.Debug("persisted staging store",
		zap.String("path", h.Path), zap.Int("changes", store.Len()))
	return h, nil
}

// Load reads a persisted store. It returns ErrNoChanges when the artifact
// does not exist.
func (s *Stager) Load(h Handle) (*Store, error) {
	f, err := s.fs.Open(h.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoChanges
	}
	if err != nil {
		return nil, &CorruptStoreError{Path: h.Path, Err: err}
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, &CorruptStoreError{Path: h.Path, Err: err}
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, &CorruptStoreError{Path: h.Path, Err: err}
	}

	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, &CorruptStoreError{Path: h.Path, Err: err}
	}
	if env.Schema != schema {
		return nil, &CorruptStoreError{Path: h.Path, Err: fmt.Errorf("unknown schema %q", env.Schema)}
	}

	store := NewStore()
	for _, c := range env.Changes {
		if err := store.Propose(c); err != nil {
			return nil, &CorruptStoreError{Path: h.Path, Err: err}
		}
	}
	return store, nil
}

// LoadOrEmpty loads the workspace's staging artifact, returning an empty
// store when nothing is staged.
func (s *Stager) LoadOrEmpty() (*Store, error) {
	store, err := s.Load(s.Handle())
	if errors.Is(err, ErrNoChanges) {
		return NewStore(), nil
	}
	return store, err
}

// Apply writes every pending change whose target still matches its baseline
// and removes it from store. Stale and failed entries stay in store. When
// save is false nothing is written: the report lists every entry as pending.
// The remaining store is persisted in both cases, also when ctx is done
// halfway. The returned error is only non-nil when persisting fails or ctx
// is done; per-entry failures are in the report.
func (s *Stager) Apply(ctx context.Context, store *Store, save bool) (*Report, error) {
	if !save {
		report := &Report{}
		for _, c := range store.Changes() {
			report.Pending = append(report.Pending, c.Key())
		}
		_, err := s.Persist(store)
		return report, err
	}

	report, err := s.Write(ctx, store)
	if _, perr := s.Persist(store); perr != nil {
		return report, multierr.Append(err, perr)
	}
	return report, err
}

// Write is Apply without persisting: applied entries are removed from store
// and everything else stays in it. Callers applying part of the staged
// changes merge store back and persist the result themselves.
func (s *Stager) Write(ctx context.Context, store *Store) (*Report, error) {
	report := &Report{}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.jobs)

	for _, c := range store.Changes() {
		c := c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome := s.applyOne(c)

			mu.Lock()
			defer mu.Unlock()
			switch e := outcome.(type) {
			case nil:
				store.Remove(c.Key())
				report.Applied = append(report.Applied, c.Key())
				report.Bytes += int64(len(c.Content))
			case *StaleError:
				report.Stale = append(report.Stale, e)
			case *IoError:
				report.Failed = append(report.Failed, e)
			}
			return nil
		})
	}
	err := g.Wait()
	report.sort()

	s.logger.Info("applied staged changes",
		zap.Int("applied", len(report.Applied)),
		zap.Int("stale", len(report.Stale)),
		zap.Int("failed", len(report.Failed)))
	return report, err
}

func (s *Stager) applyOne(c Change) error {
	key := c.Key()
	target := s.Target(key)

	current, err := FingerprintFile(s.fs, target)
	if err != nil {
		return &IoError{Key: key, Err: err}
	}
	if current != c.Baseline {
		s.logger.Warn("skipping stale change", zap.Stringer("file", key))
		return &StaleError{Key: key, Baseline: c.Baseline, Current: current}
	}
	if err := writeAtomic(s.fs, target, c.Content); err != nil {
		return &IoError{Key: key, Err: err}
	}
	s.logger.Debug("wrote change", zap.Stringer("file", key), zap.String("producer", c.Producer))
	return nil
}

// writeAtomic replaces name with data through a temporary file in the same
// directory. The previous file mode is kept.
func writeAtomic(fsys afero.Fs, name string, data []byte) error {
	dir := filepath.Dir(name)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensuring directory for %q: %w", name, err)
	}

	mode := os.FileMode(0o644)
	if fi, err := fsys.Stat(name); err == nil {
		mode = fi.Mode().Perm()
	}

	tmp, err := afero.TempFile(fsys, dir, "."+filepath.Base(name)+".tmp-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = fsys.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := fsys.Chmod(tmpName, mode); err != nil {
		cleanup()
		return err
	}
	if err := fsys.Rename(tmpName, name); err != nil {
		cleanup()
		return err
	}
	return nil
}
