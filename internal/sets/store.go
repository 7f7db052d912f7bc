package sets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Retain is the number of dated snapshots kept per set name.
const Retain = 3

var (
	nameRe     = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)
	snapshotRe = regexp.MustCompile(`^([A-Za-z0-9_.]+)-(\d{4}-\d{2}-\d{2})$`)
)

// ValidName reports whether name is a valid base set name.
func ValidName(name string) bool {
	return nameRe.MatchString(name) && name != "." && name != ".."
}

// Info describes the persisted files of one set name.
type Info struct {
	Name string
	// Base is true when the undated file exists.
	Base bool
	// Snapshots are the dated snapshots, oldest first.
	Snapshots []time.Time
}

// Latest returns the most recent snapshot date.
func (i Info) Latest() (time.Time, bool) {
	if len(i.Snapshots) == 0 {
		return time.Time{}, false
	}
	return i.Snapshots[len(i.Snapshots)-1], true
}

// Store reads and writes persisted sets in a directory.
type Store struct {
	fs     afero.Fs
	dir    string
	now    func() time.Time
	logger *zap.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the clock used to date snapshots.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithStoreLogger sets the logger.
func WithStoreLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore returns a store for the sets directory dir.
func NewStore(fsys afero.Fs, dir string, opts ...StoreOption) *Store {
	s := &Store{fs: fsys, dir: dir, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every persisted set name sorted by name.
func (s *Store) List() ([]Info, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading sets directory: %w", err)
	}

	byName := make(map[string]*Info)
	get := func(name string) *Info {
		if byName[name] == nil {
			byName[name] = &Info{Name: name}
		}
		return byName[name]
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if m := snapshotRe.FindStringSubmatch(e.Name()); m != nil {
			date, err := time.Parse(time.DateOnly, m[2])
			if err == nil {
				info := get(m[1])
				info.Snapshots = append(info.Snapshots, date)
				continue
			}
		}
		if ValidName(e.Name()) {
			get(e.Name()).Base = true
		}
	}

	infos := make([]Info, 0, len(byName))
	for _, info := range byName {
		sort.Slice(info.Snapshots, func(i, j int) bool { return info.Snapshots[i].Before(info.Snapshots[j]) })
		infos = append(infos, *info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func (s *Store) info(name string) (Info, error) {
	infos, err := s.List()
	if err != nil {
		return Info{}, err
	}
	for _, info := range infos {
		if info.Name == name {
			return info, nil
		}
	}
	return Info{Name: name}, nil
}

func (s *Store) basePath(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *Store) snapshotPath(name string, date time.Time) string {
	return filepath.Join(s.dir, name+"-"+date.Format(time.DateOnly))
}

// Load loads a persisted set. A name with a -YYYY-MM-DD suffix selects that
// snapshot; a base name selects the undated file, falling back to the most
// recent snapshot. A set that does not exist fails with *UnknownSetError.
func (s *Store) Load(name string) (*File, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &UnknownSetError{Name: name}
	}
	if err != nil {
		return nil, fmt.Errorf("reading set %s: %w", name, err)
	}
	f, err := ParseFile(data)
	if err != nil {
		return nil, fmt.Errorf("reading set %s: %w", name, err)
	}
	return f, nil
}

func (s *Store) resolve(name string) (string, error) {
	if m := snapshotRe.FindStringSubmatch(name); m != nil {
		date, err := time.Parse(time.DateOnly, m[2])
		if err != nil {
			return "", fmt.Errorf("set %s: invalid snapshot date: %w", name, err)
		}
		return s.snapshotPath(m[1], date), nil
	}
	if !ValidName(name) {
		return "", &UnknownSetError{Name: name}
	}

	info, err := s.info(name)
	if err != nil {
		return "", err
	}
	if info.Base {
		return s.basePath(name), nil
	}
	if latest, ok := info.Latest(); ok {
		return s.snapshotPath(name, latest), nil
	}
	return "", &UnknownSetError{Name: name}
}

// Save writes set as today's snapshot of name, replacing an existing one, and
// prunes snapshots beyond Retain by their embedded date. The snapshot just
// written is never pruned, even when newer dated snapshots exist. Lines and
// comments of the current version of the set are kept.
func (s *Store) Save(name string, set *Set, hint string) error {
	if !ValidName(name) {
		return fmt.Errorf("invalid set name %q", name)
	}
	now := s.now()
	today, _ := time.Parse(time.DateOnly, now.Format(time.DateOnly))

	if err := s.write(s.snapshotPath(name, today), name, set, hint, now); err != nil {
		return err
	}
	return s.prune(name, today)
}

// SaveBase writes set as the undated file of name.
func (s *Store) SaveBase(name string, set *Set, hint string) error {
	if !ValidName(name) {
		return fmt.Errorf("invalid set name %q", name)
	}
	return s.write(s.basePath(name), name, set, hint, s.now())
}

func (s *Store) write(path, name string, set *Set, hint string, now time.Time) error {
	prev, err := s.Load(name)
	var unknown *UnknownSetError
	switch {
	case errors.As(err, &unknown):
		prev = &File{}
	case err != nil:
		return err
	}

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating sets directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, path, prev.Rewrite(set, hint, now), 0o644); err != nil { //nolint:gosec // set files are not secret
		return fmt.Errorf("writing set %s: %w", name, err)
	}
	s.logger.Info("saved set", zap.String("name", name), zap.String("path", path), zap.Int("repos", set.Len()))
	return nil
}

func (s *Store) prune(name string, keep time.Time) error {
	info, err := s.info(name)
	if err != nil {
		return err
	}
	if latest, ok := info.Latest(); ok && latest.After(keep) {
		s.logger.Warn("set has snapshots dated after today",
			zap.String("name", name), zap.Time("latest", latest))
	}
	excess := len(info.Snapshots) - Retain
	for _, date := range info.Snapshots {
		if excess <= 0 {
			break
		}
		if date.Equal(keep) {
			continue
		}
		path := s.snapshotPath(name, date)
		if err := s.fs.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("pruning set %s: %w", name, err)
		}
		excess--
		s.logger.Debug("pruned set snapshot", zap.String("path", path))
	}
	return nil
}
