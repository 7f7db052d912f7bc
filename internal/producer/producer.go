package producer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/fbkclanna/repokeep/internal/changes"
	"github.com/fbkclanna/repokeep/internal/manifest"
	"github.com/fbkclanna/repokeep/internal/version"
)

// Level is the severity of a diagnostic.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Diagnostic is a human readable finding about a repository.
type Diagnostic struct {
	Repo     string
	Producer string
	Level    Level
	Path     string
	Message  string
}

func (d Diagnostic) String() string {
	loc := d.Repo
	if d.Path != "" {
		loc = path.Join(d.Repo, d.Path)
	}
	return fmt.Sprintf("%s: %s: %s (%s)", loc, d.Level, d.Message, d.Producer)
}

// Input is what a producer gets to inspect one repository.
type Input struct {
	FS     afero.Fs
	Root   string
	Repo   manifest.Repo
	Config manifest.Config
	// Version is the resolved release version, nil when none was requested.
	Version *version.Resolved
}

// Dir returns the repository directory.
func (in Input) Dir() string {
	return filepath.Join(in.Root, filepath.FromSlash(in.Repo.ID()))
}

// Read returns the content and fingerprint of a repository file. A missing
// file yields nil content and changes.Absent.
func (in Input) Read(name string) ([]byte, string, error) {
	data, err := afero.ReadFile(in.FS, filepath.Join(in.Dir(), filepath.FromSlash(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, changes.Absent, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path.Join(in.Repo.ID(), name), err)
	}
	return data, changes.Fingerprint(data), nil
}

// Result is the output of one producer for one repository.
type Result struct {
	Changes     []changes.Change
	Diagnostics []Diagnostic
}

func (r *Result) change(p Producer, in Input, name, baseline string, content []byte, reason string) {
	r.Changes = append(r.Changes, changes.Change{
		Repo:     in.Repo.ID(),
		Path:     name,
		Baseline: baseline,
		Content:  content,
		Producer: p.Name(),
		Reason:   reason,
	})
}

func (r *Result) diag(p Producer, in Input, level Level, name, format string, args ...any) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{
		Repo:     in.Repo.ID(),
		Producer: p.Name(),
		Level:    level,
		Path:     name,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Producer inspects a repository and proposes changes.
type Producer interface {
	Name() string
	Produce(ctx context.Context, in Input) (Result, error)
}

// Builtins returns every known producer.
func Builtins() []Producer {
	return []Producer{Readme{}, Version{}, CI{}}
}

// Names returns the names of the known producers.
func Names() []string {
	var names []string
	for _, p := range Builtins() {
		names = append(names, p.Name())
	}
	return names
}

// Lookup returns the producers with the given names, in order.
func Lookup(names ...string) ([]Producer, error) {
	byName := make(map[string]Producer)
	for _, p := range Builtins() {
		byName[p.Name()] = p
	}
	var out []Producer
	for _, name := range names {
		p, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown producer %q (known: %v)", name, Names())
		}
		out = append(out, p)
	}
	return out, nil
}
