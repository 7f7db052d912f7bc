package sets

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StateProvider answers per-repository predicates for computed sets.
type StateProvider interface {
	IsDirty(ctx context.Context, repo string) (bool, error)
	IsOutdated(ctx context.Context, repo string) (bool, error)
	HasStagedCache(ctx context.Context, repo string) (bool, error)
	IsUnreleased(ctx context.Context, repo string) (bool, error)
}

// Snapshotter is implemented by state providers that can share reads
// between the per-repository queries of one computed set.
type Snapshotter interface {
	Snapshot() StateProvider
}

// Names of the computed sets.
const (
	All        = "all"
	Dirty      = "dirty"
	Outdated   = "outdated"
	Cached     = "cached"
	Unreleased = "unreleased"
)

// ComputedNames lists the computed sets in the order they are documented.
var ComputedNames = []string{All, Dirty, Outdated, Cached, Unreleased}

// Engine evaluates set expressions against persisted sets and live
// repository state.
type Engine struct {
	store  *Store
	repos  []string
	state  StateProvider
	jobs   int
	logger *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithJobs bounds the number of concurrent state queries.
func WithJobs(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.jobs = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine returns an engine over the workspace repositories repos.
func NewEngine(store *Store, repos []string, state StateProvider, opts ...EngineOption) *Engine {
	e := &Engine{store: store, repos: repos, state: state, jobs: 8, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the persisted set store.
func (e *Engine) Store() *Store {
	return e.store
}

// Resolve parses and evaluates expr. Computed sets are queried every time
// they are referenced. The first error aborts the evaluation.
func (e *Engine) Resolve(ctx context.Context, expr string) (*Set, error) {
	parsed, err := ParseExpr(expr)
	if err != nil {
		return nil, err
	}
	set, err := e.Eval(ctx, parsed)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("resolved set expression", zap.String("expr", expr), zap.Int("repos", set.Len()))
	return set, nil
}

// Eval evaluates a parsed expression.
func (e *Engine) Eval(ctx context.Context, expr Expr) (*Set, error) {
	switch x := expr.(type) {
	case Ref:
		f, err := e.store.Load(x.Name)
		if err != nil {
			return nil, err
		}
		return f.Set(), nil
	case Computed:
		return e.computed(ctx, x.Name)
	case Binary:
		left, err := e.Eval(ctx, x.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.Eval(ctx, x.Right)
		if err != nil {
			return nil, err
		}
		switch x.Op {
		case OpUnion:
			return left.Union(right), nil
		case OpDifference:
			return left.Difference(right), nil
		case OpSymmetricDifference:
			return left.SymmetricDifference(right), nil
		case OpIntersection:
			return left.Intersection(right), nil
		}
		return nil, fmt.Errorf("unknown set operator %q", x.Op)
	default:
		return nil, fmt.Errorf("unsupported set expression %T", expr)
	}
}

func predicate(state StateProvider, name string) (func(context.Context, string) (bool, error), bool) {
	switch name {
	case Dirty:
		return state.IsDirty, true
	case Outdated:
		return state.IsOutdated, true
	case Cached:
		return state.HasStagedCache, true
	case Unreleased:
		return state.IsUnreleased, true
	}
	return nil, false
}

func (e *Engine) computed(ctx context.Context, name string) (*Set, error) {
	if name == All {
		return New(e.repos...), nil
	}
	state := e.state
	if s, ok := state.(Snapshotter); ok {
		state = s.Snapshot()
	}
	pred, ok := predicate(state, name)
	if !ok {
		return nil, &UnknownSetError{Name: "@" + name}
	}

	var (
		mu      sync.Mutex
		matched = make(map[int]bool)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.jobs)
	for i, repo := range e.repos {
		i, repo := i, repo
		g.Go(func() error {
			ok, err := pred(gctx, repo)
			if err != nil {
				return fmt.Errorf("@%s: %s: %w", name, repo, err)
			}
			if ok {
				mu.Lock()
				matched[i] = true
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := make([]int, 0, len(matched))
	for i := range matched {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := New()
	for _, i := range idx {
		out.Add(e.repos[i])
	}
	return out, nil
}
