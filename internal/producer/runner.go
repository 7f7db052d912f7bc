package producer

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fbkclanna/repokeep/internal/changes"
)

// RunOptions configures Run.
type RunOptions struct {
	// Jobs bounds the number of repositories inspected concurrently.
	Jobs int
	// Done is called after all producers finished for a repository.
	Done   func(repo string, failed bool)
	Logger *zap.Logger
}

// Run runs producers over every input concurrently and proposes the
// resulting changes into store. Producers disabled in a repository's config
// are skipped. Producer failures and conflicting proposals only drop the
// affected proposals and are reported as error diagnostics. Run returns an
// error only when ctx is done.
func Run(ctx context.Context, inputs []Input, producers []Producer, store *changes.Store, opts RunOptions) ([]Diagnostic, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = 4
	}

	var (
		mu    sync.Mutex
		diags []Diagnostic
	)
	report := func(ds ...Diagnostic) {
		mu.Lock()
		diags = append(diags, ds...)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, in := range inputs {
		in := in
		g.Go(func() error {
			failed := false
			for _, p := range producers {
				if err := gctx.Err(); err != nil {
					return err
				}
				if in.Config.IsDisabled(p.Name()) {
					logger.Debug("producer disabled", zap.String("repo", in.Repo.ID()), zap.String("producer", p.Name()))
					continue
				}

				res, err := p.Produce(gctx, in)
				if err != nil {
					failed = true
					report(Diagnostic{Repo: in.Repo.ID(), Producer: p.Name(), Level: LevelError, Message: err.Error()})
					continue
				}
				report(res.Diagnostics...)

				for _, c := range res.Changes {
					if err := store.Propose(c); err != nil {
						failed = true
						var conflict *changes.ConflictError
						if errors.As(err, &conflict) {
							logger.Warn("conflicting proposal", zap.Stringer("file", conflict.Key), zap.String("producer", p.Name()))
						}
						report(Diagnostic{Repo: c.Repo, Producer: p.Name(), Level: LevelError, Path: c.Path, Message: err.Error()})
					}
				}
			}
			if opts.Done != nil {
				opts.Done(in.Repo.ID(), failed)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].Repo != diags[j].Repo {
			return diags[i].Repo < diags[j].Repo
		}
		return diags[i].Producer < diags[j].Producer
	})
	return diags, nil
}
