package changes

import (
	"fmt"
	"sort"

	"github.com/docker/go-units"
	"go.uber.org/multierr"
)

// Report is the outcome of Apply.
type Report struct {
	Applied []Key
	Stale   []*StaleError
	Failed  []*IoError
	// Pending lists the entries that were staged but not written because
	// Apply ran without saving.
	Pending []Key
	// Bytes is the total size of the written content.
	Bytes int64
}

// Err combines the stale and failed entries into one error, or nil.
func (r *Report) Err() error {
	var err error
	for _, e := range r.Stale {
		err = multierr.Append(err, e)
	}
	for _, e := range r.Failed {
		err = multierr.Append(err, e)
	}
	return err
}

// Summary renders a one line description of the report.
func (r *Report) Summary() string {
	if len(r.Pending) > 0 {
		return fmt.Sprintf("%d change(s) staged, run with --save to apply", len(r.Pending))
	}
	return fmt.Sprintf("applied %d change(s) (%s), %d stale, %d failed",
		len(r.Applied), units.HumanSize(float64(r.Bytes)), len(r.Stale), len(r.Failed))
}

func (r *Report) sort() {
	sortKeys(r.Applied)
	sort.Slice(r.Stale, func(i, j int) bool { return lessKey(r.Stale[i].Key, r.Stale[j].Key) })
	sort.Slice(r.Failed, func(i, j int) bool { return lessKey(r.Failed[i].Key, r.Failed[j].Key) })
}
