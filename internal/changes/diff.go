package changes

import (
	"errors"
	"io/fs"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/afero"
)

// Diff returns a unified diff between the current content of the change's
// target and its proposed content.
func (s *Stager) Diff(c Change) (string, error) {
	from := "a/" + c.Key().String()
	current, err := afero.ReadFile(s.fs, s.Target(c.Key()))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		from = "/dev/null"
	case err != nil:
		return "", err
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(current)),
		B:        difflib.SplitLines(string(c.Content)),
		FromFile: from,
		ToFile:   "b/" + c.Key().String(),
		Context:  3,
	})
}
