package producer

import (
	"context"
	"fmt"
	"strings"

	"github.com/fbkclanna/repokeep/internal/version"
)

// Version writes the release version to the repository's version file.
type Version struct{}

// Name implements Producer.
func (Version) Name() string { return "version" }

// Produce implements Producer. It does nothing unless a version was
// resolved for the run.
func (p Version) Produce(_ context.Context, in Input) (Result, error) {
	var res Result
	if in.Version == nil {
		return res, nil
	}

	target, err := version.ParseTarget(in.Config.VersionFormat)
	if err != nil {
		return res, err
	}
	text, err := version.Format(*in.Version, target)
	if err != nil {
		res.diag(p, in, LevelError, in.Config.VersionFile, "%v", err)
		return res, nil
	}

	name := in.Config.VersionFile
	data, baseline, err := in.Read(name)
	if err != nil {
		return res, err
	}
	current := strings.TrimSpace(string(data))
	if current == text {
		return res, nil
	}

	reason := fmt.Sprintf("set version to %s", text)
	if current != "" {
		reason += fmt.Sprintf(" (was %s)", current)
	}
	res.change(p, in, name, baseline, []byte(text+"\n"), reason)
	return res, nil
}
