package producer

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fbkclanna/repokeep/internal/changes"
)

// CI validates the repository's CI workflow and keeps its name in line with
// the configured workflow name.
type CI struct{}

// Name implements Producer.
func (CI) Name() string { return "ci" }

// Produce implements Producer.
func (p CI) Produce(_ context.Context, in Input) (Result, error) {
	var res Result
	name := in.Config.Workflow

	data, baseline, err := in.Read(name)
	if err != nil {
		return res, err
	}
	if baseline == changes.Absent {
		res.diag(p, in, LevelWarning, name, "missing CI workflow")
		return res, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		res.diag(p, in, LevelError, name, "invalid workflow: %v", err)
		return res, nil
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		res.diag(p, in, LevelError, name, "workflow is not a mapping")
		return res, nil
	}
	root := doc.Content[0]

	want := in.Config.WorkflowName
	if key, value := lookup(root, "name"); value == nil {
		res.change(p, in, name, baseline, append([]byte("name: "+quote(want)+"\n"), data...), "add workflow name")
	} else if value.Value != want {
		content, err := replaceLine(data, key.Line, "name: "+quote(want))
		if err != nil {
			return res, err
		}
		res.change(p, in, name, baseline, content, fmt.Sprintf("rename workflow from %q to %q", value.Value, want))
	}

	p.validateOn(&res, in, root)

	if _, jobs := lookup(root, "jobs"); jobs == nil || jobs.Kind != yaml.MappingNode || len(jobs.Content) == 0 {
		res.diag(p, in, LevelError, name, "workflow has no jobs")
	}
	return res, nil
}

func (p CI) validateOn(res *Result, in Input, root *yaml.Node) {
	name := in.Config.Workflow
	_, on := lookup(root, "on")
	if on == nil || on.Kind != yaml.MappingNode {
		res.diag(p, in, LevelWarning, name, "on: expected a mapping")
		return
	}
	if _, pr := lookup(on, "pull_request"); pr == nil {
		res.diag(p, in, LevelWarning, name, "on.pull_request: missing")
	}

	_, push := lookup(on, "push")
	if push == nil || push.Kind != yaml.MappingNode {
		res.diag(p, in, LevelWarning, name, "on.push: expected a mapping")
		return
	}
	_, branches := lookup(push, "branches")
	if branches == nil || branches.Kind != yaml.SequenceNode {
		res.diag(p, in, LevelWarning, name, "on.push.branches: expected a sequence")
		return
	}
	ref := in.Repo.EffectiveRef()
	for _, b := range branches.Content {
		if b.Value == ref {
			return
		}
	}
	res.diag(p, in, LevelWarning, name, "on.push.branches: missing branch %q", ref)
}

// lookup returns the key and value nodes of key in a mapping node.
func lookup(m *yaml.Node, key string) (*yaml.Node, *yaml.Node) {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil, nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i], m.Content[i+1]
		}
	}
	return nil, nil
}

// replaceLine replaces the 1-based line n of data, keeping its indentation
// and line ending.
func replaceLine(data []byte, n int, text string) ([]byte, error) {
	lines := bytes.SplitAfter(data, []byte("\n"))
	if n < 1 || n > len(lines) {
		return nil, fmt.Errorf("line %d out of range", n)
	}
	line := string(lines[n-1])
	indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
	lines[n-1] = []byte(indent + text + lineEnding(line))
	return bytes.Join(lines, nil), nil
}

func quote(s string) string {
	out, err := yaml.Marshal(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(string(out))
}
