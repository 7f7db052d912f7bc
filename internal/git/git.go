package git

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Fetch runs git fetch in the given repo directory.
func Fetch(repoDir string) error {
	return run(repoDir, "fetch", "--prune")
}

// CurrentBranch returns the current branch name, or empty string if detached.
func CurrentBranch(repoDir string) (string, error) {
	out, err := output(repoDir, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		// Detached HEAD: symbolic-ref fails.
		return "", nil
	}
	return strings.TrimSpace(out), nil
}

// HeadCommit returns the short SHA of HEAD.
func HeadCommit(repoDir string) (string, error) {
	out, err := output(repoDir, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// HeadCommitFull returns the full SHA of HEAD.
func HeadCommitFull(repoDir string) (string, error) {
	out, err := output(repoDir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// IsDirty returns true if the working tree has uncommitted changes.
func IsDirty(repoDir string) (bool, error) {
	out, err := output(repoDir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// ExactTag returns the tag pointing at HEAD, or empty string if there is none.
func ExactTag(repoDir string) (string, error) {
	out, err := outputQuiet(repoDir, "describe", "--tags", "--exact-match", "HEAD")
	if err != nil {
		if isExitError(errors.Unwrap(err)) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// BehindCount returns the number of commits on origin/<branch> that are not
// in HEAD. A missing remote branch counts as zero.
func BehindCount(repoDir, branch string) (int, error) {
	upstream := "refs/remotes/origin/" + branch
	if _, err := outputQuiet(repoDir, "rev-parse", "--verify", "--quiet", upstream); err != nil {
		if isExitError(errors.Unwrap(err)) {
			return 0, nil
		}
		return 0, err
	}
	out, err := outputQuiet(repoDir, "rev-list", "--count", "HEAD.."+upstream)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("parsing rev-list count: %w", err)
	}
	return n, nil
}

// RemoteURL returns the URL of the named remote, or empty string if the
// remote does not exist.
func RemoteURL(repoDir, remote string) (string, error) {
	out, err := outputQuiet(repoDir, "remote", "get-url", remote)
	if err != nil {
		if isExitError(errors.Unwrap(err)) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Submodule is one entry of a .gitmodules file.
type Submodule struct {
	Name   string
	Path   string
	URL    string
	Branch string
}

// Submodules reads the submodules declared in dir/.gitmodules, in file
// order. A missing file yields no submodules.
func Submodules(dir string) ([]Submodule, error) {
	file := filepath.Join(dir, ".gitmodules")
	if _, err := os.Stat(file); os.IsNotExist(err) {
		return nil, nil
	}
	out, err := outputQuiet(dir, "config", "--file", file, "--get-regexp", `^submodule\.`)
	if err != nil {
		if isExitError(errors.Unwrap(err)) {
			return nil, nil
		}
		return nil, err
	}
	return parseSubmoduleConfig(out), nil
}

// parseSubmoduleConfig parses "submodule.<name>.<key> <value>" lines.
func parseSubmoduleConfig(out string) []Submodule {
	var (
		subs  []Submodule
		index = make(map[string]int)
	)
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), " ")
		if !ok {
			continue
		}
		key = strings.TrimPrefix(key, "submodule.")
		dot := strings.LastIndexByte(key, '.')
		if dot <= 0 {
			continue
		}
		name, field := key[:dot], key[dot+1:]
		i, seen := index[name]
		if !seen {
			i = len(subs)
			index[name] = i
			subs = append(subs, Submodule{Name: name})
		}
		switch field {
		case "path":
			subs[i].Path = value
		case "url":
			subs[i].URL = value
		case "branch":
			subs[i].Branch = value
		}
	}
	return subs
}

// IsCloned returns true if the directory is a git repository.
// A submodule checkout has a .git file instead of a directory.
func IsCloned(repoDir string) bool {
	_, err := os.Stat(filepath.Join(repoDir, ".git"))
	return err == nil
}

// run executes a git command in the given directory.
func run(dir string, args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// output executes a git command and returns its stdout.
func output(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return stdout.String(), nil
}

// outputQuiet executes a git command and returns its stdout without printing to the console.
func outputQuiet(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String(), nil
}

func isExitError(err error) bool {
	_, ok := err.(*exec.ExitError)
	return ok
}
