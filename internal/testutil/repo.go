// Package testutil provides git fixtures shared by tests.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// CreateBareRepo creates a bare git repository with an initial commit in a temp directory.
// Returns the path to the bare repo.
func CreateBareRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	bare := filepath.Join(dir, "repo.git")

	// Create a working repo first, then clone it bare.
	work := filepath.Join(dir, "work")
	Run(t, dir, "git", "init", "-b", "main", work)
	configure(t, work)

	// Create an initial commit.
	WriteFile(t, filepath.Join(work, "README.md"), "# test\n")
	Run(t, work, "git", "add", ".")
	Run(t, work, "git", "commit", "-m", "initial commit")

	// Clone as bare.
	Run(t, dir, "git", "clone", "--bare", work, bare)
	return bare
}

// CloneRepo clones bare into dest and configures a commit identity.
func CloneRepo(t *testing.T, bare, dest string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil { //nolint:gosec // test dir
		t.Fatal(err)
	}
	Run(t, filepath.Dir(dest), "git", "clone", "--quiet", bare, dest)
	configure(t, dest)
}

// PushCommit adds a commit writing content to name on main of bare, through
// a throwaway clone.
func PushCommit(t *testing.T, bare, name, content string) {
	t.Helper()
	work := filepath.Join(t.TempDir(), "push")
	CloneRepo(t, bare, work)
	WriteFile(t, filepath.Join(work, name), content)
	Run(t, work, "git", "add", ".")
	Run(t, work, "git", "commit", "-m", "update "+name)
	Run(t, work, "git", "push", "--quiet", "origin", "HEAD:main")
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil { //nolint:gosec // test dir
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil { //nolint:gosec // test file
		t.Fatal(err)
	}
}

// Run runs a command in dir and fails the test on error.
func Run(t *testing.T, dir string, name string, args ...string) {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("command %s %v failed: %v", name, args, err)
	}
}

func configure(t *testing.T, dir string) {
	t.Helper()
	Run(t, dir, "git", "config", "user.email", "test@example.com")
	Run(t, dir, "git", "config", "user.name", "Test")
}
