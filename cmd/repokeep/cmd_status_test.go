package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fbkclanna/repokeep/internal/testutil"
)

func statusJSON(t *testing.T, wsDir string, args ...string) []repoStatus {
	t.Helper()
	out, err := execute(t, wsDir, append([]string{"status", "--json"}, args...)...)
	if err != nil {
		t.Fatalf("status --json failed: %v", err)
	}
	var statuses []repoStatus
	if err := json.Unmarshal([]byte(out), &statuses); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	return statuses
}

func TestRunStatus_table(t *testing.T) {
	wsDir, _ := setupWorkspace(t, 2)

	out, err := execute(t, wsDir, "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got:\n%s", out)
	}
	if !strings.Contains(lines[0], "UNRELEASED") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "alpha") || !strings.Contains(lines[1], "main") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestRunStatus_json(t *testing.T) {
	wsDir, bares := setupWorkspace(t, 2)

	if err := os.WriteFile(filepath.Join(wsDir, "alpha", "new.txt"), []byte("x"), 0644); err != nil { //nolint:gosec // test file
		t.Fatal(err)
	}
	testutil.PushCommit(t, bares[1], "NEWS.md", "news\n")

	statuses := statusJSON(t, wsDir, "--fetch")
	if len(statuses) != 2 {
		t.Fatalf("expected 2 status entries, got %d", len(statuses))
	}
	alpha, beta := statuses[0], statuses[1]
	if !alpha.Cloned || alpha.Branch != "main" || alpha.Head == "" {
		t.Errorf("alpha = %+v", alpha)
	}
	if !alpha.Dirty || alpha.Outdated {
		t.Errorf("alpha should be dirty and up to date: %+v", alpha)
	}
	if beta.Dirty || !beta.Outdated {
		t.Errorf("beta should be clean and outdated: %+v", beta)
	}
	if !alpha.Unreleased || !beta.Unreleased {
		t.Errorf("repos without a release should be unreleased: %+v", statuses)
	}
}

func TestRunStatus_stagedAndSet(t *testing.T) {
	wsDir, _ := setupWorkspace(t, 2)

	if _, err := execute(t, wsDir, "check", "--version", "1.0.0"); err != nil {
		t.Fatalf("check failed: %v", err)
	}
	statuses := statusJSON(t, wsDir, "--set", "@cached")
	if len(statuses) != 2 || !statuses[0].Staged {
		t.Errorf("expected both repos staged: %+v", statuses)
	}

	if _, err := execute(t, wsDir, "changes", "--save"); err != nil {
		t.Fatalf("changes --save failed: %v", err)
	}
	statuses = statusJSON(t, wsDir, "--set", "@cached")
	if len(statuses) != 0 {
		t.Errorf("nothing should be staged: %+v", statuses)
	}
	statuses = statusJSON(t, wsDir, "--set", "@dirty")
	if len(statuses) != 2 {
		t.Errorf("applied changes should leave both repos dirty: %+v", statuses)
	}
}
