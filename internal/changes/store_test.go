package changes

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func change(repo, path, baseline, content string) Change {
	return Change{Repo: repo, Path: path, Baseline: baseline, Content: []byte(content), Producer: "test"}
}

func TestStore_Propose(t *testing.T) {
	h0 := Fingerprint([]byte("old"))

	t.Run("identical proposal is a no-op", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.Propose(change("a", "README.md", h0, "new")))
		require.NoError(t, s.Propose(change("a", "README.md", h0, "new")))
		assert.Equal(t, 1, s.Len())
	})

	t.Run("same baseline replaces content", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.Propose(change("a", "README.md", h0, "one")))
		require.NoError(t, s.Propose(change("a", "README.md", h0, "two")))
		c, ok := s.Get(Key{Repo: "a", Path: "README.md"})
		require.True(t, ok)
		assert.Equal(t, "two", string(c.Content))
	})

	t.Run("different baseline conflicts", func(t *testing.T) {
		s := NewStore()
		first := change("a", "README.md", h0, "one")
		require.NoError(t, s.Propose(first))

		err := s.Propose(change("a", "README.md", Fingerprint([]byte("other")), "two"))
		var conflict *ConflictError
		require.True(t, errors.As(err, &conflict), "got %v", err)
		assert.Equal(t, Key{Repo: "a", Path: "README.md"}, conflict.Key)

		c, _ := s.Get(first.Key())
		assert.Equal(t, "one", string(c.Content), "store must keep the first proposal")
	})

	t.Run("same path in different repos", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.Propose(change("a", "VERSION", Absent, "1")))
		require.NoError(t, s.Propose(change("b", "VERSION", h0, "1")))
		assert.Equal(t, 2, s.Len())
		assert.Equal(t, []string{"a", "b"}, s.Repos())
	})

	t.Run("invalid changes", func(t *testing.T) {
		s := NewStore()
		assert.Error(t, s.Propose(change("", "x", h0, "")))
		assert.Error(t, s.Propose(change("a", "", h0, "")))
		assert.Error(t, s.Propose(change("a", "/etc/passwd", h0, "")))
		assert.Error(t, s.Propose(change("a", "x", "", "")))
		assert.Error(t, s.Propose(change("a", "../b/Y", h0, "")))
		assert.Error(t, s.Propose(change("a", "sub/../..", h0, "")))
		assert.Error(t, s.Propose(change("a", ".", h0, "")))
		assert.Error(t, s.Propose(change("../outside", "x", h0, "")))
		assert.Error(t, s.Propose(change("/abs", "x", h0, "")))
		assert.Zero(t, s.Len())
	})

	t.Run("keys are stored cleaned", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.Propose(change("lib/a/", "./docs//README.md", h0, "new")))
		c, ok := s.Get(Key{Repo: "lib/a", Path: "docs/README.md"})
		require.True(t, ok)
		assert.Equal(t, "lib/a", c.Repo)
		assert.Equal(t, "docs/README.md", c.Path)
	})

	t.Run("nested repositories cannot alias a file", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.Propose(change("lib/a", "VERSION", h0, "1")))
		err := s.Propose(change("lib", "a/VERSION", h0, "2"))
		var conflict *ConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, 1, s.Len())

		s.Remove(Key{Repo: "lib/a", Path: "VERSION"})
		assert.NoError(t, s.Propose(change("lib", "a/VERSION", h0, "2")))
	})
}

func TestStore_concurrentProducers(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Propose(change(fmt.Sprintf("repo%02d", i), "VERSION", Absent, "1.0.0")))
		}(i)
	}
	wg.Wait()

	changes := s.Changes()
	require.Len(t, changes, 32)
	assert.Equal(t, "repo00", changes[0].Repo)
	assert.Equal(t, "repo31", changes[31].Repo)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("hello"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, Fingerprint([]byte("hello")))
	assert.NotEqual(t, a, Fingerprint([]byte("hello\n")))
	assert.NotEqual(t, Absent, Fingerprint(nil))
}
