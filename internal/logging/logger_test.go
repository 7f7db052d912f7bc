package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, lvl := range []string{LevelDebug, LevelInfo, "warn", "error", LevelNone} {
		t.Run(lvl, func(t *testing.T) {
			l, err := New(lvl)
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestNew_invalidLevel(t *testing.T) {
	_, err := New("chatty")
	assert.Error(t, err)
	assert.Panics(t, func() { Must("chatty") })
}
