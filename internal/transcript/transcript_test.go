package transcript

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("command and output", func(t *testing.T) {
		tr, err := Parse(strings.NewReader("$ typesim --settings\ntypesim\n  countdown 3s\n"))
		require.NoError(t, err)

		assert.Equal(t, "typesim --settings", tr.Command)
		assert.True(t, tr.HasOutput)
		assert.Equal(t, "typesim\n  countdown 3s\n", tr.Output)
		assert.Len(t, tr.Lines(), 2)
	})

	t.Run("command only", func(t *testing.T) {
		tr, err := Parse(strings.NewReader("$ uv tool install typesim\n"))
		require.NoError(t, err)

		assert.Equal(t, "uv tool install typesim", tr.Command)
		assert.False(t, tr.HasOutput)
		assert.Nil(t, tr.Lines())
	})

	t.Run("output only", func(t *testing.T) {
		tr, err := Parse(strings.NewReader("typesim\n > Settings"))
		require.NoError(t, err)

		assert.Empty(t, tr.Command)
		assert.True(t, tr.HasOutput)
		assert.Equal(t, "typesim\n > Settings", tr.Output)
	})

	t.Run("empty input", func(t *testing.T) {
		tr, err := Parse(strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, Transcript{}, tr)
	})

	t.Run("reader failure", func(t *testing.T) {
		_, err := Parse(failingReader{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading transcript")
	})
}

func TestTranscriptLines(t *testing.T) {
	tr := NewTranscript("typesim", "typesim\n\n > Start Typing")
	lines := tr.Lines()

	require.Len(t, lines, 3)
	assert.Equal(t, Header, lines[0].Category)
	assert.Equal(t, Plain, lines[1].Category)
	assert.Equal(t, SelectedMenuItem, lines[2].Category)

	custom := New(Options{SelectionMarker: "*"})
	assert.Equal(t, MenuItem, tr.LinesWith(custom)[2].Category)
	assert.Equal(t, lines, tr.LinesWith(nil), "nil classifier uses the default")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}
