package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalise_FixesLineEndings(t *testing.T) {
	n := New()

	got, err := n.Normalise(context.Background(), "line one\r\nline two\rline three")

	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\nline three", got)
}

func TestNormalise_StripsBOM(t *testing.T) {
	n := New()

	got, err := n.Normalise(context.Background(), "\ufeff1 In the beginning")

	require.NoError(t, err)
	assert.Equal(t, "1 In the beginning", got)
}

func TestNormalise_RemovesControlCharacters(t *testing.T) {
	n := New()

	got, err := n.Normalise(context.Background(), "text\x00with\x07noise")

	require.NoError(t, err)
	assert.Equal(t, "textwithnoise", got)
}

func TestNormalise_KeepsFormFeedPageBreaks(t *testing.T) {
	n := New()

	got, err := n.Normalise(context.Background(), "page one\fpage two")

	require.NoError(t, err)
	assert.Equal(t, "page one\fpage two", got)
}

func TestNormalise_CollapsesExcessBlankLines(t *testing.T) {
	n := New()

	got, err := n.Normalise(context.Background(), "a\n\n\n\n\nb")

	require.NoError(t, err)
	assert.Equal(t, "a\n\nb", got)
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, []string{".txt"}, New().Extensions())
}
