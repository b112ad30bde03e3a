package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeMarkdown(t *testing.T) {
	v1, err := EscapeMarkdown("olive_oil *extra* [1L]", MarkdownV1)
	require.NoError(t, err)
	assert.Equal(t, `olive\_oil \*extra\* \[1L]`, v1)

	v2, err := EscapeMarkdown("a.b-c!", MarkdownV2)
	require.NoError(t, err)
	assert.Equal(t, `a\.b\-c\!`, v2)

	_, err = EscapeMarkdown("x", 3)
	assert.Error(t, err)
	assert.Equal(t, "plain", EscapeV1("plain"))
}
