package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChunks(t *testing.T) {
	t.Parallel()

	data := []byte(`[
		{"id": "rinck-1", "content": "Half-court press drills.", "metadata": {"section": "1"}},
		{"id": "rinck-2", "content": "Pivot screening principles."}
	]`)

	chunks, err := parseChunks(data)

	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "rinck-1", chunks[0].ID)
	assert.Equal(t, map[string]string{"section": "1"}, chunks[0].Metadata)
	assert.Nil(t, chunks[1].Metadata)
}

func TestParseChunksRejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{"not json", `{broken`},
		{"missing id", `[{"content": "text"}]`},
		{"blank content", `[{"id": "x", "content": "   "}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := parseChunks([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, out.String(), "courtside")
}
