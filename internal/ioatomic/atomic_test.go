package ioatomic

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	A int    `json:"a"`
	B string `json:"b"`
}

func TestWriteJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.json")

	want := sample{A: 7, B: "hi"}
	require.NoError(t, WriteJSON(path, want))

	var got sample
	require.NoError(t, ReadJSON(path, &got))
	assert.Equal(t, want, got)

	// no leftover temp file
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteJSONOverwriteIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	require.NoError(t, WriteJSON(path, sample{A: 1}))
	require.NoError(t, WriteJSON(path, sample{A: 2}))

	var got sample
	require.NoError(t, ReadJSON(path, &got))
	assert.Equal(t, 2, got.A)
}

func TestReadJSONMissingFile(t *testing.T) {
	dir := t.TempDir()
	var got sample
	err := ReadJSON(filepath.Join(dir, "missing.json"), &got)
	assert.True(t, os.IsNotExist(err))
}

func TestAppendJSONLProducesOneLinePerRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.jsonl")

	require.NoError(t, AppendJSONL(path, sample{A: 1, B: "x"}))
	require.NoError(t, AppendJSONL(path, sample{A: 2, B: "y"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := splitLines(data)
	require.Len(t, lines, 2)

	var first sample
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, 1, first.A)

	var second sample
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, 2, second.A)
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	return lines
}
