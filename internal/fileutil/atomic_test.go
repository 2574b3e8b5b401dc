package fileutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type report struct {
	Rounds int   `json:"rounds"`
	Net    int64 `json:"net"`
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reports", "sim.json")
	require.NoError(t, WriteJSON(path, report{Rounds: 10, Net: -25}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got report
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, report{Rounds: 10, Net: -25}, got)
}

func TestWriteJSONReplacesAndLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "sim.json")
	require.NoError(t, WriteJSON(path, report{Rounds: 1}))
	require.NoError(t, WriteJSON(path, report{Rounds: 2}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"rounds": 2`)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteJSONEncodeError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.json")
	err := WriteJSON(path, make(chan int))
	assert.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
