package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashBytesAndReaderAgree(t *testing.T) {
	payload := []byte("timetable bytes")

	fromBytes := HashBytes(payload)
	fromReader, err := HashReader(strings.NewReader(string(payload)))
	require.NoError(t, err)

	assert.Equal(t, fromBytes, fromReader)
	assert.Len(t, fromBytes, 64)
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	got, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, HashBytes([]byte("content")), got)

	_, err = HashFile(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}

func TestSheetKey(t *testing.T) {
	key := SheetKey("https://docs.google.com/spreadsheets/d/abc/edit")
	assert.Equal(t, "gsheet:https://docs.google.com/spreadsheets/d/abc/edit", key)
	// Synthetic keys can never collide with 64-hex content digests.
	assert.NotEqual(t, 64, len(key))
}
