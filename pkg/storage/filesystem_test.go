package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ref, err := store.SaveStream("2024/01/doc.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "2024/01/doc.pdf", ref)
	assert.True(t, store.Exists(ref))

	f, err := store.Open(ref)
	require.NoError(t, err)
	body, _ := io.ReadAll(f)
	_ = f.Close()
	assert.Equal(t, "%PDF-1.4", string(body))

	_, err = store.SaveStream("2024/01/doc.pdf", strings.NewReader("again"))
	assert.ErrorIs(t, err, ErrReferenceExists)

	f, err = store.Open(ref)
	require.NoError(t, err)
	body, _ = io.ReadAll(f)
	_ = f.Close()
	assert.Equal(t, "%PDF-1.4", string(body))

	assert.False(t, store.Exists("2024/01"))
	assert.False(t, store.Exists("2024/01/missing.pdf"))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("client went away") }

func TestLocalStorageLeavesNothingOnFailedWrite(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.SaveStream("2024/02/doc.pdf", failingReader{})
	require.Error(t, err)
	assert.False(t, store.Exists("2024/02/doc.pdf"))

	entries, err := os.ReadDir(filepath.Join(dir, "2024", "02"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, ref := range []string{"../etc/passwd", "/etc/passwd", "", "a/../../b"} {
		_, err := store.SaveStream(ref, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidReference, ref)
	}
}
