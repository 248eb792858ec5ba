package filestore

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/teamgrid/ragengine/internal/config"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := New(config.FileStoreConfig{Type: "local", Dir: t.TempDir()})
	require.NoError(t, err)

	ctx := context.Background()
	content := []byte("archived upload")
	require.NoError(t, store.Save(ctx, "doc-1.pdf", bytes.NewReader(content), int64(len(content))))

	r, err := store.Open(ctx, "doc-1.pdf")
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestLocalStoreRejectsPathKeys(t *testing.T) {
	store, err := New(config.FileStoreConfig{Type: "local", Dir: t.TempDir()})
	require.NoError(t, err)

	ctx := context.Background()
	require.Error(t, store.Save(ctx, "../escape", bytes.NewReader(nil), 0))
	require.Error(t, store.Save(ctx, "a/b", bytes.NewReader(nil), 0))
	_, err = store.Open(ctx, "..\\escape")
	require.Error(t, err)
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(config.FileStoreConfig{Type: "ftp"})
	require.Error(t, err)
	_, err = New(config.FileStoreConfig{})
	require.Error(t, err)
}
