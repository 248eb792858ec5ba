package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `{
	"port": 8080,
	"jwt_secret": "secret",
	"database": {"dsn": "postgres://localhost/rag"},
	"ai": {"provider": "openai", "data": {"api_key": "k"}},
	"file_store": {"type": "local", "dir": "/tmp/rag-files"}
}`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "text-embedding-3-small", cfg.AI.EmbeddingModel)
	require.Equal(t, 1536, cfg.AI.EmbeddingDims)
	require.Equal(t, 1000, cfg.Chunking.ChunkSize)
	require.Equal(t, 200, cfg.Chunking.Overlap)
	require.Equal(t, 10, cfg.Search.Limit)
	require.Equal(t, 0.7, cfg.Search.MinSimilarity)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, "ffmpeg", cfg.FFmpegPath)
}

func TestLoadMissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing port", `{"jwt_secret":"s","database":{"dsn":"x"},"ai":{"provider":"openai"},"file_store":{"type":"local","dir":"/tmp"}}`},
		{"missing jwt", `{"port":1,"database":{"dsn":"x"},"ai":{"provider":"openai"},"file_store":{"type":"local","dir":"/tmp"}}`},
		{"missing database", `{"port":1,"jwt_secret":"s","ai":{"provider":"openai"},"file_store":{"type":"local","dir":"/tmp"}}`},
		{"missing provider", `{"port":1,"jwt_secret":"s","database":{"dsn":"x"},"file_store":{"type":"local","dir":"/tmp"}}`},
		{"local store without dir", `{"port":1,"jwt_secret":"s","database":{"dsn":"x"},"ai":{"provider":"openai"},"file_store":{"type":"local"}}`},
		{"unknown store type", `{"port":1,"jwt_secret":"s","database":{"dsn":"x"},"ai":{"provider":"openai"},"file_store":{"type":"ftp"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
		})
	}
}

func TestLoadRejectsOverlapNotSmallerThanChunkSize(t *testing.T) {
	content := `{
		"port": 8080,
		"jwt_secret": "secret",
		"database": {"dsn": "x"},
		"ai": {"provider": "openai"},
		"file_store": {"type": "local", "dir": "/tmp"},
		"chunking": {"chunk_size": 100, "overlap": 100}
	}`
	_, err := Load(writeConfig(t, content))
	require.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
