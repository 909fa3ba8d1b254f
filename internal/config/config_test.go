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
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"ai": {"embed_provider": "clip", "embed_model": "ViT-B-32"},
		"cache": {"db_path": "/tmp/cache.db"}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8085, cfg.Port)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, 32, cfg.AI.BatchSize)
	require.Equal(t, 30, cfg.AI.GenTimeoutSec)
	require.Equal(t, "sqlite", cfg.Cache.Backend)
	require.Equal(t, 4096, cfg.Cache.LRUSize)
	require.Equal(t, 512, cfg.Index.Dimension)
	require.Equal(t, "local", cfg.Index.Store.Type)
	require.Equal(t, 5, cfg.Retrieval.TopK)
	require.InDelta(t, 0.01, float64(cfg.Retrieval.MinSimilarity), 1e-6)
	require.Equal(t, 15000, cfg.Corpus.MaxImages)
	require.Equal(t, 80000, cfg.Corpus.MaxDictionaryEntries)
	require.Equal(t, 10, cfg.Corpus.MinDefinitionLength)
}

func TestLoad_RequiresEmbedProvider(t *testing.T) {
	path := writeConfig(t, `{"cache": {"db_path": "/tmp/cache.db"}}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_RequiresBackendSettings(t *testing.T) {
	path := writeConfig(t, `{
		"ai": {"embed_provider": "clip", "embed_model": "ViT-B-32"},
		"cache": {"backend": "postgres"}
	}`)
	_, err := Load(path)
	require.Error(t, err)

	path = writeConfig(t, `{
		"ai": {"embed_provider": "clip", "embed_model": "ViT-B-32"},
		"cache": {"backend": "redis"}
	}`)
	_, err = Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
