package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int              `json:"port"`
	CORSAllowlist []string         `json:"cors_allowlist"`
	RateLimitMS   int              `json:"rate_limit_ms"`
	LogConfig     logger.LogConfig `json:"log_config"`
	AI            AIConfig         `json:"ai"`
	Cache         CacheConfig      `json:"cache"`
	Index         IndexConfig      `json:"index"`
	Retrieval     RetrievalConfig  `json:"retrieval"`
	Corpus        CorpusConfig     `json:"corpus"`
}

type AIConfig struct {
	EmbedProvider string            `json:"embed_provider"`
	EmbedModel    string            `json:"embed_model"`
	EmbedData     interface{}       `json:"embed_data"`
	BatchSize     int               `json:"batch_size"`
	Generators    []GeneratorConfig `json:"generators"`
	GenTimeoutSec int               `json:"gen_timeout_sec"`
}

type GeneratorConfig struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type CacheConfig struct {
	Backend       string `json:"backend"`
	DBPath        string `json:"db_path"`
	PGDSN         string `json:"pg_dsn"`
	LRUSize       int    `json:"lru_size"`
	LRUTTLSeconds int    `json:"lru_ttl_seconds"`
	MaxAgeDays    int    `json:"max_age_days"`
	CleanupCron   string `json:"cleanup_cron"`
}

type IndexConfig struct {
	Dimension int              `json:"dimension"`
	Store     IndexStoreConfig `json:"store"`
}

type IndexStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type RetrievalConfig struct {
	TopK          int     `json:"top_k"`
	MinSimilarity float32 `json:"min_similarity"`
	RebuildCron   string  `json:"rebuild_cron"`
}

type CorpusConfig struct {
	CaptionsFile         string `json:"captions_file"`
	ImagesDir            string `json:"images_dir"`
	DictionaryFile       string `json:"dictionary_file"`
	MaxImages            int    `json:"max_images"`
	MaxDictionaryEntries int    `json:"max_dictionary_entries"`
	MinDefinitionLength  int    `json:"min_definition_length"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 8085
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.EmbedProvider == "" {
		return nil, fmt.Errorf("ai.embed_provider is required")
	}
	if cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.embed_model is required")
	}
	if cfg.AI.BatchSize <= 0 {
		cfg.AI.BatchSize = 32
	}
	if cfg.AI.GenTimeoutSec <= 0 {
		cfg.AI.GenTimeoutSec = 30
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "sqlite"
	}
	switch cfg.Cache.Backend {
	case "sqlite":
		if cfg.Cache.DBPath == "" {
			return nil, fmt.Errorf("cache.db_path is required for sqlite backend")
		}
	case "postgres":
		if cfg.Cache.PGDSN == "" {
			return nil, fmt.Errorf("cache.pg_dsn is required for postgres backend")
		}
	default:
		return nil, fmt.Errorf("cache.backend must be sqlite or postgres")
	}
	if cfg.Cache.LRUSize <= 0 {
		cfg.Cache.LRUSize = 4096
	}
	if cfg.Cache.LRUTTLSeconds <= 0 {
		cfg.Cache.LRUTTLSeconds = 600
	}
	if cfg.Index.Dimension <= 0 {
		cfg.Index.Dimension = 512
	}
	if cfg.Index.Store.Type == "" {
		cfg.Index.Store.Type = "local"
	}
	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.MinSimilarity == 0 {
		cfg.Retrieval.MinSimilarity = 0.01
	}
	if cfg.Corpus.MaxImages <= 0 {
		cfg.Corpus.MaxImages = 15000
	}
	if cfg.Corpus.MaxDictionaryEntries <= 0 {
		cfg.Corpus.MaxDictionaryEntries = 80000
	}
	if cfg.Corpus.MinDefinitionLength <= 0 {
		cfg.Corpus.MinDefinitionLength = 10
	}
	return &cfg, nil
}
