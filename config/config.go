package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the document analysis tool.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Expansion ExpansionConfig `yaml:"expansion"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Rerank    RerankConfig    `yaml:"rerank"`
	LLM       LLMConfig       `yaml:"llm"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StoreConfig holds vector store configuration.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// IngestConfig holds ingestion configuration.
type IngestConfig struct {
	Includes  []string `yaml:"includes"`
	Excludes  []string `yaml:"excludes"`
	ChunkSize int      `yaml:"chunk_size"`       // character budget per chunk
	Overlap   int      `yaml:"overlap_sentences"`
	BatchRows int      `yaml:"batch_rows"`       // spreadsheet rows per segment
	BatchSize int      `yaml:"batch_size"`       // chunks embedded per batch
}

// RetrieveConfig holds retrieval and ranking configuration.
type RetrieveConfig struct {
	TopK          int     `yaml:"top_k"`
	MinScore      float64 `yaml:"min_score"` // normalized-score floor (0 = disabled)
	CacheSize     int     `yaml:"cache_size"`
	CacheTTLSecs  int     `yaml:"cache_ttl_seconds"`
}

// ExpansionConfig holds adaptive result-set expansion configuration.
type ExpansionConfig struct {
	InitialK int `yaml:"initial_k"`
	Step     int `yaml:"step"`
	MaxK     int `yaml:"max_k"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"` // OpenAI-compatible endpoint override
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// RerankConfig holds cross-encoder reranking configuration.
type RerankConfig struct {
	Provider  string `yaml:"provider"` // "cohere", "overlap", "none"
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// LLMConfig holds chat model configuration.
type LLMConfig struct {
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path: "data/index.db",
		},
		Ingest: IngestConfig{
			Includes:  []string{"**/*.pdf", "**/*.docx", "**/*.csv", "**/*.xlsx"},
			Excludes:  []string{"**/.git/**", "**/node_modules/**"},
			ChunkSize: 1000,
			Overlap:   1,
			BatchRows: 500,
			BatchSize: 100,
		},
		Retrieve: RetrieveConfig{
			TopK:         30,
			MinScore:     0,
			CacheSize:    100,
			CacheTTLSecs: 300,
		},
		Expansion: ExpansionConfig{
			InitialK: 5,
			Step:     5,
			MaxK:     30,
		},
		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 1536,
			BatchSize: 100,
		},
		Rerank: RerankConfig{
			Provider:  "overlap",
			Model:     "rerank-english-v3.0",
			APIKeyEnv: "COHERE_API_KEY",
		},
		LLM: LLMConfig{
			Model:     "gpt-4o-mini",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, applying defaults for
// missing fields.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for docrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// StorePath resolves the bolt file path relative to the root directory.
func (c *Config) StorePath(root string) string {
	if filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(root, c.Store.Path)
}
