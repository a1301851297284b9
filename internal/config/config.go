package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	defaultChunkSize      = 900
	defaultChunkOverlap   = 200
	defaultTopK           = 6
	defaultScoreThreshold = 0.55
	defaultMinPageChars   = 50
	defaultDimension      = 384
	defaultIndexName      = "rag-pdf"
	defaultDBPath         = "./chromemdb"
	defaultEmbedBaseURL   = "http://localhost:11434"
	defaultEmbedModel     = "all-minilm"
	defaultChatBaseURL    = "https://api.groq.com/openai/v1"
	defaultChatModel      = "llama-3.3-70b-versatile"

	IDSchemePositional = "positional"
	IDSchemeContent    = "content"

	VectorDBChromem  = "chromem"
	VectorDBPGVector = "pgvector"
)

type Config struct {
	LogLevel string         `yaml:"log_level"`
	LogFile  string         `yaml:"log_file"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	ChatLLM  LLMConfig      `yaml:"chat_llm"`
	RAG      RAGConfig      `yaml:"rag"`
	VectorDB VectorDBConfig `yaml:"vector_db"`
	Database DatabaseConfig `yaml:"database"`
}

// LLMConfig describes one model endpoint. Provider is "ollama" or "openai"
// (any OpenAI-compatible server, Groq included).
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Key         string  `yaml:"key"`
	KeyEnv      string  `yaml:"key_env"`
	Temperature float64 `yaml:"temperature"`
}

type RAGConfig struct {
	ChunkSize      int     `yaml:"chunk_size"`
	ChunkOverlap   int     `yaml:"chunk_overlap"`
	TopK           int     `yaml:"top_k"`
	ScoreThreshold float64 `yaml:"score_threshold"`
	MinPageChars   int     `yaml:"min_page_chars"`
	IDScheme       string  `yaml:"id_scheme"`
}

type VectorDBConfig struct {
	Type          string `yaml:"type"`
	IndexName     string `yaml:"index_name"`
	Dimension     int    `yaml:"dimension"`
	Path          string `yaml:"path"`
	InMemory      bool   `yaml:"in_memory"`
	Compress      bool   `yaml:"compress"`
	EncryptionKey string `yaml:"encryption_key"`
}

type DatabaseConfig struct {
	// Driver is "pg" (bun pgdriver) or "postgres" (lib/pq).
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

// LoadConfig reads a YAML config file over the defaults, so keys absent from
// the file keep their default and explicit zeros are honoured. A missing file
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// Default returns a config with every default applied and no env overrides.
func Default() *Config {
	cfg := &Config{
		RAG: RAGConfig{
			ChunkSize:      defaultChunkSize,
			ChunkOverlap:   defaultChunkOverlap,
			TopK:           defaultTopK,
			ScoreThreshold: defaultScoreThreshold,
			MinPageChars:   defaultMinPageChars,
		},
		VectorDB: VectorDBConfig{Dimension: defaultDimension},
	}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills string settings left empty. Numeric settings are
// preset in Default so that zero stays a valid explicit value.
func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.EmbedLLM.Provider == "" {
		c.EmbedLLM.Provider = "ollama"
	}
	if c.EmbedLLM.BaseURL == "" {
		c.EmbedLLM.BaseURL = defaultEmbedBaseURL
	}
	if c.EmbedLLM.Model == "" {
		c.EmbedLLM.Model = defaultEmbedModel
	}
	if c.EmbedLLM.KeyEnv == "" {
		c.EmbedLLM.KeyEnv = "OPENAI_API_KEY"
	}

	if c.ChatLLM.Provider == "" {
		c.ChatLLM.Provider = "openai"
	}
	if c.ChatLLM.BaseURL == "" {
		c.ChatLLM.BaseURL = defaultChatBaseURL
	}
	if c.ChatLLM.Model == "" {
		c.ChatLLM.Model = defaultChatModel
	}
	if c.ChatLLM.KeyEnv == "" {
		c.ChatLLM.KeyEnv = "GROQ_API_KEY"
	}

	if c.RAG.IDScheme == "" {
		c.RAG.IDScheme = IDSchemePositional
	}

	if c.VectorDB.Type == "" {
		c.VectorDB.Type = VectorDBChromem
	}
	if c.VectorDB.IndexName == "" {
		c.VectorDB.IndexName = defaultIndexName
	}
	if c.VectorDB.Path == "" {
		c.VectorDB.Path = defaultDBPath
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "pg"
	}
}

func (c *Config) validate() error {
	switch {
	case c.RAG.ChunkOverlap < 0:
		return fmt.Errorf("rag.chunk_overlap must not be negative: %d", c.RAG.ChunkOverlap)
	case c.RAG.TopK < 0:
		return fmt.Errorf("rag.top_k must not be negative: %d", c.RAG.TopK)
	case c.RAG.MinPageChars < 0:
		return fmt.Errorf("rag.min_page_chars must not be negative: %d", c.RAG.MinPageChars)
	case c.VectorDB.Dimension < 0:
		return fmt.Errorf("vector_db.dimension must not be negative: %d", c.VectorDB.Dimension)
	}
	switch c.RAG.IDScheme {
	case IDSchemePositional, IDSchemeContent:
	default:
		return fmt.Errorf("unknown rag.id_scheme: %s", c.RAG.IDScheme)
	}
	return nil
}

func (c *Config) applyEnv() {
	if c.EmbedLLM.Key == "" {
		c.EmbedLLM.Key = os.Getenv(c.EmbedLLM.KeyEnv)
	}
	if c.ChatLLM.Key == "" {
		c.ChatLLM.Key = os.Getenv(c.ChatLLM.KeyEnv)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" && c.Database.DSN == "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" && c.Database.Password == "" {
		c.Database.Password = v
	}
	if v := os.Getenv("CHROMEM_ENCRYPTION_KEY"); v != "" && c.VectorDB.EncryptionKey == "" {
		c.VectorDB.EncryptionKey = v
	}
}
