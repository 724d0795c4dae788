package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	BackendSQLite   = "sqlite"
	BackendWeaviate = "weaviate"
)

type Config struct {
	Port          string            `mapstructure:"port"`
	AssistantName string            `mapstructure:"assistant_name"`
	LogLevel      string            `mapstructure:"log_level"`
	Development   bool              `mapstructure:"development"`
	Model         ModelConfig       `mapstructure:"model"`
	Embedding     EmbeddingConfig   `mapstructure:"embedding"`
	VectorStore   VectorStoreConfig `mapstructure:"vector_store"`
	Chunking      ChunkingConfig    `mapstructure:"chunking"`
	Retrieval     RetrievalConfig   `mapstructure:"retrieval"`
	Agent         AgentConfig       `mapstructure:"agent"`
	WebSearch     WebSearchConfig   `mapstructure:"web_search"`
	Session       SessionConfig     `mapstructure:"session"`
	Fetch         FetchConfig       `mapstructure:"fetch"`
	Sources       []SourceConfig    `mapstructure:"sources"`
	GoogleAPIKey  string            `mapstructure:"GOOGLE_API_KEY"`
	OpenAIAPIKey  string            `mapstructure:"OPENAI_API_KEY"`
}

type ModelConfig struct {
	Provider string `mapstructure:"provider"`
	Name     string `mapstructure:"name"`
	BaseURL  string `mapstructure:"base_url"`
}

type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	BatchSize int    `mapstructure:"batch_size"`
}

type VectorStoreConfig struct {
	Backend          string              `mapstructure:"backend"`
	Collection       string              `mapstructure:"collection"`
	PersistDirectory string              `mapstructure:"persist_directory"`
	Weaviate         WeaviateStoreConfig `mapstructure:"weaviate"`
}

type WeaviateStoreConfig struct {
	Host   string `mapstructure:"host"`
	APIKey string `mapstructure:"WEAVIATE_APIKEY"`
}

type ChunkingConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
}

type RetrievalConfig struct {
	TopK int `mapstructure:"top_k"`
}

type AgentConfig struct {
	Name                string `mapstructure:"name"`
	UserID              string `mapstructure:"user_id"`
	NumHistoryResponses int    `mapstructure:"num_history_responses"`
	ShowToolCalls       bool   `mapstructure:"show_tool_calls"`
	Markdown            bool   `mapstructure:"markdown"`
	DebugMode           bool   `mapstructure:"debug_mode"`
	MaxToolRounds       int    `mapstructure:"max_tool_rounds"`
}

type WebSearchConfig struct {
	APIKey     string `mapstructure:"GOOGLE_SEARCH_API_KEY"`
	EngineID   string `mapstructure:"GOOGLE_SEARCH_ENGINE_ID"`
	MaxResults int64  `mapstructure:"max_results"`
}

// Enabled reports whether the web-search tool can be attached to the agent.
func (c WebSearchConfig) Enabled() bool {
	return c.APIKey != "" && c.EngineID != ""
}

type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

type SourceConfig struct {
	ID  string `mapstructure:"id"`
	URL string `mapstructure:"url"`
}

// SourceMap returns the source registry keyed by source ID.
func (c *Config) SourceMap() map[string]string {
	m := make(map[string]string, len(c.Sources))
	for _, s := range c.Sources {
		m[s.ID] = s.URL
	}
	return m
}

// DBPath is the on-disk location of the sqlite collection.
func (c VectorStoreConfig) DBPath() string {
	return filepath.Join(c.PersistDirectory, c.Collection+".db")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8501")
	v.SetDefault("assistant_name", "JioPay Support Assistant")
	v.SetDefault("log_level", "info")
	v.SetDefault("development", false)

	v.SetDefault("model.provider", ProviderGemini)
	v.SetDefault("model.name", "gemini-2.0-flash-exp")
	v.SetDefault("model.base_url", "")

	v.SetDefault("embedding.provider", ProviderGemini)
	v.SetDefault("embedding.model", "text-embedding-004")
	v.SetDefault("embedding.batch_size", 100)

	v.SetDefault("vector_store.backend", BackendSQLite)
	v.SetDefault("vector_store.collection", "CustomerSupport")
	v.SetDefault("vector_store.persist_directory", "./chroma_db")
	v.SetDefault("vector_store.weaviate.host", "http://localhost:8080")

	v.SetDefault("chunking.chunk_size", 1024)
	v.SetDefault("chunking.chunk_overlap", 50)

	v.SetDefault("retrieval.top_k", 4)

	v.SetDefault("agent.name", "jiopay_support_agent")
	v.SetDefault("agent.num_history_responses", 3)
	v.SetDefault("agent.show_tool_calls", true)
	v.SetDefault("agent.markdown", true)
	v.SetDefault("agent.debug_mode", false)
	v.SetDefault("agent.max_tool_rounds", 5)

	v.SetDefault("web_search.max_results", 5)

	v.SetDefault("session.ttl", 2*time.Hour)
	v.SetDefault("session.cleanup_interval", 10*time.Minute)

	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (compatible; support-assistant/1.0)")

	v.SetDefault("sources", defaultSourceValues())
}

func bindEnv(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("GOOGLE_API_KEY", "GOOGLE_API_KEY", "GEMINI_API_KEY")
	v.BindEnv("OPENAI_API_KEY")
	v.BindEnv("vector_store.weaviate.WEAVIATE_APIKEY", "WEAVIATE_APIKEY")
	v.BindEnv("web_search.GOOGLE_SEARCH_API_KEY", "GOOGLE_SEARCH_API_KEY")
	v.BindEnv("web_search.GOOGLE_SEARCH_ENGINE_ID", "GOOGLE_SEARCH_ENGINE_ID")
}

// LoadConfig reads configuration from configPath (if set), the environment
// and built-in defaults, then validates it. With an empty path the file
// config/config.yaml or $HOME/.support-assistant.yaml is used when present.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate reports every configuration problem found, joined into one error.
func (c *Config) Validate() error {
	var errs []error

	switch c.Model.Provider {
	case ProviderGemini:
		if c.GoogleAPIKey == "" {
			errs = append(errs, errors.New("GOOGLE_API_KEY is required for the gemini model provider"))
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" && c.Model.BaseURL == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai model provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported model provider %q", c.Model.Provider))
	}
	if c.Model.Name == "" {
		errs = append(errs, errors.New("model.name must be set"))
	}

	switch c.Embedding.Provider {
	case ProviderGemini:
		if c.GoogleAPIKey == "" {
			errs = append(errs, errors.New("GOOGLE_API_KEY is required for the gemini embedding provider"))
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" && c.Model.BaseURL == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai embedding provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported embedding provider %q", c.Embedding.Provider))
	}
	if c.Embedding.BatchSize <= 0 {
		errs = append(errs, errors.New("embedding.batch_size must be positive"))
	}

	switch c.VectorStore.Backend {
	case BackendSQLite:
		if c.VectorStore.PersistDirectory == "" {
			errs = append(errs, errors.New("vector_store.persist_directory must be set for the sqlite backend"))
		}
	case BackendWeaviate:
		if c.VectorStore.Weaviate.Host == "" {
			errs = append(errs, errors.New("vector_store.weaviate.host must be set for the weaviate backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported vector store backend %q", c.VectorStore.Backend))
	}
	if c.VectorStore.Collection == "" {
		errs = append(errs, errors.New("vector_store.collection must be set"))
	}

	if c.Chunking.ChunkSize <= 0 {
		errs = append(errs, errors.New("chunking.chunk_size must be positive"))
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		errs = append(errs, errors.New("chunking.chunk_overlap must be in [0, chunk_size)"))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, errors.New("retrieval.top_k must be positive"))
	}
	if c.Agent.NumHistoryResponses < 0 {
		errs = append(errs, errors.New("agent.num_history_responses must not be negative"))
	}
	if c.Agent.MaxToolRounds <= 0 {
		errs = append(errs, errors.New("agent.max_tool_rounds must be positive"))
	}

	if len(c.Sources) == 0 {
		errs = append(errs, errors.New("at least one source URL must be configured"))
	}
	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		if s.ID == "" || s.URL == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: id and url are required", i))
			continue
		}
		if seen[s.ID] {
			errs = append(errs, fmt.Errorf("sources[%d]: duplicate id %q", i, s.ID))
		}
		seen[s.ID] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
