// Package config loads and validates agentmemory configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
)

// EnvConfigPath names the environment variable holding an explicit config path.
const EnvConfigPath = "AGENT_MEMORY_CONFIG"

// DefaultAgentID is the tenant used when none is configured or requested.
const DefaultAgentID = "default"

// Source types. The set is closed; see internal/source.
const (
	SourceMarkdownDir   = "markdown_dir"
	SourceSingleFile    = "single_file"
	SourceTranscriptDir = "transcript_dir"
)

// Config represents the complete agentmemory configuration.
type Config struct {
	AgentID    string           `yaml:"agent_id" json:"agent_id"`
	DBPath     string           `yaml:"db_path" json:"db_path"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Watch      WatchConfig      `yaml:"watch" json:"watch"`
	Sources    []SourceConfig   `yaml:"sources" json:"sources"`
}

// EmbeddingsConfig configures the embedding provider and the client policy around it.
type EmbeddingsConfig struct {
	// Provider is one of "ollama", "openai" (any OpenAI-compatible /v1/embeddings) or "static".
	Provider string `yaml:"provider" json:"provider"`
	URL      string `yaml:"url" json:"url"`
	Model    string `yaml:"model" json:"model"`
	// Dimensions is requested from OpenAI-compatible providers. Zero means
	// the provider's native size, learned from the first response.
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	APIKey     string `yaml:"api_key" json:"-"`

	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	Concurrency       int           `yaml:"concurrency" json:"concurrency"`
	BatchSize         int           `yaml:"batch_size" json:"batch_size"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
	CacheSize         int           `yaml:"cache_size" json:"cache_size"`
}

// ChunkingConfig sizes are in characters.
type ChunkingConfig struct {
	Size      int `yaml:"size" json:"size"`
	Overlap   int `yaml:"overlap" json:"overlap"`
	Tolerance int `yaml:"tolerance" json:"tolerance"`
}

// SearchConfig configures query defaults.
type SearchConfig struct {
	DefaultTopK int `yaml:"default_top_k" json:"default_top_k"`
	MaxTopK     int `yaml:"max_top_k" json:"max_top_k"`
	// ANNThreshold is the candidate count above which the HNSW index is
	// consulted before exact scoring. Zero disables ANN.
	ANNThreshold int `yaml:"ann_threshold" json:"ann_threshold"`
}

// ServerConfig configures the HTTP API and logging.
type ServerConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	LogLevel string `yaml:"log_level" json:"log_level"`
	// CORSOrigins lists allowed browser origins. Empty allows any.
	CORSOrigins []string `yaml:"cors_origins,omitempty" json:"cors_origins,omitempty"`
}

// WatchConfig configures `index --watch`.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" json:"debounce"`
}

// SourceConfig describes one ingestible origin.
type SourceConfig struct {
	Path        string `yaml:"path" json:"path"`
	Type        string `yaml:"type" json:"type"`
	SourceLabel string `yaml:"source_label,omitempty" json:"source_label,omitempty"`
	Recursive   bool   `yaml:"recursive,omitempty" json:"recursive,omitempty"`
}

// Label returns the configured label, defaulting to the type name.
func (s SourceConfig) Label() string {
	if s.SourceLabel != "" {
		return s.SourceLabel
	}
	return s.Type
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		AgentID: DefaultAgentID,
		DBPath:  defaultDBPath(),
		Embeddings: EmbeddingsConfig{
			Provider:          "ollama",
			URL:               "http://localhost:11434",
			Model:             "nomic-embed-text",
			Dimensions:        0,
			Timeout:           30 * time.Second,
			MaxRetries:        3,
			Concurrency:       4,
			BatchSize:         16,
			RequestsPerSecond: 0,
			CacheSize:         1000,
		},
		Chunking: ChunkingConfig{
			Size:      800,
			Overlap:   120,
			Tolerance: 80,
		},
		Search: SearchConfig{
			DefaultTopK:  5,
			MaxTopK:      100,
			ANNThreshold: 5000,
		},
		Server: ServerConfig{
			Addr:     "127.0.0.1:8100",
			LogLevel: "info",
		},
		Watch: WatchConfig{
			Debounce: 2 * time.Second,
		},
		Sources: []SourceConfig{},
	}
}

// DataDir returns ~/.agentmemory.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".agentmemory")
	}
	return filepath.Join(home, ".agentmemory")
}

func defaultDBPath() string {
	return filepath.Join(DataDir(), "memory.db")
}

// GetUserConfigPath returns the per-user config file path, honoring XDG_CONFIG_HOME.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "agentmemory", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "agentmemory", "config.yaml")
	}
	return filepath.Join(home, ".config", "agentmemory", "config.yaml")
}

// ResolvePath picks the config file to load:
//  1. explicit (the --config flag)
//  2. $AGENT_MEMORY_CONFIG
//  3. ./config.yaml
//  4. the user config path
//
// An explicit or env path that does not exist is an error. When nothing
// is found the empty string is returned and defaults apply.
func ResolvePath(explicit string) (string, error) {
	for _, p := range []string{explicit, os.Getenv(EnvConfigPath)} {
		if p == "" {
			continue
		}
		p = ExpandHome(p)
		if !fileExists(p) {
			return "", amerrors.New(amerrors.ErrCodeConfigNotFound,
				fmt.Sprintf("config file not found: %s", p), nil)
		}
		return p, nil
	}
	if fileExists("config.yaml") {
		return "config.yaml", nil
	}
	if p := GetUserConfigPath(); fileExists(p) {
		return p, nil
	}
	return "", nil
}

// Load builds the effective configuration, in order of increasing precedence:
//  1. Hardcoded defaults
//  2. The YAML file chosen by ResolvePath
//  3. Environment variables (AGENT_MEMORY_*)
//
// The result is validated; any problem is a fatal config error.
func Load(explicit string) (*Config, string, error) {
	path, err := ResolvePath(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg := NewConfig()
	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, path, err
		}
	}

	cfg.applyEnvOverrides()
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// loadYAML decodes path over the current values; keys absent from the
// file keep their defaults.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return amerrors.ConfigError(fmt.Sprintf("failed to read config file %s", path), err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return amerrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AGENT_MEMORY_AGENT_ID"); v != "" {
		c.AgentID = v
	}
	// AGENT_MEMORY_DEFAULT_AGENT is accepted as an alias.
	if v := os.Getenv("AGENT_MEMORY_DEFAULT_AGENT"); v != "" && os.Getenv("AGENT_MEMORY_AGENT_ID") == "" {
		c.AgentID = v
	}
	if v := os.Getenv("AGENT_MEMORY_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("AGENT_MEMORY_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("AGENT_MEMORY_OLLAMA_URL"); v != "" {
		c.Embeddings.URL = v
	}
	if v := os.Getenv("AGENT_MEMORY_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("AGENT_MEMORY_API_KEY"); v != "" {
		c.Embeddings.APIKey = v
	}
	if v := os.Getenv("AGENT_MEMORY_DIMENSIONS"); v != "" {
		if d, err := strconv.Atoi(v); err == nil && d >= 0 {
			c.Embeddings.Dimensions = d
		}
	}
	if v := os.Getenv("AGENT_MEMORY_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("AGENT_MEMORY_ADDR"); v != "" {
		c.Server.Addr = v
	}
}

func (c *Config) expandPaths() {
	c.DBPath = ExpandHome(c.DBPath)
	for i := range c.Sources {
		c.Sources[i].Path = ExpandHome(c.Sources[i].Path)
	}
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Validate checks the configuration. Every failure is a fatal config error.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return amerrors.ConfigError(fmt.Sprintf(format, args...), nil)
	}

	if strings.TrimSpace(c.AgentID) == "" {
		return invalid("agent_id must not be empty")
	}
	if c.DBPath == "" {
		return invalid("db_path must not be empty")
	}

	e := c.Embeddings
	switch strings.ToLower(e.Provider) {
	case "ollama", "openai":
		if e.URL == "" {
			return invalid("embeddings.url is required for provider %s", e.Provider)
		}
		if e.Model == "" {
			return invalid("embeddings.model is required for provider %s", e.Provider)
		}
	case "static":
	default:
		return invalid("embeddings.provider must be 'ollama', 'openai' or 'static', got %q", e.Provider)
	}
	if e.Dimensions < 0 {
		return invalid("embeddings.dimensions must be non-negative, got %d", e.Dimensions)
	}
	if e.Timeout <= 0 {
		return invalid("embeddings.timeout must be positive, got %s", e.Timeout)
	}
	if e.MaxRetries < 0 {
		return invalid("embeddings.max_retries must be non-negative, got %d", e.MaxRetries)
	}
	if e.Concurrency < 1 {
		return invalid("embeddings.concurrency must be at least 1, got %d", e.Concurrency)
	}
	if e.BatchSize < 1 {
		return invalid("embeddings.batch_size must be at least 1, got %d", e.BatchSize)
	}
	if e.RequestsPerSecond < 0 {
		return invalid("embeddings.requests_per_second must be non-negative, got %g", e.RequestsPerSecond)
	}
	if e.CacheSize < 0 {
		return invalid("embeddings.cache_size must be non-negative, got %d", e.CacheSize)
	}

	ch := c.Chunking
	if ch.Size < 1 {
		return amerrors.New(amerrors.ErrCodeInvalidChunking,
			fmt.Sprintf("chunking.size must be at least 1, got %d", ch.Size), nil)
	}
	if ch.Overlap < 0 || ch.Overlap >= ch.Size {
		return amerrors.New(amerrors.ErrCodeInvalidChunking,
			fmt.Sprintf("chunking.overlap must be in [0, size), got overlap=%d size=%d", ch.Overlap, ch.Size), nil)
	}
	if ch.Tolerance < 0 {
		return amerrors.New(amerrors.ErrCodeInvalidChunking,
			fmt.Sprintf("chunking.tolerance must be non-negative, got %d", ch.Tolerance), nil)
	}

	if c.Search.DefaultTopK < 1 {
		return invalid("search.default_top_k must be at least 1, got %d", c.Search.DefaultTopK)
	}
	if c.Search.MaxTopK < c.Search.DefaultTopK {
		return invalid("search.max_top_k (%d) must be >= default_top_k (%d)", c.Search.MaxTopK, c.Search.DefaultTopK)
	}
	if c.Search.ANNThreshold < 0 {
		return invalid("search.ann_threshold must be non-negative, got %d", c.Search.ANNThreshold)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return invalid("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}
	if c.Watch.Debounce < 0 {
		return invalid("watch.debounce must be non-negative, got %s", c.Watch.Debounce)
	}

	for i, s := range c.Sources {
		if s.Path == "" {
			return invalid("sources[%d].path must not be empty", i)
		}
		switch s.Type {
		case SourceMarkdownDir, SourceSingleFile, SourceTranscriptDir:
		default:
			return amerrors.New(amerrors.ErrCodeUnknownSourceType,
				fmt.Sprintf("sources[%d].type must be markdown_dir, single_file or transcript_dir, got %q", i, s.Type), nil)
		}
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
