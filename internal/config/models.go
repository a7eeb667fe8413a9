package config

import (
	"fmt"
	"time"
)

// durationKeys are checked by Validate so typed accessors can ignore parse errors
var durationKeys = []string{
	"server.http.read_timeout",
	"server.http.write_timeout",
	"server.http.shutdown_timeout",
	"smtp.analysis_timeout",
	"remote.timeout",
	"bedrock.timeout",
	"gemini.timeout",
	"openai.timeout",
	"cache.ttl",
	"cache.cleanup_frequency",
}

// ServerConfig represents the listener selection
type ServerConfig struct {
	Listeners []string
	HTTP      HTTPConfig
}

// HTTPConfig represents the configuration of the JSON API
type HTTPConfig struct {
	ListenAddress   string
	AllowedOrigins  []string
	MaxBodyBytes    int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// SMTPConfig represents the configuration of the SMTP content filter
type SMTPConfig struct {
	ListenAddress    string
	BlockPhishing    bool
	StatusHeader     string
	ConfidenceHeader string
	ErrorHeader      string
	ModifySubject    bool
	SubjectPrefix    string
	RelayEnabled     bool
	RelayAddress     string
	RelayPort        int
	AnalysisTimeout  time.Duration
	MaxMessageBytes  int64
}

// ClassifierConfig represents the classifier backend selection
type ClassifierConfig struct {
	SchemaPath    string
	URLProvider   string
	URLWeights    map[string]float64
	URLBias       float64
	URLThreshold  float64
	EmailProvider string
	EmailBias     float64
	MaxEmailSize  int
}

// RemoteConfig represents the configuration of the remote model server
type RemoteConfig struct {
	BaseURL string
	Timeout time.Duration
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	Timeout     time.Duration
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	Timeout     time.Duration
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	Timeout     time.Duration
}

// CacheConfig represents the configuration of the URL verdict cache
type CacheConfig struct {
	Enabled          bool
	Type             string
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
	PostgresDSN      string
	RedisAddress     string
	RedisPassword    string
	RedisDB          int
}

// Validate checks values that typed accessors cannot report on
func (c *Config) Validate() error {
	for _, key := range durationKeys {
		if _, err := c.GetDuration(key); err != nil {
			return err
		}
	}
	if _, err := c.GetFloatMap("classifier.url.weights"); err != nil {
		return fmt.Errorf("invalid URL classifier weights: %w", err)
	}
	return nil
}

func (c *Config) duration(key string) time.Duration {
	d, _ := c.GetDuration(key)
	return d
}

// GetServer returns the listener configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		Listeners: c.GetStringSlice("server.listeners"),
		HTTP: HTTPConfig{
			ListenAddress:   c.GetString("server.http.listen_address"),
			AllowedOrigins:  c.GetStringSlice("server.http.allowed_origins"),
			MaxBodyBytes:    c.GetInt64("server.http.max_body_bytes"),
			ReadTimeout:     c.duration("server.http.read_timeout"),
			WriteTimeout:    c.duration("server.http.write_timeout"),
			ShutdownTimeout: c.duration("server.http.shutdown_timeout"),
		},
	}
}

// GetSMTP returns the SMTP content filter configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		ListenAddress:    c.GetString("smtp.listen_address"),
		BlockPhishing:    c.GetBool("smtp.block_phishing"),
		StatusHeader:     c.GetString("smtp.headers.status"),
		ConfidenceHeader: c.GetString("smtp.headers.confidence"),
		ErrorHeader:      c.GetString("smtp.headers.error"),
		ModifySubject:    c.GetBool("smtp.modify_subject"),
		SubjectPrefix:    c.GetString("smtp.subject_prefix"),
		RelayEnabled:     c.GetBool("smtp.relay.enabled"),
		RelayAddress:     c.GetString("smtp.relay.address"),
		RelayPort:        c.GetInt("smtp.relay.port"),
		AnalysisTimeout:  c.duration("smtp.analysis_timeout"),
		MaxMessageBytes:  c.GetInt64("smtp.max_message_bytes"),
	}
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() ClassifierConfig {
	weights, _ := c.GetFloatMap("classifier.url.weights")
	return ClassifierConfig{
		SchemaPath:    c.GetString("classifier.schema_path"),
		URLProvider:   c.GetString("classifier.url.provider"),
		URLWeights:    weights,
		URLBias:       c.GetFloat64("classifier.url.bias"),
		URLThreshold:  c.GetFloat64("classifier.url.threshold"),
		EmailProvider: c.GetString("classifier.email.provider"),
		EmailBias:     c.GetFloat64("classifier.email.bias"),
		MaxEmailSize:  c.GetInt("classifier.email.max_text_size"),
	}
}

// GetRemote returns the remote model server configuration
func (c *Config) GetRemote() RemoteConfig {
	return RemoteConfig{
		BaseURL: c.GetString("remote.base_url"),
		Timeout: c.duration("remote.timeout"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		Timeout:     c.duration("bedrock.timeout"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		Timeout:     c.duration("gemini.timeout"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		Timeout:     c.duration("openai.timeout"),
	}
}

// GetCache returns the cache configuration
func (c *Config) GetCache() CacheConfig {
	return CacheConfig{
		Enabled:          c.GetBool("cache.enabled"),
		Type:             c.GetString("cache.type"),
		TTL:              c.duration("cache.ttl"),
		CleanupFrequency: c.duration("cache.cleanup_frequency"),
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
		PostgresDSN:      c.GetString("cache.postgres_dsn"),
		RedisAddress:     c.GetString("cache.redis.address"),
		RedisPassword:    c.GetString("cache.redis.password"),
		RedisDB:          c.GetInt("cache.redis.db"),
	}
}
