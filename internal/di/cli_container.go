package di

import (
	"flag"
	"fmt"
	"strings"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phish-guard/internal/adapters/filter"
	"github.com/mikey/phish-guard/internal/config"
	"github.com/mikey/phish-guard/internal/core"
	"github.com/mikey/phish-guard/internal/logging"
	"github.com/mikey/phish-guard/internal/ports"
)

// stringList is a repeatable string flag
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Classifier flags
	URLProvider   string
	EmailProvider string
	SchemaPath    string
	MaxTextSize   int

	// Remote model server flags
	RemoteURL string

	// LLM flags
	MaxTokens       int
	Temperature     float64
	BedrockRegion   string
	BedrockModelID  string
	GeminiAPIKey    string
	GeminiModelName string
	OpenAIAPIKey    string
	OpenAIModelName string
	OpenAIBaseURL   string
	Timeout         string

	// Whitelist flags
	Whitelist stringList

	// Input flags
	URLs        stringList
	EmailFile   string
	Text        string
	Concurrency int
	Verbose     bool
	JSONLog     bool
	ConfigFile  string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags(args []string) (*CLIFlags, error) {
	flags := &CLIFlags{}
	fs := flag.NewFlagSet("phish-check", flag.ContinueOnError)

	// Classifier flags
	fs.StringVar(&flags.URLProvider, "url-provider", "local", "URL classifier (local, remote, bedrock, gemini, openai)")
	fs.StringVar(&flags.EmailProvider, "email-provider", "local", "Email classifier (local, remote, bedrock, gemini, openai)")
	fs.StringVar(&flags.SchemaPath, "schema", "", "Feature schema file (built-in schema if not specified)")
	fs.IntVar(&flags.MaxTextSize, "max-text-size", 4096, "Maximum normalized email text sent to the classifier")

	// Remote model server flags
	fs.StringVar(&flags.RemoteURL, "remote-url", "http://localhost:8080", "Base URL of the remote model server")

	// LLM flags
	fs.IntVar(&flags.MaxTokens, "max-tokens", 256, "Maximum tokens for LLM responses")
	fs.Float64Var(&flags.Temperature, "temperature", 0, "Temperature for LLM generation")
	fs.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	fs.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-v2", "Bedrock model ID")
	fs.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	fs.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-1.5-flash", "Gemini model name")
	fs.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	fs.StringVar(&flags.OpenAIModelName, "openai-model", "gpt-4o-mini", "OpenAI model name")
	fs.StringVar(&flags.OpenAIBaseURL, "openai-base-url", "", "OpenAI compatible API base URL")
	fs.StringVar(&flags.Timeout, "timeout", "30s", "Per-request classifier timeout")

	fs.Var(&flags.Whitelist, "whitelist", "Trusted domain (repeatable)")

	// Input flags
	fs.Var(&flags.URLs, "url", "URL to check (repeatable)")
	fs.StringVar(&flags.EmailFile, "email", "", "RFC 5322 email file to check, - for stdin")
	fs.StringVar(&flags.Text, "text", "", "Raw email text to check")
	fs.IntVar(&flags.Concurrency, "concurrency", 4, "Maximum URL checks in flight")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides classifier flags)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if len(flags.URLs) == 0 && flags.EmailFile == "" && flags.Text == "" {
		return nil, fmt.Errorf("nothing to check: pass -url, -email or -text")
	}
	return flags, nil
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.Load(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			// the CLI never shares a cache with the daemon
			cfg.GetViper().Set("cache.enabled", false)
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		cfg := createConfigFromFlags(flags)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}

	// No cache for the CLI
	if err := container.Provide(func() core.VerdictCache { return nil }); err != nil {
		return nil, err
	}

	if err := provideService(container); err != nil {
		return nil, err
	}

	// Register CLI filter
	if err := container.Provide(func(detector ports.Detector, logger *zap.Logger, flags *CLIFlags) *filter.CLIFilter {
		return filter.NewCLIFilter(detector, logger, flags.Verbose)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	v.Set("cache.enabled", false)
	v.Set("whitelist.domains", []string(flags.Whitelist))

	v.Set("classifier.schema_path", flags.SchemaPath)
	v.Set("classifier.url.provider", flags.URLProvider)
	v.Set("classifier.email.provider", flags.EmailProvider)
	v.Set("classifier.email.max_text_size", flags.MaxTextSize)

	v.Set("remote.base_url", flags.RemoteURL)
	v.Set("remote.timeout", flags.Timeout)

	// Set provider-specific configuration
	for _, provider := range []string{flags.URLProvider, flags.EmailProvider} {
		switch provider {
		case "bedrock":
			v.Set("bedrock.region", flags.BedrockRegion)
			v.Set("bedrock.model_id", flags.BedrockModelID)
			v.Set("bedrock.max_tokens", flags.MaxTokens)
			v.Set("bedrock.temperature", flags.Temperature)
			v.Set("bedrock.timeout", flags.Timeout)
		case "gemini":
			v.Set("gemini.api_key", flags.GeminiAPIKey)
			v.Set("gemini.model_name", flags.GeminiModelName)
			v.Set("gemini.max_tokens", flags.MaxTokens)
			v.Set("gemini.temperature", flags.Temperature)
			v.Set("gemini.timeout", flags.Timeout)
		case "openai":
			v.Set("openai.api_key", flags.OpenAIAPIKey)
			v.Set("openai.base_url", flags.OpenAIBaseURL)
			v.Set("openai.model_name", flags.OpenAIModelName)
			v.Set("openai.max_tokens", flags.MaxTokens)
			v.Set("openai.temperature", flags.Temperature)
			v.Set("openai.timeout", flags.Timeout)
		}
	}

	return config.NewFromViper(v)
}
