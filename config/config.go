// Package config loads and validates the service configuration. The
// configuration is a single YAML file with ${VAR} environment expansion;
// a .env file next to the working directory is loaded first so local
// development does not need exported secrets. Validation is fail-fast:
// a config that loads is a config the service can run with.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"llmgate/gateway"
	"llmgate/providers/ai"
)

// Config is the root of the service configuration file.
type Config struct {
	Server    Server                             `yaml:"server"`
	Language  string                             `yaml:"language"`
	Stream    Stream                             `yaml:"stream"`
	Providers map[ai.ProviderID]ProviderSettings `yaml:"providers"`
}

// Server holds the HTTP listener settings.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns the host:port string the listener binds to.
func (server Server) Address() string {
	return fmt.Sprintf("%s:%d", server.Host, server.Port)
}

// Duration parses YAML duration strings such as "30s" or "1m30s".
type Duration time.Duration

func (duration *Duration) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*duration = Duration(parsed)
	return nil
}

// Std returns the wrapped standard library duration.
func (duration Duration) Std() time.Duration {
	return time.Duration(duration)
}

// Stream holds the watchdog timeouts for vendor streams. Zero values take
// the gateway defaults.
type Stream struct {
	FirstByteTimeout  Duration `yaml:"first_byte_timeout"`
	InterChunkTimeout Duration `yaml:"inter_chunk_timeout"`
}

// ProviderSettings configures one vendor adapter. Not every field applies
// to every vendor; Validate checks the ones the vendor requires.
type ProviderSettings struct {
	Endpoint   string  `yaml:"endpoint"`
	APIKey     string  `yaml:"api_key"`
	Deployment string  `yaml:"deployment"`
	APIVersion string  `yaml:"api_version"`
	Model      string  `yaml:"model"`
	Budgets    Budgets `yaml:"budgets"`
}

// Budgets holds the three output token ceilings for one provider.
type Budgets struct {
	VeryShort     int `yaml:"very_short"`
	Normal        int `yaml:"normal"`
	Comprehensive int `yaml:"comprehensive"`
}

// Tiers converts the configured budgets to the gateway's table entry.
func (budgets Budgets) Tiers() gateway.BudgetTiers {
	return gateway.BudgetTiers{
		VeryShort:     budgets.VeryShort,
		Normal:        budgets.Normal,
		Comprehensive: budgets.Comprehensive,
	}
}

// knownProviders lists the identifiers an adapter exists for. A configured
// provider outside this set is a typo, not a request for a plugin.
var knownProviders = map[ai.ProviderID]bool{
	ai.ProviderAzureOpenAI:  true,
	ai.ProviderClaude:       true,
	ai.ProviderMistral:      true,
	ai.ProviderGemini:       true,
	ai.ProviderOpenAIDirect: true,
}

// Load reads, expands, parses, and validates the configuration file. A
// .env file is loaded into the environment first when present; a missing
// .env is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.Expand(string(raw), func(name string) string {
		return os.Getenv(name)
	})

	config := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the whole configuration. The first problem found is
// returned; startup stops on it.
func (config *Config) Validate() error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", config.Server.Port)
	}
	if config.Language == "" {
		config.Language = "en"
	}
	if !gateway.IsSupportedLanguage(config.Language) {
		return fmt.Errorf("language %q not supported, pick one of %v", config.Language, gateway.SupportedLanguages)
	}
	if config.Stream.FirstByteTimeout < 0 || config.Stream.InterChunkTimeout < 0 {
		return fmt.Errorf("stream timeouts must not be negative")
	}
	if len(config.Providers) == 0 {
		return fmt.Errorf("no providers configured")
	}
	for id, settings := range config.Providers {
		if !knownProviders[id] {
			return fmt.Errorf("unknown provider %q", id)
		}
		if err := settings.validateFor(id); err != nil {
			return err
		}
	}
	return nil
}

// validateFor checks the vendor-specific required fields plus the budget
// tiers every provider must carry.
func (settings ProviderSettings) validateFor(id ai.ProviderID) error {
	if settings.APIKey == "" {
		return fmt.Errorf("provider %q: api_key is required", id)
	}
	switch id {
	case ai.ProviderAzureOpenAI:
		if settings.Endpoint == "" {
			return fmt.Errorf("provider %q: endpoint is required", id)
		}
		if settings.Deployment == "" {
			return fmt.Errorf("provider %q: deployment is required", id)
		}
	case ai.ProviderClaude, ai.ProviderMistral, ai.ProviderGemini, ai.ProviderOpenAIDirect:
		if settings.Model == "" {
			return fmt.Errorf("provider %q: model is required", id)
		}
	}

	for tier, ceiling := range map[string]int{
		"very_short":    settings.Budgets.VeryShort,
		"normal":        settings.Budgets.Normal,
		"comprehensive": settings.Budgets.Comprehensive,
	} {
		if ceiling <= 0 {
			return fmt.Errorf("provider %q: budgets.%s must be a positive token count", id, tier)
		}
	}
	return nil
}

// BudgetTable builds the gateway budget table from the configured
// providers.
func (config *Config) BudgetTable() (*gateway.BudgetTable, error) {
	budgets := make(map[ai.ProviderID]gateway.BudgetTiers, len(config.Providers))
	for id, settings := range config.Providers {
		budgets[id] = settings.Budgets.Tiers()
	}
	return gateway.NewBudgetTable(budgets)
}
