// Package config loads the assistant's configuration from defaults, an
// optional YAML file and MAILRESPONDER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/teemow/mailresponder/internal/mail"
	"github.com/teemow/mailresponder/internal/memory"
	"github.com/teemow/mailresponder/internal/triage"
)

// EnvPrefix is the prefix of every environment variable read.
const EnvPrefix = "MAILRESPONDER"

// Live mailbox kinds.
const (
	SourceIMAP  = "imap"
	SourceGmail = "gmail"
	SourceNone  = "none"
)

// MCP transports.
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"
)

// DefaultModel is the model used for every step unless configured.
const DefaultModel = "llama3.2"

// Config is the complete configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Mail    MailConfig    `mapstructure:"mail"`
	IMAP    IMAPConfig    `mapstructure:"imap"`
	Gmail   GmailConfig   `mapstructure:"gmail"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Prompts PromptsConfig `mapstructure:"prompts"`
	Memory  MemoryConfig  `mapstructure:"memory"`
	Server  ServerConfig  `mapstructure:"server"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MailConfig configures where messages come from.
type MailConfig struct {
	Source     string `mapstructure:"source"` // imap, gmail or none
	Live       bool   `mapstructure:"live"`
	Max        int    `mapstructure:"max"`
	MarkAsRead bool   `mapstructure:"mark_as_read"`
	SamplePath string `mapstructure:"sample_path"`
	CachePath  string `mapstructure:"cache_path"`
	CacheMax   int    `mapstructure:"cache_max"`
}

// IMAPConfig holds the IMAP account.
type IMAPConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Mailbox  string `mapstructure:"mailbox"`
}

// GmailConfig holds the Gmail API OAuth client and account.
type GmailConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Account      string `mapstructure:"account"`
	TokenDir     string `mapstructure:"token_dir"`
}

// LLMConfig configures the Ollama endpoint and per-step models.
type LLMConfig struct {
	Host       string        `mapstructure:"host"`
	Timeout    time.Duration `mapstructure:"timeout"`
	EmbedModel string        `mapstructure:"embed_model"`
	Classify   StepConfig    `mapstructure:"classify"`
	Draft      StepConfig    `mapstructure:"draft"`
	Refine     StepConfig    `mapstructure:"refine"`
}

// StepConfig is the model and temperature of one triage step.
type StepConfig struct {
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
}

// PromptsConfig points at an optional prompt template file.
type PromptsConfig struct {
	File string `mapstructure:"file"`
}

// MemoryConfig selects and configures the feedback store.
type MemoryConfig struct {
	Backend       string `mapstructure:"backend"`
	Path          string `mapstructure:"path"`
	RedisURL      string `mapstructure:"redis_url"`
	RedisPrefix   string `mapstructure:"redis_prefix"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	RetrieveCount int    `mapstructure:"retrieve_count"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	HTTPAddr  string `mapstructure:"http_addr"`
}

// SetDefaults registers every key with its default on v. Registering all
// keys is also what lets environment variables override them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("mail.source", SourceIMAP)
	v.SetDefault("mail.live", false)
	v.SetDefault("mail.max", 10)
	v.SetDefault("mail.mark_as_read", false)
	v.SetDefault("mail.sample_path", mail.DefaultSamplePath)
	v.SetDefault("mail.cache_path", mail.DefaultCachePath)
	v.SetDefault("mail.cache_max", mail.DefaultCacheSize)

	v.SetDefault("imap.addr", "imap.gmail.com:993")
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.password", "")
	v.SetDefault("imap.mailbox", "INBOX")

	v.SetDefault("gmail.client_id", "")
	v.SetDefault("gmail.client_secret", "")
	v.SetDefault("gmail.account", "default")
	v.SetDefault("gmail.token_dir", "")

	v.SetDefault("llm.host", "")
	v.SetDefault("llm.timeout", 2*time.Minute)
	v.SetDefault("llm.embed_model", "nomic-embed-text")
	v.SetDefault("llm.classify.model", DefaultModel)
	v.SetDefault("llm.classify.temperature", triage.DefaultClassifyTemperature)
	v.SetDefault("llm.draft.model", DefaultModel)
	v.SetDefault("llm.draft.temperature", triage.DefaultDraftTemperature)
	v.SetDefault("llm.refine.model", DefaultModel)
	v.SetDefault("llm.refine.temperature", triage.DefaultRefineTemperature)

	v.SetDefault("prompts.file", "")

	v.SetDefault("memory.backend", memory.BackendSQLite)
	v.SetDefault("memory.path", memory.DefaultSQLitePath)
	v.SetDefault("memory.redis_url", "")
	v.SetDefault("memory.redis_prefix", memory.DefaultRedisPrefix)
	v.SetDefault("memory.postgres_dsn", "")
	v.SetDefault("memory.retrieve_count", memory.DefaultRetrieveCount)

	v.SetDefault("server.transport", TransportStdio)
	v.SetDefault("server.http_addr", ":8080")
}

// Load reads configuration into a new Config. file may be empty. Keys are
// overridden by MAILRESPONDER_<SECTION>_<KEY> variables; the IMAP account
// also honours GMAIL_EMAIL and GMAIL_APP_PASSWORD.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("imap.username", EnvPrefix+"_IMAP_USERNAME", "GMAIL_EMAIL")
	_ = v.BindEnv("imap.password", EnvPrefix+"_IMAP_PASSWORD", "GMAIL_APP_PASSWORD")

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error

	switch c.Mail.Source {
	case SourceIMAP, SourceGmail, SourceNone:
	default:
		errs = append(errs, fmt.Errorf("mail.source must be one of imap, gmail, none, got %q", c.Mail.Source))
	}
	if c.Mail.Max <= 0 {
		errs = append(errs, errors.New("mail.max must be positive"))
	}

	switch c.Memory.Backend {
	case memory.BackendSQLite, memory.BackendRedis, memory.BackendPostgres, memory.BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown memory.backend %q", c.Memory.Backend))
	}
	if c.Memory.Backend == memory.BackendRedis && c.Memory.RedisURL == "" {
		errs = append(errs, errors.New("memory.redis_url is required for the redis backend"))
	}
	if c.Memory.Backend == memory.BackendPostgres && c.Memory.PostgresDSN == "" {
		errs = append(errs, errors.New("memory.postgres_dsn is required for the postgres backend"))
	}

	for name, step := range map[string]StepConfig{
		"classify": c.LLM.Classify,
		"draft":    c.LLM.Draft,
		"refine":   c.LLM.Refine,
	} {
		if step.Model == "" {
			errs = append(errs, fmt.Errorf("llm.%s.model must be set", name))
		}
		if step.Temperature < 0 || step.Temperature > 2 {
			errs = append(errs, fmt.Errorf("llm.%s.temperature must be between 0 and 2", name))
		}
	}

	switch c.Server.Transport {
	case TransportStdio, TransportStreamableHTTP:
	default:
		errs = append(errs, fmt.Errorf("server.transport must be stdio or streamable-http, got %q", c.Server.Transport))
	}

	return errors.Join(errs...)
}

// LiveEnabled reports whether a live mailbox should be queried.
func (c *Config) LiveEnabled() bool {
	return c.Mail.Live && c.Mail.Source != SourceNone
}
