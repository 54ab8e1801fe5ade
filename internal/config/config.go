package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port            int
	LogLevel        string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	Assistants      Assistants
	PollInterval    time.Duration
	MaxPolls        int
	PipelineTimeout time.Duration
	StoreBackend    string
	DatabaseURL     string
	MongoURL        string
	MongoDatabase   string
	SQLitePath      string
	NatsURL         string
	NatsToken       string
	DefaultUserID   string
	UserIDHeader    string
	JWTSecret       string
}

// Assistants holds one assistant id per pipeline stage.
type Assistants struct {
	MasterFile      string `yaml:"master_file"`
	CoreMessaging   string `yaml:"core_messaging"`
	IdentityProfile string `yaml:"identity_profile"`
	SocialContent   string `yaml:"social_content"`
	ContentFeedback string `yaml:"content_feedback"`
	BrandAnalysis   string `yaml:"brand_analysis"`
}

// file is the optional YAML layout. Every field is a string so ${VAR}
// expansion can feed any value.
type file struct {
	Port            string     `yaml:"port"`
	LogLevel        string     `yaml:"log_level"`
	OpenAI          fileOpenAI `yaml:"openai"`
	Assistants      Assistants `yaml:"assistants"`
	PipelineTimeout string     `yaml:"pipeline_timeout"`
	Store           fileStore  `yaml:"store"`
	Nats            fileNats   `yaml:"nats"`
	Identity        fileIdent  `yaml:"identity"`
}

type fileOpenAI struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	PollInterval string `yaml:"poll_interval"`
	MaxPolls     string `yaml:"max_polls"`
}

type fileStore struct {
	Backend       string `yaml:"backend"`
	DatabaseURL   string `yaml:"database_url"`
	MongoURL      string `yaml:"mongo_url"`
	MongoDatabase string `yaml:"mongo_database"`
	SQLitePath    string `yaml:"sqlite_path"`
}

type fileNats struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type fileIdent struct {
	DefaultUserID string `yaml:"default_user_id"`
	Header        string `yaml:"header"`
	JWTSecret     string `yaml:"jwt_secret"`
}

// Load builds the config from the environment. If SCRIBE_CONFIG names a
// YAML file it is read first and environment variables override it.
func Load() (Config, error) {
	var f file
	if path := os.Getenv("SCRIBE_CONFIG"); path != "" {
		loaded, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		f = *loaded
	}

	cfg := Config{
		Port:          envInt("PORT", atoiOr(f.Port, 5000)),
		LogLevel:      envStr("LOG_LEVEL", or(f.LogLevel, "info")),
		OpenAIAPIKey:  envStr("OPENAI_API_KEY", f.OpenAI.APIKey),
		OpenAIBaseURL: envStr("OPENAI_BASE_URL", or(f.OpenAI.BaseURL, "https://api.openai.com/v1")),
		Assistants: Assistants{
			MasterFile:      envStr("ASSISTANT_MASTER_FILE", f.Assistants.MasterFile),
			CoreMessaging:   envStr("ASSISTANT_CORE_MESSAGING", f.Assistants.CoreMessaging),
			IdentityProfile: envStr("ASSISTANT_IDENTITY_PROFILE", f.Assistants.IdentityProfile),
			SocialContent:   envStr("ASSISTANT_SOCIAL_CONTENT", f.Assistants.SocialContent),
			ContentFeedback: envStr("ASSISTANT_CONTENT_FEEDBACK", f.Assistants.ContentFeedback),
			BrandAnalysis:   envStr("ASSISTANT_BRAND_ANALYSIS", f.Assistants.BrandAnalysis),
		},
		PollInterval:    envDuration("RUN_POLL_INTERVAL", durationOr(f.OpenAI.PollInterval, 2*time.Second)),
		MaxPolls:        envInt("RUN_MAX_POLLS", atoiOr(f.OpenAI.MaxPolls, 150)),
		PipelineTimeout: envDuration("PIPELINE_TIMEOUT", durationOr(f.PipelineTimeout, 15*time.Minute)),
		StoreBackend:    envStr("STORE_BACKEND", f.Store.Backend),
		DatabaseURL:     envStr("DATABASE_URL", f.Store.DatabaseURL),
		MongoURL:        envStr("MONGO_URL", f.Store.MongoURL),
		MongoDatabase:   envStr("MONGO_DATABASE", or(f.Store.MongoDatabase, "scribe")),
		SQLitePath:      envStr("SQLITE_PATH", or(f.Store.SQLitePath, "data/scribe.db")),
		NatsURL:         envStr("NATS_URL", f.Nats.URL),
		NatsToken:       envStr("NATS_TOKEN", f.Nats.Token),
		DefaultUserID:   envStr("DEFAULT_USER_ID", or(f.Identity.DefaultUserID, "default_user")),
		UserIDHeader:    envStr("USER_ID_HEADER", or(f.Identity.Header, "X-User-ID")),
		JWTSecret:       envStr("JWT_SECRET", f.Identity.JWTSecret),
	}
	cfg.StoreBackend = cfg.resolveBackend()
	return cfg, nil
}

// Validate returns the first missing or invalid setting.
func (c Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	required := []struct {
		env, val string
	}{
		{"ASSISTANT_MASTER_FILE", c.Assistants.MasterFile},
		{"ASSISTANT_CORE_MESSAGING", c.Assistants.CoreMessaging},
		{"ASSISTANT_IDENTITY_PROFILE", c.Assistants.IdentityProfile},
		{"ASSISTANT_SOCIAL_CONTENT", c.Assistants.SocialContent},
		{"ASSISTANT_CONTENT_FEEDBACK", c.Assistants.ContentFeedback},
	}
	for _, r := range required {
		if r.val == "" {
			return fmt.Errorf("%s is required", r.env)
		}
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("RUN_POLL_INTERVAL must be positive")
	}
	if c.MaxPolls <= 0 {
		return fmt.Errorf("RUN_MAX_POLLS must be positive")
	}
	switch c.StoreBackend {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case "mongo":
		if c.MongoURL == "" {
			return fmt.Errorf("MONGO_URL is required for the mongo store")
		}
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	return nil
}

// resolveBackend picks a store when STORE_BACKEND is unset: postgres if a
// DSN is configured, then mongo, then the local sqlite file.
func (c Config) resolveBackend() string {
	if c.StoreBackend != "" {
		return strings.ToLower(c.StoreBackend)
	}
	switch {
	case c.DatabaseURL != "":
		return "postgres"
	case c.MongoURL != "":
		return "mongo"
	default:
		return "sqlite"
	}
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

func readFile(path string) (*file, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	expanded := envRef.ReplaceAllStringFunc(string(data), func(match string) string {
		return os.Getenv(envRef.FindStringSubmatch(match)[1])
	})
	var f file
	if err := yaml.Unmarshal([]byte(expanded), &f); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return &f, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	return durationOr(os.Getenv(key), fallback)
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func atoiOr(v string, fallback int) int {
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return fallback
}

func durationOr(v string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return fallback
}
