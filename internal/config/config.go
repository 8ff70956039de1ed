package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr      string          `json:"addr"`
	FrontPage string          `json:"front_page"`
	Roles     []string        `json:"roles"`
	Admin     AdminConfig     `json:"admin"`
	Clerk     ClerkConfig     `json:"clerk"`
	Mocks     MockConfig      `json:"mocks"`
	Storage   StorageConfig   `json:"storage"`
	Notify    NotifyConfig    `json:"notify"`
	Logging   LoggingConfig   `json:"logging"`
	Telemetry TelemetryConfig `json:"telemetry"`
}

// AdminConfig decides who may edit the settings: any listed email, or any
// user holding one of the listed roles.
type AdminConfig struct {
	Emails []string `json:"emails"`
	Roles  []string `json:"roles"`
}

type ClerkConfig struct {
	SecretKey string `json:"secret_key"`
}

func (c ClerkConfig) Enabled() bool {
	return c.SecretKey != ""
}

type MockConfig struct {
	Enable bool     `json:"enable"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
}

// StorageConfig selects the config store backend. Backend is one of
// file, memory, blob, cosmos, sqlite or postgres.
type StorageConfig struct {
	Backend         string `json:"backend"`
	Dir             string `json:"dir"`
	BlobAccount     string `json:"blob_account"`
	BlobKey         string `json:"blob_key"`
	BlobContainer   string `json:"blob_container"`
	CosmosEndpoint  string `json:"cosmos_endpoint"`
	CosmosKey       string `json:"cosmos_key"`
	CosmosDatabase  string `json:"cosmos_database"`
	CosmosContainer string `json:"cosmos_container"`
	SQLitePath      string `json:"sqlite_path"`
	PostgresDSN     string `json:"postgres_dsn"`
}

type NotifyConfig struct {
	SendGridAPIKey string   `json:"sendgrid_api_key"`
	From           string   `json:"from"`
	Emails         []string `json:"emails"`
}

func (n NotifyConfig) Enabled() bool {
	return n.SendGridAPIKey != "" && len(n.Emails) > 0
}

type LoggingConfig struct {
	Level         string `json:"level"`
	File          string `json:"file"`
	SinkAccount   string `json:"sink_account"`
	SinkKey       string `json:"sink_key"`
	SinkContainer string `json:"sink_container"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `json:"otlp_endpoint"`
	ServiceName  string `json:"service_name"`
}

func (t TelemetryConfig) Enabled() bool {
	return t.OTLPEndpoint != ""
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	mocks, err := getEnvBool("MOCKS_ENABLE", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Addr:      getEnvOrDefault("ADDR", ":8080"),
		FrontPage: getEnvOrDefault("FRONT_PAGE", "/"),
		Roles:     getEnvList("HOTJAR_ROLES"),
		Admin: AdminConfig{
			Emails: getEnvList("ADMIN_EMAILS"),
			Roles:  getEnvListOrDefault("ADMIN_ROLES", "administrator"),
		},
		Clerk: ClerkConfig{
			SecretKey: os.Getenv("CLERK_SECRET_KEY"),
		},
		Mocks: MockConfig{
			Enable: mocks,
			Email:  os.Getenv("MOCK_EMAIL"),
			Roles:  getEnvList("MOCK_ROLES"),
		},
		Storage: StorageConfig{
			Backend:         getEnvOrDefault("STORAGE_BACKEND", "file"),
			Dir:             getEnvOrDefault("STORAGE_DIR", "data"),
			BlobAccount:     os.Getenv("AZURE_STORAGE_ACCOUNT_NAME"),
			BlobKey:         os.Getenv("AZURE_STORAGE_PRIMARY_ACCOUNT_KEY"),
			BlobContainer:   getEnvOrDefault("AZURE_STORAGE_CONTAINER", "config"),
			CosmosEndpoint:  os.Getenv("AZURE_COSMOS_ENDPOINT"),
			CosmosKey:       os.Getenv("AZURE_COSMOS_KEY"),
			CosmosDatabase:  os.Getenv("AZURE_COSMOS_DATABASE"),
			CosmosContainer: getEnvOrDefault("AZURE_COSMOS_CONTAINER", "config"),
			SQLitePath:      getEnvOrDefault("SQLITE_PATH", "data/hotjar.db"),
			PostgresDSN:     os.Getenv("DATABASE_URL"),
		},
		Notify: NotifyConfig{
			SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
			From:           getEnvOrDefault("NOTIFY_FROM", "noreply@example.com"),
			Emails:         getEnvList("NOTIFY_EMAILS"),
		},
		Logging: LoggingConfig{
			Level:         getEnvOrDefault("LOG_LEVEL", "info"),
			File:          os.Getenv("LOG_FILE"),
			SinkAccount:   os.Getenv("AZURE_STORAGE_ACCOUNT_NAME"),
			SinkKey:       os.Getenv("AZURE_STORAGE_PRIMARY_ACCOUNT_KEY"),
			SinkContainer: os.Getenv("LOGSINK_CONTAINER"),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName:  getEnvOrDefault("OTEL_SERVICE_NAME", "hotjar"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "file", "memory":
	case "blob":
		if c.Storage.BlobAccount == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT_NAME is required for blob storage")
		}
	case "cosmos":
		if c.Storage.CosmosEndpoint == "" || c.Storage.CosmosKey == "" || c.Storage.CosmosDatabase == "" {
			return fmt.Errorf("AZURE_COSMOS_ENDPOINT, AZURE_COSMOS_KEY and AZURE_COSMOS_DATABASE are required for cosmos storage")
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for sqlite storage")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if !c.Mocks.Enable && !c.Clerk.Enabled() {
		slog.Warn("no CLERK_SECRET_KEY and mocks disabled; admin pages will reject every request")
	}
	return nil
}

// LogLevel maps the configured level name onto slog; unknown names are info.
func (l LoggingConfig) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

func getEnvListOrDefault(key, defaultValue string) []string {
	if os.Getenv(key) == "" {
		return []string{defaultValue}
	}
	return getEnvList(key)
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
