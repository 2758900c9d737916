package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath   = "CONFIG_PATH"
	EnvDBConnection = "DB_CONNECTION"
	EnvJWTSecret    = "JWT_SECRET"
	EnvJWTExpiry    = "JWT_EXPIRY"
	EnvPort         = "PORT"
	EnvClientURL    = "CLIENT_URL"
	EnvLogLevel     = "LOG_LEVEL"

	EnvGeminiAPIKey  = "GEMINI_API_KEY"
	EnvGeminiModel   = "GEMINI_MODEL"
	EnvGeminiBaseURL = "GEMINI_BASE_URL"

	EnvGoogleClientID     = "GOOGLE_CLIENT_ID"
	EnvGoogleClientSecret = "GOOGLE_CLIENT_SECRET"
	EnvGoogleCallbackURL  = "GOOGLE_CALLBACK_URL"
	EnvGitHubClientID     = "GITHUB_CLIENT_ID"
	EnvGitHubClientSecret = "GITHUB_CLIENT_SECRET"
	EnvGitHubCallbackURL  = "GITHUB_CALLBACK_URL"
)

const (
	defaultPort              = 5000
	defaultClientURL         = "http://localhost:5173"
	defaultSQLiteDSN         = "file:skillroad.db"
	defaultGeminiModel       = "gemini-2.0-flash"
	defaultGeminiBaseURL     = "https://generativelanguage.googleapis.com"
	defaultGenerationTimeout = 120 * time.Second
	defaultLogFile           = "logs/skillroad.log"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads .env into the process environment and resolves the config path.
func LoadFromEnv() (AppConfig, error) {
	if errDotenv := godotenv.Load(); errDotenv != nil && !errors.Is(errDotenv, os.ErrNotExist) {
		return AppConfig{}, fmt.Errorf("load .env: %w", errDotenv)
	}
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingJWTSecret indicates neither the config file nor the environment set a token secret.
var ErrMissingJWTSecret = errors.New("missing jwt secret (set `jwt.secret` in config file or JWT_SECRET)")

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// GenerationConfig configures the text-generation endpoint used for roadmaps.
type GenerationConfig struct {
	APIKey  string        `yaml:"api-key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base-url"`
	Timeout time.Duration `yaml:"timeout"`
}

// OAuthClientConfig holds one OAuth provider's client registration.
type OAuthClientConfig struct {
	ClientID     string `yaml:"client-id"`
	ClientSecret string `yaml:"client-secret"`
	CallbackURL  string `yaml:"callback-url"`
}

// Enabled reports whether the provider has usable client credentials.
func (c OAuthClientConfig) Enabled() bool {
	return strings.TrimSpace(c.ClientID) != "" && strings.TrimSpace(c.ClientSecret) != ""
}

// OAuthConfig groups the supported OAuth providers.
type OAuthConfig struct {
	Google OAuthClientConfig `yaml:"google"`
	GitHub OAuthClientConfig `yaml:"github"`
}

// LoggingConfig controls log level, format and file output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	ToFile bool   `yaml:"-"`
	File   string `yaml:"file"`
}

// Config is the fully resolved configuration shared by every component.
type Config struct {
	Host        string
	Port        int
	DatabaseDSN string
	JWT         JWTConfig
	Generation  GenerationConfig
	OAuth       OAuthConfig
	ClientURL   string
	Logging     LoggingConfig
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// fileConfig maps the YAML layout of config.yaml.
type fileConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	DatabaseDSN string `yaml:"database-dsn"`
	Database    struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	JWT           JWTConfig        `yaml:"jwt"`
	Gemini        GenerationConfig `yaml:"gemini"`
	OAuth         OAuthConfig      `yaml:"oauth"`
	ClientURL     string           `yaml:"client-url"`
	Logging       LoggingConfig    `yaml:"logging"`
	LoggingToFile bool             `yaml:"logging-to-file"`
}

// readFileConfig parses the YAML file. A missing file yields an empty config.
func readFileConfig(configPath string) (fileConfig, error) {
	var cfg fileConfig
	data, errRead := os.ReadFile(configPath)
	if errRead != nil {
		if errors.Is(errRead, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", errRead)
	}
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return cfg, fmt.Errorf("parse config file: %w", errUnmarshal)
	}
	return cfg, nil
}

// Load builds the application Config from the YAML file and the environment.
func Load(configPath string) (Config, error) {
	file, err := readFileConfig(configPath)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Host:       strings.TrimSpace(file.Host),
		Port:       file.Port,
		Generation: file.Gemini,
		OAuth:      file.OAuth,
		ClientURL:  strings.TrimSpace(file.ClientURL),
		Logging:    file.Logging,
	}
	cfg.Logging.ToFile = file.LoggingToFile

	cfg.DatabaseDSN, err = LoadDatabaseDSN(configPath)
	if err != nil {
		return Config{}, err
	}
	cfg.JWT, err = LoadJWTConfig(configPath)
	if err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return Config{}, ErrMissingJWTSecret
	}

	if raw := strings.TrimSpace(os.Getenv(EnvPort)); raw != "" {
		port, errPort := strconv.Atoi(raw)
		if errPort != nil {
			return Config{}, fmt.Errorf("parse %s: %w", EnvPort, errPort)
		}
		cfg.Port = port
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port: %d", cfg.Port)
	}

	overrideString(&cfg.ClientURL, EnvClientURL)
	if cfg.ClientURL == "" {
		cfg.ClientURL = defaultClientURL
	}
	cfg.ClientURL = strings.TrimRight(cfg.ClientURL, "/")

	overrideString(&cfg.Generation.APIKey, EnvGeminiAPIKey)
	overrideString(&cfg.Generation.Model, EnvGeminiModel)
	overrideString(&cfg.Generation.BaseURL, EnvGeminiBaseURL)
	if strings.TrimSpace(cfg.Generation.Model) == "" {
		cfg.Generation.Model = defaultGeminiModel
	}
	if strings.TrimSpace(cfg.Generation.BaseURL) == "" {
		cfg.Generation.BaseURL = defaultGeminiBaseURL
	}
	if cfg.Generation.Timeout <= 0 {
		cfg.Generation.Timeout = defaultGenerationTimeout
	}

	overrideString(&cfg.OAuth.Google.ClientID, EnvGoogleClientID)
	overrideString(&cfg.OAuth.Google.ClientSecret, EnvGoogleClientSecret)
	overrideString(&cfg.OAuth.Google.CallbackURL, EnvGoogleCallbackURL)
	overrideString(&cfg.OAuth.GitHub.ClientID, EnvGitHubClientID)
	overrideString(&cfg.OAuth.GitHub.ClientSecret, EnvGitHubClientSecret)
	overrideString(&cfg.OAuth.GitHub.CallbackURL, EnvGitHubCallbackURL)
	if cfg.OAuth.Google.CallbackURL == "" {
		cfg.OAuth.Google.CallbackURL = fmt.Sprintf("http://localhost:%d/api/auth/google/callback", cfg.Port)
	}
	if cfg.OAuth.GitHub.CallbackURL == "" {
		cfg.OAuth.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/api/auth/github/callback", cfg.Port)
	}

	overrideString(&cfg.Logging.Level, EnvLogLevel)
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ToFile && strings.TrimSpace(cfg.Logging.File) == "" {
		cfg.Logging.File = defaultLogFile
	}

	return cfg, nil
}

func overrideString(target *string, envKey string) {
	if value := strings.TrimSpace(os.Getenv(envKey)); value != "" {
		*target = value
	}
}

// LoadDatabaseDSN resolves the database DSN from the environment, then the YAML config file.
// When neither sets one, a local SQLite file is used.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	cfg, err := readFileConfig(configPath)
	if err != nil {
		return "", err
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return defaultSQLiteDSN, nil
}

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 30 * 24 * time.Hour

// LoadJWTConfig loads JWT settings from the YAML config file.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	result := JWTConfig{Expiry: defaultJWTExpiry}

	cfg, errRead := readFileConfig(configPath)
	if errRead == nil {
		result = cfg.JWT
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultJWTExpiry
	}
	return result, nil
}
