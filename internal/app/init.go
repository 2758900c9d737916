package app

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/skillroad/skillroad/internal/db"
	"github.com/skillroad/skillroad/internal/security"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// InitRequest contains parameters for writing a starter config file.
type InitRequest struct {
	DatabaseType     string
	DatabaseHost     string
	DatabasePort     int
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string
	DatabasePath     string
	DatabaseSSLMode  string
	Port             int
	ClientURL        string
	GeminiAPIKey     string
}

// ConfigExists reports whether the config file exists at the path.
func ConfigExists(configPath string) bool {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return false
	}
	return true
}

// defaultSQLitePath is the default SQLite database file name.
const defaultSQLitePath = "skillroad.db"

// BuildDSN builds a database DSN from the init request.
func BuildDSN(req InitRequest) (string, error) {
	switch strings.ToLower(strings.TrimSpace(req.DatabaseType)) {
	case "postgres":
		sslMode := req.DatabaseSSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(req.DatabaseUser, req.DatabasePassword),
			Host:     net.JoinHostPort(req.DatabaseHost, strconv.Itoa(req.DatabasePort)),
			Path:     "/" + req.DatabaseName,
			RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
		}
		return dsn.String(), nil
	case "", "sqlite":
		return buildSQLiteDSN(req.DatabasePath), nil
	default:
		return "", fmt.Errorf("unsupported database type")
	}
}

// buildSQLiteDSN constructs a SQLite DSN with default pragmas.
func buildSQLiteDSN(path string) string {
	dsn := strings.TrimSpace(path)
	if dsn == "" {
		dsn = defaultSQLitePath
	}
	if !strings.HasPrefix(strings.ToLower(dsn), "file:") {
		dsn = "file:" + dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + strings.Join([]string{
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
		"_pragma=foreign_keys(1)",
	}, "&")
}

// CheckDatabaseConnection validates that the DSN can connect and ping.
func CheckDatabaseConnection(dsn string) error {
	conn, err := db.Open(dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	defer func() {
		if errClose := sqlDB.Close(); errClose != nil {
			log.Errorf("sql db close error: %v", errClose)
		}
	}()
	return sqlDB.Ping()
}

// validateInitRequest normalizes and validates init input data.
func validateInitRequest(req *InitRequest) error {
	dbType := strings.ToLower(strings.TrimSpace(req.DatabaseType))
	if dbType == "" {
		dbType = "sqlite"
	}
	req.DatabaseType = dbType

	switch dbType {
	case "postgres":
		if strings.TrimSpace(req.DatabaseHost) == "" {
			return fmt.Errorf("database host is required")
		}
		if req.DatabasePort <= 0 {
			req.DatabasePort = 5432
		}
		if strings.TrimSpace(req.DatabaseUser) == "" {
			return fmt.Errorf("database username is required")
		}
		if strings.TrimSpace(req.DatabaseName) == "" {
			return fmt.Errorf("database name is required")
		}
	case "sqlite":
		if strings.TrimSpace(req.DatabasePath) == "" {
			req.DatabasePath = defaultSQLitePath
		}
	default:
		return fmt.Errorf("unsupported database type %q", req.DatabaseType)
	}
	if req.Port <= 0 || req.Port > 65535 {
		return fmt.Errorf("invalid port: %d", req.Port)
	}
	req.ClientURL = strings.TrimRight(strings.TrimSpace(req.ClientURL), "/")
	return nil
}

// configFile maps YAML fields for the generated config file.
type configFile struct {
	Port          int       `yaml:"port"`
	DatabaseDSN   string    `yaml:"database-dsn"`
	ClientURL     string    `yaml:"client-url,omitempty"`
	LoggingToFile bool      `yaml:"logging-to-file"`
	JWT           jwtCfg    `yaml:"jwt"`
	Gemini        geminiCfg `yaml:"gemini"`
}

// jwtCfg holds JWT settings for the generated config file.
type jwtCfg struct {
	Secret string `yaml:"secret"`
	Expiry string `yaml:"expiry"`
}

// geminiCfg holds generation settings for the generated config file.
type geminiCfg struct {
	APIKey string `yaml:"api-key,omitempty"`
	Model  string `yaml:"model"`
}

// generateJWTSecret creates a random JWT secret string.
func generateJWTSecret() (string, error) {
	secret, err := security.GenerateRandomString(32)
	if err != nil {
		return "", fmt.Errorf("generate jwt secret: %w", err)
	}
	return secret, nil
}

// WriteConfigFile writes a starter config file with a fresh JWT secret.
func WriteConfigFile(configPath string, dsn string, req InitRequest) error {
	secret, errSecret := generateJWTSecret()
	if errSecret != nil {
		return errSecret
	}
	cfg := configFile{
		Port:          req.Port,
		DatabaseDSN:   dsn,
		ClientURL:     req.ClientURL,
		LoggingToFile: false,
		JWT: jwtCfg{
			Secret: secret,
			Expiry: "720h",
		},
		Gemini: geminiCfg{
			APIKey: strings.TrimSpace(req.GeminiAPIKey),
			Model:  "gemini-2.0-flash",
		},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if errMkdir := os.MkdirAll(dir, 0755); errMkdir != nil {
		return fmt.Errorf("create config dir: %w", errMkdir)
	}

	if errWrite := os.WriteFile(configPath, data, 0600); errWrite != nil {
		return fmt.Errorf("write config file: %w", errWrite)
	}

	return nil
}

// ErrConfigExists is returned when init would overwrite an existing config file.
var ErrConfigExists = fmt.Errorf("config file already exists")

// RunInit validates the request, checks the database, writes the config file and migrates the schema.
func RunInit(configPath string, req InitRequest) error {
	if ConfigExists(configPath) {
		return fmt.Errorf("%w: %s", ErrConfigExists, configPath)
	}
	if errValidate := validateInitRequest(&req); errValidate != nil {
		return errValidate
	}
	dsn, errBuild := BuildDSN(req)
	if errBuild != nil {
		return errBuild
	}
	if errCheck := CheckDatabaseConnection(dsn); errCheck != nil {
		return fmt.Errorf("database connection failed: %w", errCheck)
	}
	if errWrite := WriteConfigFile(configPath, dsn, req); errWrite != nil {
		return errWrite
	}

	conn, errOpen := db.Open(dsn)
	if errOpen != nil {
		return errOpen
	}
	defer closeDB(conn)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		if errRemove := os.Remove(configPath); errRemove != nil {
			log.Errorf("remove config file error: %v", errRemove)
		}
		return fmt.Errorf("migrate database: %w", errMigrate)
	}

	log.Infof("wrote %s", configPath)
	return nil
}
