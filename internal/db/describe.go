package db

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Target describes a database DSN without its credentials.
type Target struct {
	Type        string
	Host        string
	Port        int
	User        string
	Name        string
	SSLMode     string
	Path        string
	PasswordSet bool
}

// String renders the target for logs.
func (t Target) String() string {
	if t.Type == DialectSQLite {
		return fmt.Sprintf("sqlite path=%s", t.Path)
	}
	return fmt.Sprintf("postgres host=%s port=%d user=%s name=%s sslmode=%s", t.Host, t.Port, t.User, t.Name, t.SSLMode)
}

// Describe parses a DSN into a Target for startup logging.
func Describe(dsn string) (Target, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return Target{}, fmt.Errorf("empty dsn")
	}

	if isSQLiteDSN(trimmed) {
		pathPart := trimmed
		if strings.HasPrefix(strings.ToLower(pathPart), "file:") {
			pathPart = pathPart[len("file:"):]
		}
		pathPart, _, _ = strings.Cut(pathPart, "?")
		return Target{
			Type: DialectSQLite,
			Path: strings.TrimSpace(pathPart),
		}, nil
	}

	u, errParse := url.Parse(trimmed)
	if errParse != nil {
		return Target{}, fmt.Errorf("parse dsn: %w", errParse)
	}

	switch strings.ToLower(strings.TrimSpace(u.Scheme)) {
	case "postgres", "postgresql":
		port := 5432
		if rawPort := strings.TrimSpace(u.Port()); rawPort != "" {
			parsedPort, errPort := strconv.Atoi(rawPort)
			if errPort != nil {
				return Target{}, fmt.Errorf("parse port: %w", errPort)
			}
			port = parsedPort
		}

		username := ""
		passwordSet := false
		if u.User != nil {
			username = strings.TrimSpace(u.User.Username())
			_, passwordSet = u.User.Password()
		}

		sslMode := strings.TrimSpace(u.Query().Get("sslmode"))
		if sslMode == "" {
			sslMode = "prefer"
		}

		return Target{
			Type:        DialectPostgres,
			Host:        strings.TrimSpace(u.Hostname()),
			Port:        port,
			User:        username,
			Name:        strings.TrimSpace(strings.TrimPrefix(u.Path, "/")),
			SSLMode:     sslMode,
			PasswordSet: passwordSet,
		}, nil
	default:
		return Target{}, fmt.Errorf("unsupported dsn scheme")
	}
}
