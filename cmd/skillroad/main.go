package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/skillroad/skillroad/internal/app"
	"github.com/skillroad/skillroad/internal/config"

	log "github.com/sirupsen/logrus"
)

// main runs the CLI entrypoint and exits on unrecoverable command errors.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if errRun := run(ctx, os.Args[1:]); errRun != nil {
		log.WithError(errRun).Error("command failed")
		stop()
		os.Exit(1)
	}
}

// run parses flags, loads config, and starts the server or a one-shot command.
func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("skillroad", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file path (or env CONFIG_PATH)")
	port := fs.Int("port", 0, "server port (overrides config and PORT)")
	migrateOnly := fs.Bool("migrate", false, "run database migrations and exit")
	initConfig := fs.Bool("init", false, "write a starter config file and exit")
	dbType := fs.String("db-type", "sqlite", "database type for -init (sqlite or postgres)")
	dbPath := fs.String("db-path", "", "sqlite database path for -init")
	dbHost := fs.String("db-host", "", "postgres host for -init")
	dbPort := fs.Int("db-port", 5432, "postgres port for -init")
	dbUser := fs.String("db-user", "", "postgres user for -init")
	dbPassword := fs.String("db-password", "", "postgres password for -init")
	dbName := fs.String("db-name", "", "postgres database name for -init")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	if *port != 0 {
		if errValidate := validatePort(*port); errValidate != nil {
			return errValidate
		}
	}

	appCfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if strings.TrimSpace(*cfgPath) != "" {
		appCfg.ConfigPath = config.ResolveConfigPath(*cfgPath)
	}
	configPath := config.ResolveConfigPath(appCfg.ConfigPath)

	if *initConfig {
		initPort := *port
		if initPort == 0 {
			initPort = 5000
		}
		return app.RunInit(configPath, app.InitRequest{
			DatabaseType:     *dbType,
			DatabasePath:     *dbPath,
			DatabaseHost:     *dbHost,
			DatabasePort:     *dbPort,
			DatabaseUser:     *dbUser,
			DatabasePassword: *dbPassword,
			DatabaseName:     *dbName,
			Port:             initPort,
			ClientURL:        os.Getenv(config.EnvClientURL),
			GeminiAPIKey:     os.Getenv(config.EnvGeminiAPIKey),
		})
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Port = *port
	}

	if *migrateOnly {
		return app.Migrate(ctx, cfg)
	}

	log.Infof("starting skillroad with config=%s", configPath)
	return app.RunServer(ctx, cfg)
}

func validatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}
	return nil
}
