package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/skillroad/skillroad/internal/auth"
	"github.com/skillroad/skillroad/internal/config"
	"github.com/skillroad/skillroad/internal/db"
	"github.com/skillroad/skillroad/internal/generation"
	"github.com/skillroad/skillroad/internal/http/api/front"
	"github.com/skillroad/skillroad/internal/http/middleware"
	"github.com/skillroad/skillroad/internal/logging"
	"github.com/skillroad/skillroad/internal/metrics"
	"github.com/skillroad/skillroad/internal/roadmap"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.Config) error {
	conn, err := db.Open(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer closeDB(conn)
	return db.Migrate(conn.WithContext(ctx))
}

// RunServer boots the API server and blocks until ctx is cancelled or the listener fails.
func RunServer(ctx context.Context, cfg config.Config) error {
	logCloser, errLogging := logging.Setup(cfg.Logging)
	if errLogging != nil {
		return errLogging
	}
	defer func() {
		if errClose := logCloser.Close(); errClose != nil {
			log.Errorf("close log output: %v", errClose)
		}
	}()

	if target, errDescribe := db.Describe(cfg.DatabaseDSN); errDescribe == nil {
		log.Infof("database: %s", target)
	}
	conn, err := db.Open(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer closeDB(conn)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	engine, errEngine := NewEngine(ctx, cfg, conn, nil)
	if errEngine != nil {
		return errEngine
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Infof("starting server on %s", srv.Addr)
		if errListen := srv.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", errListen)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down server")
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			return fmt.Errorf("shutdown: %w", errShutdown)
		}
		return nil
	})
	return group.Wait()
}

// NewEngine wires services and routes onto a gin engine.
// A nil generator selects the Gemini client built from cfg.
func NewEngine(ctx context.Context, cfg config.Config, conn *gorm.DB, generator generation.Generator) (*gin.Engine, error) {
	if conn == nil {
		return nil, fmt.Errorf("app: nil database")
	}
	if generator == nil {
		if cfg.Generation.APIKey == "" {
			log.Warn("gemini api key is not configured; roadmap generation will fail")
		}
		generator = generation.NewGeminiClient(cfg.Generation)
	}

	users := auth.NewService(conn, cfg.JWT)
	oauthVerifiers := buildOAuthVerifiers(ctx, cfg.OAuth, users)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger())
	engine.Use(middleware.CORS(cfg.ClientURL))
	engine.Use(middleware.Metrics())

	front.RegisterFrontRoutes(engine, front.Deps{
		DB:        conn,
		Users:     users,
		Passwords: auth.NewPasswordVerifier(conn),
		Tokens:    auth.NewTokenVerifier(conn, cfg.JWT.Secret),
		OAuth:     oauthVerifiers,
		Roadmaps:  roadmap.NewService(conn, generator),
		ClientURL: cfg.ClientURL,
	})
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
	})
	return engine, nil
}

// buildOAuthVerifiers returns a verifier per configured provider.
// Google discovery failures disable Google sign-in instead of blocking startup.
func buildOAuthVerifiers(ctx context.Context, cfg config.OAuthConfig, users *auth.Service) []auth.OAuthVerifier {
	var verifiers []auth.OAuthVerifier
	if cfg.Google.Enabled() {
		google, errGoogle := auth.NewGoogleVerifier(ctx, cfg.Google, users)
		if errGoogle != nil {
			log.WithError(errGoogle).Warn("google sign-in disabled")
		} else {
			verifiers = append(verifiers, google)
		}
	}
	if cfg.GitHub.Enabled() {
		verifiers = append(verifiers, auth.NewGitHubVerifier(cfg.GitHub, users))
	}
	return verifiers
}

func closeDB(conn *gorm.DB) {
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		return
	}
	if errClose := sqlDB.Close(); errClose != nil {
		log.Errorf("sql db close error: %v", errClose)
	}
}
