// Package front registers the public REST API consumed by the browser client.
package front

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/skillroad/skillroad/internal/auth"
	handlers "github.com/skillroad/skillroad/internal/http/api/front/handlers"
	"github.com/skillroad/skillroad/internal/models"
	"github.com/skillroad/skillroad/internal/roadmap"
	"gorm.io/gorm"
)

// Deps carries the services the front routes are built on.
type Deps struct {
	DB        *gorm.DB
	Users     *auth.Service
	Passwords auth.CredentialVerifier
	Tokens    auth.CredentialVerifier
	OAuth     []auth.OAuthVerifier
	Roadmaps  *roadmap.Service
	ClientURL string
}

// RegisterFrontRoutes registers the /api routes, middleware, and handlers.
func RegisterFrontRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	api := r.Group("/api")

	healthHandler := handlers.NewHealthHandler(deps.DB)
	api.GET("/health", healthHandler.Health)

	authHandler := handlers.NewAuthHandler(deps.Users, deps.Passwords, deps.ClientURL, deps.OAuth...)
	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/google", authHandler.OAuthStart(models.AuthProviderGoogle))
	authGroup.GET("/google/callback", authHandler.OAuthCallback(models.AuthProviderGoogle))
	authGroup.GET("/github", authHandler.OAuthStart(models.AuthProviderGitHub))
	authGroup.GET("/github/callback", authHandler.OAuthCallback(models.AuthProviderGitHub))

	authed := api.Group("")
	authed.Use(userAuthMiddleware(deps.Tokens))

	authed.GET("/auth/me", authHandler.Me)

	roadmapHandler := handlers.NewRoadmapHandler(deps.Roadmaps)
	authed.POST("/roadmaps/generate", roadmapHandler.Generate)
	authed.GET("/roadmaps", roadmapHandler.List)
	authed.GET("/roadmaps/:id", roadmapHandler.Get)
	authed.PATCH("/roadmaps/:id/topics/:topicId/complete", roadmapHandler.CompleteTopic)
	authed.DELETE("/roadmaps/:id", roadmapHandler.Delete)
}

// userAuthMiddleware validates bearer tokens and loads the user into the context.
func userAuthMiddleware(tokens auth.CredentialVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if authHeader == "" || token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}

		user, errVerify := tokens.Verify(c.Request.Context(), auth.Credentials{Token: token})
		if errVerify != nil {
			if !errors.Is(errVerify, auth.ErrUnauthorized) {
				log.WithError(errVerify).Error("front auth: verify token failed")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}

		c.Set(handlers.ContextUserIDKey, user.ID)
		c.Set(handlers.ContextUserKey, user)
		c.Next()
	}
}
