package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/skillroad/skillroad/internal/auth"
	"github.com/skillroad/skillroad/internal/models"
	"github.com/skillroad/skillroad/internal/security"
)

const (
	oauthStateCookiePrefix = "skillroad_oauth_state_"
	oauthStateMaxAge       = 600
	oauthStateLength       = 32
)

// AuthHandler serves registration, login and OAuth sign-in.
type AuthHandler struct {
	users     *auth.Service
	passwords auth.CredentialVerifier
	providers map[models.AuthProvider]auth.OAuthVerifier
	clientURL string
}

// NewAuthHandler constructs an AuthHandler. Nil providers are skipped.
func NewAuthHandler(users *auth.Service, passwords auth.CredentialVerifier, clientURL string, providers ...auth.OAuthVerifier) *AuthHandler {
	registered := make(map[models.AuthProvider]auth.OAuthVerifier, len(providers))
	for _, provider := range providers {
		if provider == nil {
			continue
		}
		registered[provider.Provider()] = provider
	}
	return &AuthHandler{
		users:     users,
		passwords: passwords,
		providers: registered,
		clientURL: strings.TrimRight(clientURL, "/"),
	}
}

// registerRequest defines the request body for local registration.
type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// loginRequest defines the request body for local login.
type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates a local account and returns a token.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": bindingMessage(errBind)})
		return
	}

	user, errRegister := h.users.Register(c.Request.Context(), auth.RegisterInput{
		Name:     body.Name,
		Email:    body.Email,
		Password: body.Password,
	})
	if errRegister != nil {
		switch {
		case errors.Is(errRegister, auth.ErrUserExists):
			c.JSON(http.StatusBadRequest, gin.H{"message": auth.ErrUserExists.Error()})
		case errors.Is(errRegister, models.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Name, email and password are required"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error", "error": errRegister.Error()})
		}
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
}

// Login verifies an email and password and returns a token.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": auth.ErrInvalidCredentials.Error()})
		return
	}

	user, errVerify := h.passwords.Verify(c.Request.Context(), auth.Credentials{Email: body.Email, Password: body.Password})
	if errVerify != nil {
		if errors.Is(errVerify, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"message": auth.ErrInvalidCredentials.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error", "error": errVerify.Error()})
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	user := getUser(c)
	if user == nil {
		abortUnauthorized(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": formatUser(user)})
}

// OAuthStart redirects the browser to the provider's consent page.
func (h *AuthHandler) OAuthStart(provider models.AuthProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		verifier, ok := h.providers[provider]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "Sign-in provider not configured"})
			return
		}

		state, errState := security.GenerateRandomString(oauthStateLength)
		if errState != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error", "error": errState.Error()})
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(oauthStateCookiePrefix+string(provider), state, oauthStateMaxAge, "/", "", c.Request.TLS != nil, true)
		c.Redirect(http.StatusFound, verifier.AuthCodeURL(state))
	}
}

// OAuthCallback completes the provider flow and hands a token to the client app.
func (h *AuthHandler) OAuthCallback(provider models.AuthProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		verifier, ok := h.providers[provider]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "Sign-in provider not configured"})
			return
		}

		cookieName := oauthStateCookiePrefix + string(provider)
		expected, _ := c.Cookie(cookieName)
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookieName, "", -1, "/", "", c.Request.TLS != nil, true)

		entry := log.WithField("provider", provider)
		if providerErr := c.Query("error"); providerErr != "" {
			entry.WithField("error", providerErr).Warn("oauth: provider returned error")
			h.redirectLoginFailure(c)
			return
		}
		state := c.Query("state")
		if expected == "" || state == "" || state != expected {
			entry.Warn("oauth: state mismatch")
			h.redirectLoginFailure(c)
			return
		}
		code := strings.TrimSpace(c.Query("code"))
		if code == "" {
			entry.Warn("oauth: missing code")
			h.redirectLoginFailure(c)
			return
		}

		user, errVerify := verifier.Verify(c.Request.Context(), auth.Credentials{Code: code})
		if errVerify != nil {
			entry.WithError(errVerify).Warn("oauth: verify failed")
			h.redirectLoginFailure(c)
			return
		}
		token, errToken := h.users.IssueToken(user)
		if errToken != nil {
			entry.WithError(errToken).Error("oauth: issue token failed")
			h.redirectLoginFailure(c)
			return
		}
		c.Redirect(http.StatusFound, h.clientURL+"?token="+url.QueryEscape(token))
	}
}

func (h *AuthHandler) redirectLoginFailure(c *gin.Context) {
	c.Redirect(http.StatusFound, h.clientURL+"/login")
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, errToken := h.users.IssueToken(user)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error", "error": errToken.Error()})
		return
	}
	c.JSON(status, gin.H{
		"token": token,
		"user":  formatUser(user),
	})
}

func formatUser(user *models.User) gin.H {
	return gin.H{
		"id":     user.ID,
		"name":   user.Name,
		"email":  user.Email,
		"avatar": user.Avatar,
	}
}
