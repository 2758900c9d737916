package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/skillroad/skillroad/internal/config"
	"github.com/skillroad/skillroad/internal/models"

	"github.com/coreos/go-oidc/v3/oidc"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	googleIssuer     = "https://accounts.google.com"
	githubAPIBaseURL = "https://api.github.com"
)

// OAuthVerifier is a CredentialVerifier driven by an authorization-code redirect flow.
type OAuthVerifier interface {
	CredentialVerifier
	Provider() models.AuthProvider
	AuthCodeURL(state string) string
}

// GoogleVerifier exchanges a Google authorization code and verifies the returned ID token.
type GoogleVerifier struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	users    *Service
}

// NewGoogleVerifier discovers Google's OIDC configuration and builds a verifier.
func NewGoogleVerifier(ctx context.Context, cfg config.OAuthClientConfig, users *Service) (*GoogleVerifier, error) {
	provider, errProvider := oidc.NewProvider(ctx, googleIssuer)
	if errProvider != nil {
		return nil, fmt.Errorf("google oauth: discover provider: %w", errProvider)
	}
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.CallbackURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
	return newGoogleVerifier(oauthCfg, provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}), users), nil
}

func newGoogleVerifier(oauthCfg *oauth2.Config, verifier *oidc.IDTokenVerifier, users *Service) *GoogleVerifier {
	return &GoogleVerifier{oauth: oauthCfg, verifier: verifier, users: users}
}

// Provider implements OAuthVerifier.
func (g *GoogleVerifier) Provider() models.AuthProvider { return models.AuthProviderGoogle }

// AuthCodeURL implements OAuthVerifier.
func (g *GoogleVerifier) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

// googleClaims are the ID token claims used to build a profile.
type googleClaims struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Verify implements CredentialVerifier. creds.Code is the authorization code.
func (g *GoogleVerifier) Verify(ctx context.Context, creds Credentials) (*models.User, error) {
	token, errExchange := g.oauth.Exchange(ctx, creds.Code)
	if errExchange != nil {
		return nil, fmt.Errorf("google oauth: exchange code: %w", errExchange)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("google oauth: no id_token in token response")
	}
	idToken, errVerify := g.verifier.Verify(ctx, rawIDToken)
	if errVerify != nil {
		return nil, fmt.Errorf("google oauth: verify id token: %w", errVerify)
	}
	var claims googleClaims
	if errClaims := idToken.Claims(&claims); errClaims != nil {
		return nil, fmt.Errorf("google oauth: parse claims: %w", errClaims)
	}
	return g.users.UpsertOAuthUser(ctx, Profile{
		Provider:   models.AuthProviderGoogle,
		ProviderID: claims.Subject,
		Name:       claims.Name,
		Email:      claims.Email,
		Avatar:     claims.Picture,
	})
}

// GitHubVerifier exchanges a GitHub authorization code and reads the user from the REST API.
type GitHubVerifier struct {
	oauth      *oauth2.Config
	apiBaseURL string
	users      *Service
}

// NewGitHubVerifier constructs a GitHubVerifier against github.com.
func NewGitHubVerifier(cfg config.OAuthClientConfig, users *Service) *GitHubVerifier {
	return newGitHubVerifier(cfg, github.Endpoint, githubAPIBaseURL, users)
}

func newGitHubVerifier(cfg config.OAuthClientConfig, endpoint oauth2.Endpoint, apiBaseURL string, users *Service) *GitHubVerifier {
	return &GitHubVerifier{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint:     endpoint,
			Scopes:       []string{"user:email"},
		},
		apiBaseURL: strings.TrimRight(apiBaseURL, "/"),
		users:      users,
	}
}

// Provider implements OAuthVerifier.
func (g *GitHubVerifier) Provider() models.AuthProvider { return models.AuthProviderGitHub }

// AuthCodeURL implements OAuthVerifier.
func (g *GitHubVerifier) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// Verify implements CredentialVerifier. creds.Code is the authorization code.
func (g *GitHubVerifier) Verify(ctx context.Context, creds Credentials) (*models.User, error) {
	token, errExchange := g.oauth.Exchange(ctx, creds.Code)
	if errExchange != nil {
		return nil, fmt.Errorf("github oauth: exchange code: %w", errExchange)
	}
	client := g.oauth.Client(ctx, token)

	var profile githubUser
	if errUser := g.getJSON(ctx, client, "/user", &profile); errUser != nil {
		return nil, errUser
	}
	if profile.ID == 0 || profile.Login == "" {
		return nil, ErrInvalidProfile
	}

	email := strings.TrimSpace(profile.Email)
	if email == "" {
		var emails []githubEmail
		if errEmails := g.getJSON(ctx, client, "/user/emails", &emails); errEmails != nil {
			log.WithError(errEmails).Warn("github oauth: list emails failed")
		}
		for _, candidate := range emails {
			if candidate.Primary && candidate.Verified {
				email = candidate.Email
				break
			}
		}
	}
	if email == "" {
		email = profile.Login + "@github.local"
	}

	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name = profile.Login
	}
	return g.users.UpsertOAuthUser(ctx, Profile{
		Provider:   models.AuthProviderGitHub,
		ProviderID: strconv.FormatInt(profile.ID, 10),
		Name:       name,
		Email:      email,
		Avatar:     profile.AvatarURL,
	})
}

func (g *GitHubVerifier) getJSON(ctx context.Context, client *http.Client, path string, out any) error {
	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBaseURL+path, nil)
	if errReq != nil {
		return fmt.Errorf("github oauth: build request: %w", errReq)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, errDo := client.Do(req)
	if errDo != nil {
		return fmt.Errorf("github oauth: request %s: %w", path, errDo)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.WithError(errClose).Warn("github oauth: close response body failed")
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("github oauth: %s unexpected status %d", path, resp.StatusCode)
	}
	body, errRead := io.ReadAll(resp.Body)
	if errRead != nil {
		return fmt.Errorf("github oauth: read %s: %w", path, errRead)
	}
	if errDecode := json.Unmarshal(body, out); errDecode != nil {
		return fmt.Errorf("github oauth: decode %s: %w", path, errDecode)
	}
	return nil
}
