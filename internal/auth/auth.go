// Package auth verifies credentials and manages user accounts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skillroad/skillroad/internal/config"
	"github.com/skillroad/skillroad/internal/models"
	"github.com/skillroad/skillroad/internal/security"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	// ErrUserExists is returned when registering an email that already has an account.
	ErrUserExists = errors.New("User already exists")
	// ErrInvalidCredentials is returned for unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("Invalid credentials")
	// ErrUnauthorized is returned for missing, malformed, expired or orphaned tokens.
	ErrUnauthorized = errors.New("Unauthorized")
	// ErrInvalidProfile is returned when an OAuth provider omits the identity fields we need.
	ErrInvalidProfile = errors.New("invalid oauth profile")
)

// Credentials carries whatever a sign-in method needs.
// Each verifier reads only its own fields.
type Credentials struct {
	Email    string
	Password string
	Token    string
	Code     string
}

// CredentialVerifier resolves credentials to a stored user.
type CredentialVerifier interface {
	Verify(ctx context.Context, creds Credentials) (*models.User, error)
}

// RegisterInput holds the fields for a new local account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Profile is the identity an OAuth provider reports for a user.
type Profile struct {
	Provider   models.AuthProvider
	ProviderID string
	Name       string
	Email      string
	Avatar     string
}

// Service stores accounts and issues tokens.
type Service struct {
	db  *gorm.DB
	jwt config.JWTConfig
	now func() time.Time
}

// NewService constructs a Service.
func NewService(db *gorm.DB, jwtCfg config.JWTConfig) *Service {
	return &Service{db: db, jwt: jwtCfg, now: time.Now}
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a local account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || name == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", models.ErrValidation)
	}

	hashed, errHash := security.HashPassword(in.Password)
	if errHash != nil {
		return nil, errHash
	}

	user := models.User{
		Name:         name,
		Email:        email,
		Password:     hashed,
		AuthProvider: models.AuthProviderLocal,
	}
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if errCount := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; errCount != nil {
			return errCount
		}
		if count > 0 {
			return ErrUserExists
		}
		return tx.Create(&user).Error
	})
	if errTx != nil {
		if errors.Is(errTx, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, errTx
	}
	log.WithField("user_id", user.ID).Info("user registered")
	return &user, nil
}

// IssueToken signs a bearer token for user.
func (s *Service) IssueToken(user *models.User) (string, error) {
	if user == nil {
		return "", fmt.Errorf("issue token: nil user")
	}
	return security.IssueUserToken(s.jwt.Secret, user.ID, s.jwt.Expiry, s.now())
}

// UpsertOAuthUser returns the account matching the provider identity or the email,
// creating one when neither exists.
func (s *Service) UpsertOAuthUser(ctx context.Context, profile Profile) (*models.User, error) {
	profile.Email = NormalizeEmail(profile.Email)
	profile.ProviderID = strings.TrimSpace(profile.ProviderID)
	if profile.ProviderID == "" || profile.Email == "" {
		return nil, ErrInvalidProfile
	}

	var user models.User
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		errFind := tx.Where("auth_provider = ? AND provider_id = ?", profile.Provider, profile.ProviderID).First(&user).Error
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			errFind = tx.Where("email = ?", profile.Email).First(&user).Error
		}
		if errFind == nil {
			if user.Avatar == "" && profile.Avatar != "" {
				user.Avatar = profile.Avatar
				return tx.Model(&user).Update("avatar", profile.Avatar).Error
			}
			return nil
		}
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return errFind
		}

		name := strings.TrimSpace(profile.Name)
		if name == "" {
			name, _, _ = strings.Cut(profile.Email, "@")
		}
		user = models.User{
			Name:         name,
			Email:        profile.Email,
			AuthProvider: profile.Provider,
			ProviderID:   profile.ProviderID,
			Avatar:       profile.Avatar,
		}
		return tx.Create(&user).Error
	})
	if errTx != nil {
		return nil, errTx
	}
	return &user, nil
}

// UserByID loads an account.
func (s *Service) UserByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if errFind := s.db.WithContext(ctx).First(&user, id).Error; errFind != nil {
		return nil, errFind
	}
	return &user, nil
}
