package auth

import (
	"context"
	"errors"

	"github.com/skillroad/skillroad/internal/models"
	"github.com/skillroad/skillroad/internal/security"

	"gorm.io/gorm"
)

// PasswordVerifier checks an email and password against the stored bcrypt hash.
type PasswordVerifier struct {
	db *gorm.DB
}

// NewPasswordVerifier constructs a PasswordVerifier.
func NewPasswordVerifier(db *gorm.DB) *PasswordVerifier {
	return &PasswordVerifier{db: db}
}

// Verify implements CredentialVerifier.
func (v *PasswordVerifier) Verify(ctx context.Context, creds Credentials) (*models.User, error) {
	email := NormalizeEmail(creds.Email)
	if email == "" || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}
	var user models.User
	if errFind := v.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errFind
	}
	if !security.CheckPassword(user.Password, creds.Password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// TokenVerifier resolves a bearer token to its user.
type TokenVerifier struct {
	db     *gorm.DB
	secret string
}

// NewTokenVerifier constructs a TokenVerifier.
func NewTokenVerifier(db *gorm.DB, secret string) *TokenVerifier {
	return &TokenVerifier{db: db, secret: secret}
}

// Verify implements CredentialVerifier.
func (v *TokenVerifier) Verify(ctx context.Context, creds Credentials) (*models.User, error) {
	if creds.Token == "" {
		return nil, ErrUnauthorized
	}
	claims, errParse := security.ParseUserToken(v.secret, creds.Token)
	if errParse != nil {
		return nil, ErrUnauthorized
	}
	var user models.User
	if errFind := v.db.WithContext(ctx).First(&user, claims.UserID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, errFind
	}
	return &user, nil
}
