package models

import "time"

// AuthProvider names how a user signs in.
type AuthProvider string

const (
	AuthProviderLocal  AuthProvider = "local"
	AuthProviderGoogle AuthProvider = "google"
	AuthProviderGitHub AuthProvider = "github"
)

// User represents an end-user account stored in the database.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name     string `gorm:"type:text;not null"`             // Display name.
	Email    string `gorm:"type:text;not null;uniqueIndex"` // Lower-cased email address.
	Password string `gorm:"type:text"`                      // Hashed password, empty for OAuth accounts.

	AuthProvider AuthProvider `gorm:"type:varchar(16);not null;default:'local'"` // Sign-in method.
	ProviderID   string       `gorm:"type:text;not null;default:''"`             // Identity at the OAuth provider.
	Avatar       string       `gorm:"type:text"`                                 // Profile picture URL.

	RoadmapIDs RoadmapIDs `gorm:"type:jsonb;not null;default:'[]'"` // Owned roadmaps, in creation order.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
