package models

import "time"

// User is a registered account. Passwords are stored bcrypt-hashed and never
// serialized back to clients.
type User struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"not null" json:"name"`
	Email          string    `gorm:"uniqueIndex;not null" json:"email"`
	HashedPassword string    `gorm:"not null" json:"-"`
	Image          string    `json:"image,omitempty"`
	RoastCount     int       `gorm:"default:0" json:"roast_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName overrides the default pluralization
func (User) TableName() string {
	return "users"
}

// RegisterRequest for POST /auth/register
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserResponse is the private view of an account returned to its owner.
type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PublicUser is the listing view exposed to other users.
type PublicUser struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Image      string `json:"image,omitempty"`
	RoastCount int    `json:"roast_count"`
}

// TokenResponse for successful logins.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UpdateProfileRequest for PUT /users/me. Nil fields are left unchanged.
type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// ProfileImageRequest carries a base64-encoded image, optionally with a
// data-URL prefix ("data:image/jpeg;base64,...").
type ProfileImageRequest struct {
	ImageData string `json:"image_data" binding:"required"`
}

// ProfileImageResponse returns the public URL of the stored image.
type ProfileImageResponse struct {
	ImageURL string `json:"image_url"`
}
