package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserInfo is the public projection of a user returned alongside tokens.
type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// JWTClaims is the claim set embedded in access tokens.
type JWTClaims struct {
	UserID    string   `json:"uid"`
	Role      UserRole `json:"role"`
	StudentID string   `json:"student_id,omitempty"`
	TutorID   string   `json:"tutor_id,omitempty"`
	jwt.RegisteredClaims
}
