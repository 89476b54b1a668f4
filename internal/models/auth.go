package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" form:"email" validate:"required,email"`
	Password  string `json:"password" form:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the session token and user info.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	User        UsuarioInfo `json:"user"`
	IssuedAt    time.Time   `json:"issued_at"`
}

// UsuarioInfo describes the authenticated user in responses.
type UsuarioInfo struct {
	ID     int64    `json:"id"`
	Email  string   `json:"email"`
	Nombre string   `json:"nombre"`
	Roles  []string `json:"roles"`
}

// APIKeyResponse returns a freshly generated API key; it is shown only once.
type APIKeyResponse struct {
	APIKey     string    `json:"api_key"`
	Expiracion time.Time `json:"api_key_expiracion"`
}

// JWTClaims represents the JWT payload for session tokens.
type JWTClaims struct {
	UsuarioID int64  `json:"usuario_id"`
	Email     string `json:"email"`
	Nombre    string `json:"nombre"`
	jwt.RegisteredClaims
}
