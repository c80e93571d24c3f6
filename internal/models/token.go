package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the authenticated identity threaded explicitly through every
// handler. Role is resolved from the profile at token issue time.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}

// LoginResponse bundles the issued token with the authenticated account.
type LoginResponse struct {
	AccessToken string  `json:"access_token"`
	ExpiresIn   int64   `json:"expires_in"`
	Account     Account `json:"account"`
}
