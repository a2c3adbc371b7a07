package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	Address string
	JTI     string
}

// AccessTokenClaims represents the typed JWT issued to lobby clients. The
// wallet address is the only identity the lobby knows.
type AccessTokenClaims struct {
	Address string `json:"address"`
	jwt.RegisteredClaims
}
