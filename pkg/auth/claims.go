package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/storefronthq/storefront-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	PrincipalID uuid.UUID
	Kind        enums.PrincipalKind
}

// AccessTokenClaims is the typed JWT issued to clients. The subject is the
// principal id; Kind says which table it must resolve against.
type AccessTokenClaims struct {
	Kind enums.PrincipalKind `json:"kind"`
	jwt.RegisteredClaims
}

// PrincipalID parses the subject claim.
func (c *AccessTokenClaims) PrincipalID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}
