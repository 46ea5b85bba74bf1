package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lonchera-pe/cantina-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	Role     enums.UserRole
	SchoolID *uuid.UUID
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to clients. SchoolID is
// nil only for platform admins, who see every tenant.
type AccessTokenClaims struct {
	UserID   uuid.UUID      `json:"user_id"`
	Role     enums.UserRole `json:"role"`
	SchoolID *uuid.UUID     `json:"school_id,omitempty"`
	jwt.RegisteredClaims
}
