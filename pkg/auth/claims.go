package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/sweetshop-backend/pkg/enums"
)

// adminAudience pins tokens to the admin console so a token minted for
// another surface with the same secret is rejected.
const adminAudience = "sweetshop-admin"

type AccessTokenPayload struct {
	AdminID  uuid.UUID
	Username string
	Role     enums.AdminRole
	JTI      string
}

// AccessTokenClaims is the body of every admin access token.
type AccessTokenClaims struct {
	AdminID  uuid.UUID       `json:"admin_id"`
	Username string          `json:"username"`
	Role     enums.AdminRole `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered claims checks. It is skipped by the
// allow-expired parser, which is why the refresh path re-checks the role
// against the stored admin.
func (c *AccessTokenClaims) Validate() error {
	if c.AdminID == uuid.Nil {
		return errors.New("token has no admin id")
	}
	if c.Subject != c.AdminID.String() {
		return errors.New("token subject does not match admin id")
	}
	if !c.Role.IsValid() {
		return errors.New("token carries an unknown role")
	}
	if c.ID == "" {
		return errors.New("token has no jti")
	}
	return nil
}
