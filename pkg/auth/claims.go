package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/splitpay-backend/pkg/enums"
)

// AccessTokenPayload is the input for minting a token.
type AccessTokenPayload struct {
	VendorID uuid.UUID
	Role     enums.MemberRole
	JTI      string
}

// AccessTokenClaims is the JWT body presented by callers. The vendor is
// read from vendor_id and falls back to the registered subject.
type AccessTokenClaims struct {
	VendorID *uuid.UUID       `json:"vendor_id,omitempty"`
	Role     enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered-claim checks during parsing
// (jwt.ClaimsValidator) and before signing in MintAccessToken.
func (c AccessTokenClaims) Validate() error {
	if !c.Role.IsValid() {
		return fmt.Errorf("invalid member role %q", c.Role)
	}
	if c.Role == enums.MemberRoleVendor {
		if _, ok := c.Vendor(); !ok {
			return ErrVendorRequired
		}
	}
	return nil
}

// Vendor resolves the vendor the token acts for.
func (c AccessTokenClaims) Vendor() (uuid.UUID, bool) {
	if c.VendorID != nil && *c.VendorID != uuid.Nil {
		return *c.VendorID, true
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
