package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	migerrors "github.com/heymumford/migrationcore/infrastructure/errors"
)

// claims is the minimal shape read out of a client-credentials access
// token when a provider's grant response omits expires_in and instead
// issues the access token itself as a JWT, per the registered-claims
// convention used by the Service Token Generator this package borrows its
// JWT handling from.
type claims struct {
	jwt.RegisteredClaims
}

// ExpiresAtFromJWT extracts the exp claim from a JWT access token without
// verifying its signature — the Session Manager is not the token's
// audience and holds no verification key for it, only the expiry it needs
// to schedule proactive refresh. Manager.refresh calls this when an
// Exchanger returns a zero expiry.
func ExpiresAtFromJWT(accessToken string) (time.Time, error) {
	var c claims
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(accessToken, &c); err != nil {
		return time.Time{}, migerrors.Wrap(migerrors.AuthenticationFailed, "access token is not a parseable JWT", err)
	}
	if c.ExpiresAt == nil {
		return time.Time{}, migerrors.New(migerrors.AuthenticationFailed, "access token JWT carries no exp claim")
	}
	return c.ExpiresAt.Time, nil
}
