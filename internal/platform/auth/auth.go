// Package auth verifies bearer tokens and turns them into a caller identity.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/library-circulation/internal/config"
	"github.com/library-circulation/internal/domain/identity"
)

// ErrInvalidToken is returned for any token that cannot be trusted.
var ErrInvalidToken = errors.New("invalid or expired token")

// Verifier validates a raw bearer token.
type Verifier interface {
	Verify(ctx context.Context, token string) (identity.Identity, error)
}

// NewVerifier builds the verifier selected by cfg.Provider.
func NewVerifier(ctx context.Context, logger *slog.Logger, cfg *config.AuthConfig) (Verifier, error) {
	switch cfg.Provider {
	case config.AuthProviderJWT:
		logger.Info("Using JWT token verifier", "issuer", cfg.JWTIssuer)
		return NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer), nil
	case config.AuthProviderFirebase:
		logger.Info("Using Firebase token verifier", "project_id", cfg.FirebaseProjectID)
		return NewFirebaseVerifier(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
	default:
		return nil, fmt.Errorf("unsupported auth provider: %s", cfg.Provider)
	}
}

// buildIdentity checks the claims every provider must carry.
func buildIdentity(memberID, email, role string) (identity.Identity, error) {
	id, err := uuid.Parse(memberID)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("%w: member_id claim is not a uuid", ErrInvalidToken)
	}
	r, ok := identity.ParseRole(role)
	if !ok {
		return identity.Identity{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, role)
	}
	return identity.Identity{MemberID: id, Email: email, Role: r}, nil
}
