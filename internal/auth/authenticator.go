package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/labpulse/labpulse/internal/auth/jwt"
	"github.com/labpulse/labpulse/internal/common/config"
	"github.com/labpulse/labpulse/internal/common/errorx"
	"github.com/labpulse/labpulse/internal/platform"
	"go.uber.org/zap"
)

var (
	// ErrNoCredential means no source carried a token
	ErrNoCredential = errors.New("no credential in handshake")
	// ErrAccountInactive means the identity exists but may not connect
	ErrAccountInactive = errors.New("account inactive or deleted")
)

// Authenticator validates connection handshakes: credential extraction,
// token validation, and identity resolution against the platform.
type Authenticator struct {
	logger     *zap.Logger
	jwtService *jwt.Service
	resolver   platform.IdentityResolver
	extractors []CredentialExtractor
}

// NewAuthenticator builds the gate from the configured credential sources.
// Extraction order is fixed: header, query parameter, cookie.
func NewAuthenticator(logger *zap.Logger, cfg config.AuthConfig, jwtService *jwt.Service, resolver platform.IdentityResolver) *Authenticator {
	return &Authenticator{
		logger:     logger.Named("auth"),
		jwtService: jwtService,
		resolver:   resolver,
		extractors: []CredentialExtractor{
			FromAuthorizationHeader,
			FromQueryParam(cfg.QueryParam),
			FromCookie(cfg.CookieName),
		},
	}
}

// AuthenticateConnection validates the handshake and resolves the caller's
// identity. Every failure collapses to the generic errorx.ErrAuthRequired on
// the wire; the precise cause is logged here and nowhere else.
func (a *Authenticator) AuthenticateConnection(ctx context.Context, r *http.Request) (*platform.Identity, error) {
	token, ok := ExtractCredential(r, a.extractors)
	if !ok {
		a.logger.Info("connection rejected: no credential",
			zap.String("remote_addr", r.RemoteAddr))
		return nil, errorx.ErrAuthRequired()
	}

	claims, err := a.jwtService.ValidateToken(token)
	if err != nil {
		a.logger.Info("connection rejected: token validation failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err))
		return nil, errorx.ErrAuthRequired()
	}

	identity, err := a.resolver.ResolveIdentity(ctx, claims.UserID)
	if err != nil {
		a.logger.Warn("connection rejected: identity lookup failed",
			zap.String("user_id", claims.UserID),
			zap.Error(err))
		return nil, errorx.ErrAuthRequired()
	}
	if !identity.Active || identity.Deleted {
		a.logger.Warn("connection rejected: account inactive",
			zap.String("user_id", identity.ID),
			zap.Bool("deleted", identity.Deleted))
		return nil, errorx.ErrAuthRequired()
	}

	return identity, nil
}
