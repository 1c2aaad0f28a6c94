package middleware

import (
	"context"
	"net/http"

	"github.com/bengobox/church-admin/internal/httpapi/render"
	"github.com/bengobox/church-admin/internal/token"
	"go.uber.org/zap"
)

// ReasonRevoked is reported for tokens invalidated by logout.
const ReasonRevoked = "revoked"

// Authenticator turns an Authorization header into a verdict.
type Authenticator interface {
	Authenticate(header string) token.Verdict
}

// RevocationChecker reports whether a token id was revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Auth provides JWT-backed authentication middleware.
type Auth struct {
	authenticator Authenticator
	revocations   RevocationChecker
	logger        *zap.Logger
}

// NewAuth creates a new instance. revocations may be nil.
func NewAuth(authenticator Authenticator, revocations RevocationChecker, logger *zap.Logger) *Auth {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auth{authenticator: authenticator, revocations: revocations, logger: logger}
}

// RequireAuth rejects the request with 401 unless it carries a valid,
// unrevoked bearer token. Rejected requests never reach the handler.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		verdict := a.authenticator.Authenticate(r.Header.Get("Authorization"))
		if !verdict.OK() {
			writeAuthError(w, verdict.Reason)
			return
		}

		if a.revocations != nil && verdict.Identity.TokenID != "" {
			revoked, err := a.revocations.IsRevoked(r.Context(), verdict.Identity.TokenID)
			if err != nil {
				a.logger.Error("token revocation check failed", zap.Error(err))
				render.Error(w, http.StatusServiceUnavailable, "unavailable", "authentication temporarily unavailable", nil)
				return
			}
			if revoked {
				writeAuthError(w, ReasonRevoked)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), verdict.Identity)))
	})
}

func writeAuthError(w http.ResponseWriter, reason string) {
	render.Error(w, http.StatusUnauthorized, "unauthorized", "unauthorized: "+reason, map[string]any{
		"reason": reason,
	})
}

type identityContextKey struct{}

// WithIdentity stores the authenticated identity on ctx.
func WithIdentity(ctx context.Context, identity *token.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext extracts the identity stored by RequireAuth.
func IdentityFromContext(ctx context.Context) (*token.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(*token.Identity)
	return identity, ok && identity != nil
}
