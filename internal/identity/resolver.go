package identity

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/lyceum-app/lyceum/internal/authz"
)

// Resolver verifies the bearer credential on a request and produces a
// Principal. It is stateless per request and fails closed: every
// failure mode resolves to authz.ErrUnauthenticated.
type Resolver struct {
	tokens   *Tokens
	denylist *Denylist
	logger   *slog.Logger
}

// NewResolver constructs a Resolver. denylist may be nil.
func NewResolver(tokens *Tokens, denylist *Denylist, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{tokens: tokens, denylist: denylist, logger: logger}
}

// Resolve extracts "Authorization: Bearer <token>" and verifies it.
func (r *Resolver) Resolve(req *http.Request) (authz.Principal, error) {
	raw, err := bearerToken(req)
	if err != nil {
		return authz.Principal{}, err
	}
	claims, err := r.tokens.Verify(raw)
	if err != nil {
		// The reasons stay distinguishable in logs; callers only see
		// the collapsed Unauthenticated outcome.
		r.logger.Debug("credential rejected", slog.Any("error", err))
		return authz.Principal{}, fmt.Errorf("%w: %v", authz.ErrUnauthenticated, err)
	}
	if r.denylist.IsRevoked(req.Context(), claims.ID) {
		return authz.Principal{}, fmt.Errorf("%w: token revoked", authz.ErrUnauthenticated)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return authz.Principal{}, fmt.Errorf("%w: invalid subject", authz.ErrUnauthenticated)
	}
	return authz.Principal{
		ID:    id,
		Email: claims.Email,
		Role:  authz.CanonicalRole(claims.Role),
	}, nil
}

func bearerToken(req *http.Request) (string, error) {
	header := req.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("%w: missing authorization header", authz.ErrUnauthenticated)
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: malformed authorization header", authz.ErrUnauthenticated)
	}
	return strings.TrimSpace(token), nil
}
