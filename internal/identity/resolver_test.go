package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/lyceum-app/lyceum/internal/authz"
)

func requestWithToken(t *testing.T, tokens *Tokens, account Account) (*http.Request, Claims) {
	t.Helper()
	raw, claims, err := tokens.Issue(account, time.Now())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/anything", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	return req, claims
}

func TestResolverProducesCanonicalPrincipal(t *testing.T) {
	tokens := NewTokens("secret-key", time.Hour)
	resolver := NewResolver(tokens, nil, nil)

	req, _ := requestWithToken(t, tokens, Account{ID: 42, Email: "x@lyceum.test", Role: "head-teacher"})
	principal, err := resolver.Resolve(req)
	require.NoError(t, err)
	require.Equal(t, int64(42), principal.ID)
	require.Equal(t, authz.RoleName("HEAD_TEACHER"), principal.Role)
}

func TestResolverMissingHeader(t *testing.T) {
	resolver := NewResolver(NewTokens("secret-key", time.Hour), nil, nil)
	_, err := resolver.Resolve(httptest.NewRequest(http.MethodGet, "/", nil))
	require.ErrorIs(t, err, authz.ErrUnauthenticated)
}

func TestResolverMalformedHeader(t *testing.T) {
	resolver := NewResolver(NewTokens("secret-key", time.Hour), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	_, err := resolver.Resolve(req)
	require.ErrorIs(t, err, authz.ErrUnauthenticated)
}

func TestResolverRejectsBadSignature(t *testing.T) {
	tokens := NewTokens("secret-key", time.Hour)
	forged := NewTokens("attacker-key", time.Hour)
	resolver := NewResolver(tokens, nil, nil)

	req, _ := requestWithToken(t, forged, Account{ID: 1, Role: "admin"})
	_, err := resolver.Resolve(req)
	require.ErrorIs(t, err, authz.ErrUnauthenticated)
}

func TestResolverRejectsRevokedToken(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tokens := NewTokens("secret-key", time.Hour)
	denylist := NewDenylist(client)
	resolver := NewResolver(tokens, denylist, nil)

	req, claims := requestWithToken(t, tokens, Account{ID: 9, Role: "teacher"})
	_, err := resolver.Resolve(req)
	require.NoError(t, err)

	require.NoError(t, denylist.Revoke(req.Context(), claims.ID, claims.ExpiresAt.Time))
	_, err = resolver.Resolve(req)
	require.ErrorIs(t, err, authz.ErrUnauthenticated)
}
