package identity

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token verification failure reasons. All of them collapse to a single
// Unauthenticated outcome at the HTTP boundary, but stay distinguishable
// here for observability.
var (
	ErrTokenMalformed = errors.New("identity: malformed token")
	ErrTokenSignature = errors.New("identity: invalid token signature")
	ErrTokenExpired   = errors.New("identity: token expired")
)

// Claims carried by the signed bearer credential.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Tokens signs and verifies HS256 bearer credentials. Verification is a
// pure function of the input and the signing secret; it produces no
// side effects and returns errors instead of panicking on malformed
// input.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewTokens constructs a Tokens helper. A zero ttl falls back to 12h.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, issuer: "lyceum"}
}

// TTL exposes the configured token lifetime.
func (t *Tokens) TTL() time.Duration {
	return t.ttl
}

// Issue signs a credential for the account.
func (t *Tokens) Issue(account Account, now time.Time) (string, Claims, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   strconv.FormatInt(account.ID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Email: account.Email,
		Role:  account.Role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("identity: sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify parses and validates a raw credential.
func (t *Tokens) Verify(raw string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrTokenSignature
		default:
			return Claims{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		}
	}
	return claims, nil
}
