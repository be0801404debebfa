package identity

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// RepositoryPort defines the data access the service needs.
type RepositoryPort interface {
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id int64) (Account, error)
}

// Service wraps authentication business rules: credential verification
// and bearer token issuance.
type Service struct {
	repo     RepositoryPort
	tokens   *Tokens
	denylist *Denylist
}

// NewService constructs a new Service. denylist may be nil.
func NewService(repo RepositoryPort, tokens *Tokens, denylist *Denylist) *Service {
	return &Service{repo: repo, tokens: tokens, denylist: denylist}
}

// Login validates email/password credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (string, Claims, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", Claims{}, ErrInvalidCredentials
	}
	if !account.IsActive {
		return "", Claims{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", Claims{}, ErrInvalidCredentials
	}
	return s.tokens.Issue(account, time.Now())
}

// Logout revokes the presented credential until its natural expiry.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	claims, err := s.tokens.Verify(rawToken)
	if err != nil {
		// Already unusable; nothing to revoke.
		return nil
	}
	if s.denylist == nil || claims.ExpiresAt == nil {
		return nil
	}
	return s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}
