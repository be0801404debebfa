package identity

import (
	"errors"
	"time"
)

// Account represents a stored credential holder. The engine never
// persists principals; accounts live in the identity store and are
// projected into principals per request.
type Account struct {
	ID           int64
	Email        string
	Name         string
	Role         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ErrInvalidCredentials indicates login failure.
var ErrInvalidCredentials = errors.New("identity: invalid credentials")

// ErrAccountNotFound indicates the account does not exist.
var ErrAccountNotFound = errors.New("identity: account not found")
