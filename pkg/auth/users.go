package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	pkgerrors "github.com/onokeee/mindmap/pkg/errors"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password
var ErrInvalidCredentials = errors.New("invalid credentials")

// User is an account known to the directory
type User struct {
	ID       string
	Username string
}

type account struct {
	user         User
	passwordHash []byte
}

// UserDirectory keeps bcrypt-hashed accounts in memory
type UserDirectory struct {
	mu       sync.RWMutex
	accounts map[string]account
	cost     int
}

// NewUserDirectory creates an empty directory. A cost outside bcrypt's
// range falls back to bcrypt.DefaultCost.
func NewUserDirectory(cost int) *UserDirectory {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &UserDirectory{
		accounts: make(map[string]account),
		cost:     cost,
	}
}

// Add hashes password and registers the account. The username doubles as
// the user ID.
func (d *UserDirectory) Add(username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, pkgerrors.NewValidationError("username and password required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.accounts[username]; exists {
		return User{}, pkgerrors.NewConflictError(fmt.Sprintf("user %q already exists", username))
	}
	u := User{ID: username, Username: username}
	d.accounts[username] = account{user: u, passwordHash: hash}
	return u, nil
}

// Authenticate checks the password of username
func (d *UserDirectory) Authenticate(username, password string) (User, error) {
	d.mu.RLock()
	acc, ok := d.accounts[strings.TrimSpace(username)]
	d.mu.RUnlock()
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return acc.user, nil
}

// Lookup returns the account for a user ID
func (d *UserDirectory) Lookup(userID string) (User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	acc, ok := d.accounts[userID]
	return acc.user, ok
}
