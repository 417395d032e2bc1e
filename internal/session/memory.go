package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type account struct {
	id   string
	hash []byte
}

// MemoryProvider is an in-process Provider storing bcrypt password hashes.
// It backs local runs and tests.
type MemoryProvider struct {
	cost int

	mu       sync.Mutex
	accounts map[string]account
	calls    int
}

// NewMemoryProvider returns a provider hashing with the given bcrypt cost
// (bcrypt.DefaultCost when zero).
func NewMemoryProvider(cost int) *MemoryProvider {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &MemoryProvider{cost: cost, accounts: make(map[string]account)}
}

// Calls returns how many requests reached the provider.
func (m *MemoryProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MemoryProvider) SignUp(ctx context.Context, email, password string) (Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if _, ok := m.accounts[email]; ok {
		return Principal{}, &AuthRejectedError{Detail: "EMAIL_EXISTS"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if err != nil {
		return Principal{}, &AuthRejectedError{Detail: "WEAK_PASSWORD", Err: err}
	}
	acc := account{id: uuid.NewString(), hash: hash}
	m.accounts[email] = acc
	return Principal{ID: acc.id, Email: email}, nil
}

func (m *MemoryProvider) SignIn(ctx context.Context, email, password string) (Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	acc, ok := m.accounts[email]
	if !ok {
		return Principal{}, &AuthRejectedError{Detail: "EMAIL_NOT_FOUND"}
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return Principal{}, &AuthRejectedError{Detail: "INVALID_PASSWORD"}
		}
		return Principal{}, &AuthRejectedError{Detail: "INVALID_PASSWORD", Err: err}
	}
	return Principal{ID: acc.id, Email: email}, nil
}
