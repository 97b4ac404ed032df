// Package memory is an in-process [goRecover.UserRepository] for tests and
// the demo server.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	goRecover "github.com/MrEthical07/goRecover"
	"github.com/google/uuid"
)

type Repository struct {
	mu       sync.RWMutex
	accounts map[string]goRecover.Account
}

// New seeds a repository with accounts. It panics when a seed account is
// unnamed or duplicated, since a silently short seed list hides fixture bugs.
func New(accounts ...goRecover.Account) *Repository {
	r := &Repository{accounts: make(map[string]goRecover.Account, len(accounts))}
	for i, account := range accounts {
		if err := r.Create(context.Background(), account); err != nil {
			panic(fmt.Sprintf("memory: seed account %d: %v", i, err))
		}
	}
	return r
}

// Create adds account, assigning an ID when it has none.
func (r *Repository) Create(_ context.Context, account goRecover.Account) error {
	if strings.TrimSpace(account.Name) == "" {
		return fmt.Errorf("memory: account name is required")
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[account.Name]; ok {
		return fmt.Errorf("%w: %s", goRecover.ErrAccountExists, account.Name)
	}
	r.accounts[account.Name] = account
	return nil
}

func (r *Repository) FindByName(_ context.Context, name string) (goRecover.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[name]
	if !ok {
		return goRecover.Account{}, fmt.Errorf("%w: %s", goRecover.ErrAccountNotFound, name)
	}
	return account, nil
}

// FindByEmail returns matches ordered by name.
func (r *Repository) FindByEmail(_ context.Context, email string) ([]goRecover.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []goRecover.Account
	for _, account := range r.accounts {
		if account.Email != "" && strings.EqualFold(account.Email, email) {
			out = append(out, account)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Repository) UpdatePasswordHash(_ context.Context, name, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[name]
	if !ok {
		return fmt.Errorf("%w: %s", goRecover.ErrAccountNotFound, name)
	}
	account.PasswordHash = hash
	r.accounts[name] = account
	return nil
}

var _ goRecover.UserRepository = (*Repository)(nil)
