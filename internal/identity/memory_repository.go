package identity

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is a concurrency-safe Repository keyed by normalized email.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
	roles map[string]Role
}

// NewMemoryRepository builds an in-memory user store for tests and local development.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]User), roles: make(map[string]Role)}
}

func (r *MemoryRepository) Save(ctx context.Context, user User) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	user = prepareInsert(ctx, user, time.Now().UTC())
	user.Role = nil

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.Email]; exists {
		return User{}, ErrDuplicateEmail
	}
	r.users[user.Email] = user
	return user, nil
}

func (r *MemoryRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[NormalizeEmail(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryRepository) FindByEmailWithRole(ctx context.Context, email string) (User, error) {
	user, err := r.FindByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if role, ok := r.roles[user.RoleID]; ok {
		role.Authorities = append([]Authority(nil), role.Authorities...)
		user.Role = &role
	}
	return user, nil
}

// PutRole registers a role so users referencing it resolve through FindByEmailWithRole.
func (r *MemoryRepository) PutRole(role Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[role.ID] = role
}

// Count returns the number of stored users.
func (r *MemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
