package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/google/uuid"
)

// MemoryUserRepository is an in-process user store for tests and local runs.
// Records are copied on the way in and out.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]models.User
	byEmail map[string]string
	now     func() time.Time
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]models.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (r *MemoryUserRepository) SetClock(now func() time.Time) {
	r.now = now
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &user, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, models.ErrNotFound
	}
	user := r.byID[id]
	return &user, nil
}

func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	if err := prepareNewUser(user, r.now().UTC()); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return fmt.Errorf("%w [email]", models.ErrDuplicateKey)
	}
	if _, exists := r.byID[user.ID]; exists {
		return fmt.Errorf("%w [_id]", models.ErrDuplicateKey)
	}

	r.byID[user.ID] = *user
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *MemoryUserRepository) Save(_ context.Context, user *models.User) error {
	if err := prepareUser(user, r.now().UTC()); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.byID[user.ID]
	if !ok {
		return models.ErrNotFound
	}
	if prev.Email != user.Email {
		if _, taken := r.byEmail[user.Email]; taken {
			return fmt.Errorf("%w [email]", models.ErrDuplicateKey)
		}
		delete(r.byEmail, prev.Email)
		r.byEmail[user.Email] = user.ID
	}

	r.byID[user.ID] = *user
	return nil
}

// MemoryTokenRepository is an in-process one-time token store.
type MemoryTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]models.OneTimeToken
}

func NewMemoryTokenRepository() *MemoryTokenRepository {
	return &MemoryTokenRepository{tokens: make(map[string]models.OneTimeToken)}
}

func (r *MemoryTokenRepository) Create(_ context.Context, token *models.OneTimeToken) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tokens {
		if t.TokenHash == token.TokenHash {
			return fmt.Errorf("%w [token]", models.ErrDuplicateKey)
		}
	}
	r.tokens[token.ID] = *token
	return nil
}

func (r *MemoryTokenRepository) GetByTokenHash(_ context.Context, tokenHash string) (*models.OneTimeToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tokens {
		if t.TokenHash == tokenHash {
			return &t, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *MemoryTokenRepository) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens, id)
	return nil
}

func (r *MemoryTokenRepository) DeleteByUserID(_ context.Context, userID string) (int64, error) {
	return r.deleteWhere(func(t models.OneTimeToken) bool { return t.UserID == userID }), nil
}

func (r *MemoryTokenRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	return r.deleteWhere(func(t models.OneTimeToken) bool { return t.ExpiresAt.Before(before) }), nil
}

func (r *MemoryTokenRepository) CountByUserID(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, t := range r.tokens {
		if t.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryTokenRepository) deleteWhere(match func(models.OneTimeToken) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, t := range r.tokens {
		if match(t) {
			delete(r.tokens, id)
			n++
		}
	}
	return n
}
