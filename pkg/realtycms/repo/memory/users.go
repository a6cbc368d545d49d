package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/indrealty/realty-cms/pkg/realtycms"
)

// UserRepository implements realtycms.UserRepository using in-memory storage
type UserRepository struct {
	mu         sync.RWMutex
	users      map[uuid.UUID]*realtycms.User
	byUID      map[string]uuid.UUID
	byUsername map[string]uuid.UUID
}

// NewUserRepository creates a new in-memory user repository
func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:      make(map[uuid.UUID]*realtycms.User),
		byUID:      make(map[string]uuid.UUID),
		byUsername: make(map[string]uuid.UUID),
	}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *realtycms.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUID[user.UID]; exists {
		return realtycms.ErrDuplicateUser
	}
	if _, exists := r.byUsername[user.Username]; exists {
		return realtycms.ErrDuplicateUser
	}
	userCopy := *user
	r.users[user.ID] = &userCopy
	r.byUID[user.UID] = user.ID
	r.byUsername[user.Username] = user.ID
	return nil
}

func (r *UserRepository) UpdateUser(ctx context.Context, user *realtycms.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, exists := r.users[user.ID]
	if !exists {
		return realtycms.ErrUserNotFound
	}
	if old.Username != user.Username {
		if owner, taken := r.byUsername[user.Username]; taken && owner != user.ID {
			return realtycms.ErrDuplicateUser
		}
		delete(r.byUsername, old.Username)
		r.byUsername[user.Username] = user.ID
	}
	userCopy := *user
	userCopy.UID = old.UID
	r.users[user.ID] = &userCopy
	return nil
}

func (r *UserRepository) GetUser(ctx context.Context, id uuid.UUID) (*realtycms.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, realtycms.ErrUserNotFound
	}
	userCopy := *user
	return &userCopy, nil
}

func (r *UserRepository) GetUserByUID(ctx context.Context, uid string) (*realtycms.User, error) {
	r.mu.RLock()
	id, exists := r.byUID[uid]
	r.mu.RUnlock()
	if !exists {
		return nil, realtycms.ErrUserNotFound
	}
	return r.GetUser(ctx, id)
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*realtycms.User, error) {
	r.mu.RLock()
	id, exists := r.byUsername[username]
	r.mu.RUnlock()
	if !exists {
		return nil, realtycms.ErrUserNotFound
	}
	return r.GetUser(ctx, id)
}

type interestKey struct {
	item uuid.UUID
	user uuid.UUID
}

// InterestRepository implements realtycms.InterestRepository using in-memory storage
type InterestRepository struct {
	mu     sync.RWMutex
	seen   map[interestKey]struct{}
	byItem map[uuid.UUID][]uuid.UUID // item_id -> user ids in insertion order
}

// NewInterestRepository creates a new in-memory interest repository
func NewInterestRepository() *InterestRepository {
	return &InterestRepository{
		seen:   make(map[interestKey]struct{}),
		byItem: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (r *InterestRepository) AddInterest(ctx context.Context, itemID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := interestKey{item: itemID, user: userID}
	if _, exists := r.seen[key]; exists {
		return realtycms.ErrDuplicateInterest
	}
	r.seen[key] = struct{}{}
	r.byItem[itemID] = append(r.byItem[itemID], userID)
	return nil
}

func (r *InterestRepository) ListInterested(ctx context.Context, itemID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]uuid.UUID, len(r.byItem[itemID]))
	copy(users, r.byItem[itemID])
	return users, nil
}
