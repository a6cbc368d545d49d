package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/indrealty/realty-cms/pkg/realtycms"
)

// Repository implements realtycms.Repository for one content kind using
// in-memory storage
type Repository[E realtycms.Extra] struct {
	mu     sync.RWMutex
	items  map[uuid.UUID]*realtycms.Item[E]
	bySlug map[string]uuid.UUID
	byPID  map[string]uuid.UUID
}

// New creates a new in-memory content repository
func New[E realtycms.Extra]() *Repository[E] {
	return &Repository[E]{
		items:  make(map[uuid.UUID]*realtycms.Item[E]),
		bySlug: make(map[string]uuid.UUID),
		byPID:  make(map[string]uuid.UUID),
	}
}

// NewRepositories wires memory repositories for every kind, users and interests
func NewRepositories() realtycms.Repositories {
	return realtycms.Repositories{
		Properties:     New[realtycms.PropertyExtra](),
		Investments:    New[realtycms.InvestmentExtra](),
		WhatsNew:       New[realtycms.WhatsNewExtra](),
		BuilderReviews: New[realtycms.BuilderReviewExtra](),
		Users:          NewUserRepository(),
		Interests:      NewInterestRepository(),
	}
}

func (r *Repository[E]) Create(ctx context.Context, item *realtycms.Item[E]) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bySlug[item.SEO.Slug]; exists {
		return realtycms.ErrDuplicateSlug
	}
	if _, exists := r.byPID[item.PID]; exists {
		return realtycms.ErrDuplicatePID
	}

	// Store a copy to avoid external modifications
	r.items[item.ID] = item.Clone()
	r.bySlug[item.SEO.Slug] = item.ID
	r.byPID[item.PID] = item.ID
	return nil
}

func (r *Repository[E]) Get(ctx context.Context, id uuid.UUID) (*realtycms.Item[E], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.items[id]
	if !exists {
		return nil, realtycms.ErrItemNotFound
	}
	return item.Clone(), nil
}

func (r *Repository[E]) GetBySlug(ctx context.Context, slug string) (*realtycms.Item[E], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.bySlug[slug]
	if !exists {
		return nil, realtycms.ErrItemNotFound
	}
	return r.items[id].Clone(), nil
}

func (r *Repository[E]) Update(ctx context.Context, item *realtycms.Item[E]) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, exists := r.items[item.ID]
	if !exists {
		return realtycms.ErrItemNotFound
	}
	if old.SEO.Slug != item.SEO.Slug {
		if owner, taken := r.bySlug[item.SEO.Slug]; taken && owner != item.ID {
			return realtycms.ErrDuplicateSlug
		}
		delete(r.bySlug, old.SEO.Slug)
		r.bySlug[item.SEO.Slug] = item.ID
	}

	updated := item.Clone()
	// pid and creation time are immutable
	updated.PID = old.PID
	updated.CreatedAt = old.CreatedAt
	r.items[item.ID] = updated
	return nil
}

func (r *Repository[E]) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, exists := r.items[id]
	if !exists {
		return realtycms.ErrItemNotFound
	}
	delete(r.bySlug, item.SEO.Slug)
	delete(r.byPID, item.PID)
	delete(r.items, id)
	return nil
}

func (r *Repository[E]) List(ctx context.Context, filter realtycms.ListFilter) ([]*realtycms.Item[E], error) {
	matched := r.matching(filter)
	realtycms.SortItems(matched, filter.OrderBy)
	matched = realtycms.Page(matched, filter.Offset, filter.Limit)

	result := make([]*realtycms.Item[E], 0, len(matched))
	for _, item := range matched {
		result = append(result, item.Clone())
	}
	return result, nil
}

func (r *Repository[E]) Count(ctx context.Context, filter realtycms.ListFilter) (int, error) {
	return len(r.matching(filter)), nil
}

func (r *Repository[E]) SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owner, exists := r.bySlug[slug]
	return exists && owner != exclude, nil
}

func (r *Repository[E]) matching(filter realtycms.ListFilter) []*realtycms.Item[E] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*realtycms.Item[E]
	for _, item := range r.items {
		if realtycms.MatchesFilter(item, filter) {
			result = append(result, item)
		}
	}
	return result
}
