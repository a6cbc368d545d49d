package realtycms

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// InvestmentService adds the interest set to the investment content service.
type InvestmentService struct {
	*ContentService[InvestmentExtra]
	interests InterestRepository
}

// NewInvestmentService wraps an investment content service.
func NewInvestmentService(content *ContentService[InvestmentExtra], interests InterestRepository) (*InvestmentService, error) {
	if content == nil {
		return nil, fmt.Errorf("content service is required")
	}
	if interests == nil {
		return nil, fmt.Errorf("interest repository is required")
	}
	return &InvestmentService{ContentService: content, interests: interests}, nil
}

// Create stores a new investment. Its interest set starts empty.
func (s *InvestmentService) Create(ctx context.Context, req CreateRequest[InvestmentExtra], actingUsername string) (*Item[InvestmentExtra], error) {
	item, err := s.ContentService.Create(ctx, req, actingUsername)
	return s.withInterest(ctx, "create", item, err)
}

// Get returns an investment with author and interested users populated.
func (s *InvestmentService) Get(ctx context.Context, id uuid.UUID) (*Item[InvestmentExtra], error) {
	item, err := s.ContentService.Get(ctx, id)
	return s.withInterest(ctx, "get", item, err)
}

// GetBySlug returns an investment with its interest set and the top
// investments for the sidebar.
func (s *InvestmentService) GetBySlug(ctx context.Context, slug string) (*Item[InvestmentExtra], []*Item[InvestmentExtra], error) {
	item, top, err := s.ContentService.GetBySlug(ctx, slug)
	item, err = s.withInterest(ctx, "get_by_slug", item, err)
	if err != nil {
		return nil, nil, err
	}
	return item, top, nil
}

// Update replaces the provided core fields of an investment.
func (s *InvestmentService) Update(ctx context.Context, id uuid.UUID, req UpdateRequest[InvestmentExtra], actingUsername string) (*Item[InvestmentExtra], error) {
	item, err := s.ContentService.Update(ctx, id, req, actingUsername)
	return s.withInterest(ctx, "update", item, err)
}

// UpdateSEO merges SEO fields into an investment.
func (s *InvestmentService) UpdateSEO(ctx context.Context, id uuid.UUID, in SeoOverride, actingUsername string) (*Item[InvestmentExtra], error) {
	item, err := s.ContentService.UpdateSEO(ctx, id, in, actingUsername)
	return s.withInterest(ctx, "update_seo", item, err)
}

// ToggleTop flips the top flag of an investment.
func (s *InvestmentService) ToggleTop(ctx context.Context, id uuid.UUID, actingUsername string) (*Item[InvestmentExtra], error) {
	item, err := s.ContentService.ToggleTop(ctx, id, actingUsername)
	return s.withInterest(ctx, "toggle_top", item, err)
}

// ExpressInterest records that username is interested in the investment. A
// second call for the same pair fails with ErrConflict.
func (s *InvestmentService) ExpressInterest(ctx context.Context, id uuid.UUID, username string) (*Item[InvestmentExtra], error) {
	const op = "express_interest"
	if username == "" {
		return nil, newError(KindInvestment, op, ErrValidation, "userId is required")
	}
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newError(KindInvestment, op, err, "User not found")
		}
		return nil, newError(KindInvestment, op, err, "")
	}
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.lookupError(op, err)
	}

	if err := s.interests.AddInterest(ctx, item.ID, user.ID); err != nil {
		if errors.Is(err, ErrDuplicateInterest) {
			return nil, newError(KindInvestment, op, err, "User already expressed interest")
		}
		return nil, newError(KindInvestment, op, err, "")
	}
	if err := s.attachInterest(ctx, item); err != nil {
		return nil, newError(KindInvestment, op, err, "")
	}
	logSinkError(ctx, KindInvestment, op, s.eventSink.ContentUpdated(ctx, KindInvestment, item.ID, op))
	return item, nil
}

func (s *InvestmentService) withInterest(ctx context.Context, op string, item *Item[InvestmentExtra], err error) (*Item[InvestmentExtra], error) {
	if err != nil {
		return nil, err
	}
	if err := s.attachInterest(ctx, item); err != nil {
		return nil, newError(KindInvestment, op, err, "")
	}
	return item, nil
}

// attachInterest loads the interest set, which is stored apart from the item.
func (s *InvestmentService) attachInterest(ctx context.Context, item *Item[InvestmentExtra]) error {
	users, err := s.interests.ListInterested(ctx, item.ID)
	if err != nil {
		return err
	}
	if users == nil {
		users = []uuid.UUID{}
	}
	item.Extra.InterestedUsers = users
	return nil
}
