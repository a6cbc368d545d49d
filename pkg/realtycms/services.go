package realtycms

import "fmt"

// Repositories groups the persistence backends of every kind.
type Repositories struct {
	Properties     Repository[PropertyExtra]
	Investments    Repository[InvestmentExtra]
	WhatsNew       Repository[WhatsNewExtra]
	BuilderReviews Repository[BuilderReviewExtra]
	Users          UserRepository
	Interests      InterestRepository
}

// Services is the fully wired set of services behind the API.
type Services struct {
	Properties     *ContentService[PropertyExtra]
	Investments    *InvestmentService
	WhatsNew       *ContentService[WhatsNewExtra]
	BuilderReviews *ContentService[BuilderReviewExtra]
	Users          *UserService
	Search         *SearchService
	Images         *ImageService
}

// NewServices wires every service on top of repos. images may be nil, in
// which case only image URLs are accepted.
func NewServices(repos Repositories, images *ImageService, options ...Option) (*Services, error) {
	opts := append([]Option{WithUserRepository(repos.Users)}, options...)
	if images != nil {
		opts = append(opts, WithImageUploader(images))
	}

	properties, err := NewContentService(repos.Properties, opts...)
	if err != nil {
		return nil, fmt.Errorf("properties: %w", err)
	}
	investments, err := NewContentService(repos.Investments, opts...)
	if err != nil {
		return nil, fmt.Errorf("investments: %w", err)
	}
	whatsNew, err := NewContentService(repos.WhatsNew, opts...)
	if err != nil {
		return nil, fmt.Errorf("whats new: %w", err)
	}
	reviews, err := NewContentService(repos.BuilderReviews, opts...)
	if err != nil {
		return nil, fmt.Errorf("builder reviews: %w", err)
	}
	investmentSvc, err := NewInvestmentService(investments, repos.Interests)
	if err != nil {
		return nil, fmt.Errorf("investments: %w", err)
	}
	users, err := NewUserService(repos.Users)
	if err != nil {
		return nil, err
	}

	return &Services{
		Properties:     properties,
		Investments:    investmentSvc,
		WhatsNew:       whatsNew,
		BuilderReviews: reviews,
		Users:          users,
		Search:         NewSearchService(properties, investments, whatsNew, reviews),
		Images:         images,
	}, nil
}

// Catalogs returns the read views of every kind in API order.
func (s *Services) Catalogs() []Catalog {
	return []Catalog{s.Properties, s.Investments, s.WhatsNew, s.BuilderReviews}
}
