package realtycms_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/indrealty/realty-cms/pkg/realtycms"
	repomemory "github.com/indrealty/realty-cms/pkg/realtycms/repo/memory"
	memorystorage "github.com/indrealty/realty-cms/pkg/realtycms/storage/memory"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://www.example.org"

// tickingClock returns a clock that advances one second per call so that
// creation order is observable.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

type fixture struct {
	svc   *realtycms.Services
	store *memorystorage.Backend
	admin *realtycms.User
	user  *realtycms.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memorystorage.New()
	images, err := realtycms.NewImageService(store)
	require.NoError(t, err)

	svc, err := realtycms.NewServices(repomemory.NewRepositories(), images,
		realtycms.WithBaseURL(testBaseURL),
		realtycms.WithClock(tickingClock()),
	)
	require.NoError(t, err)

	admin, err := svc.Users.CreateUser(ctx, realtycms.CreateUserRequest{
		RegisterUserRequest: realtycms.RegisterUserRequest{UID: "uid-admin", Email: "admin@example.org", Username: "admin"},
		IsAdmin:             true,
	})
	require.NoError(t, err)
	user, err := svc.Users.Register(ctx, realtycms.RegisterUserRequest{UID: "uid-user", Email: "user@example.org", Username: "reader"})
	require.NoError(t, err)

	return &fixture{svc: svc, store: store, admin: admin, user: user}
}

func propertyRequest(title string) realtycms.CreateRequest[realtycms.PropertyExtra] {
	return realtycms.CreateRequest[realtycms.PropertyExtra]{
		Title:       title,
		Summary:     "Summary of " + title,
		Description: "Description of " + title,
		ImageURL:    "https://img.example.org/" + realtycms.Slugify(title) + ".jpg",
		Locations:   []string{"Goa"},
		Categories:  []string{"Residential"},
	}
}

func investmentRequest(title string) realtycms.CreateRequest[realtycms.InvestmentExtra] {
	return realtycms.CreateRequest[realtycms.InvestmentExtra]{
		Title:       title,
		Summary:     "Summary of " + title,
		Description: "Description of " + title,
		ImageURL:    "https://img.example.org/inv.jpg",
		Locations:   []string{"Pune"},
		Categories:  []string{"Commercial"},
	}
}

func reviewRequest(title, builder string, rating float64) realtycms.CreateRequest[realtycms.BuilderReviewExtra] {
	return realtycms.CreateRequest[realtycms.BuilderReviewExtra]{
		Title:       title,
		Summary:     "Summary of " + title,
		Description: "Description of " + title,
		ImageURL:    "https://img.example.org/review.jpg",
		Locations:   []string{"Mumbai"},
		Categories:  []string{"Residential"},
		Extra:       realtycms.BuilderReviewExtra{BuilderName: builder, Rating: rating},
	}
}
