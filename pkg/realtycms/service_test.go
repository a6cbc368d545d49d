package realtycms_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/indrealty/realty-cms/pkg/realtycms"
	repomemory "github.com/indrealty/realty-cms/pkg/realtycms/repo/memory"
	memorystorage "github.com/indrealty/realty-cms/pkg/realtycms/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("DerivesSlugAndSEO", func(t *testing.T) {
		item, err := f.svc.Properties.Create(ctx, propertyRequest("Luxury Villas in Goa"), "admin")
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, item.ID)
		assert.NotEmpty(t, item.PID)
		assert.Equal(t, "luxury-villas-in-goa", item.SEO.Slug)
		assert.Equal(t, testBaseURL+"/properties/luxury-villas-in-goa", item.SEO.CanonicalURL)
		assert.Contains(t, item.SEO.Keywords, "real estate news in Goa")
		assert.Equal(t, f.admin.ID, item.AuthorID)
		require.NotNil(t, item.Author)
		assert.Equal(t, "admin", item.Author.Username)
	})

	t.Run("DuplicateSlugIsConflict", func(t *testing.T) {
		_, err := f.svc.Properties.Create(ctx, propertyRequest("Duplicate Title"), "admin")
		require.NoError(t, err)

		_, err = f.svc.Properties.Create(ctx, propertyRequest("Duplicate Title"), "admin")
		assert.ErrorIs(t, err, realtycms.ErrConflict)
		assert.Equal(t, "Slug already exists. Please modify the title or provide a custom slug.", realtycms.Message(err))
	})

	t.Run("SameSlugAcrossKinds", func(t *testing.T) {
		_, err := f.svc.Investments.Create(ctx, investmentRequest("Duplicate Title"), "admin")
		assert.NoError(t, err)
	})

	t.Run("CustomSlug", func(t *testing.T) {
		req := propertyRequest("Custom slug property")
		req.SEO = &realtycms.SeoOverride{Slug: "my-custom-slug", MetaTitle: "Mine"}
		item, err := f.svc.Properties.Create(ctx, req, "admin")
		require.NoError(t, err)
		assert.Equal(t, "my-custom-slug", item.SEO.Slug)
		assert.Equal(t, "Mine", item.SEO.MetaTitle)
		assert.Equal(t, testBaseURL+"/properties/my-custom-slug", item.SEO.CanonicalURL)
	})

	t.Run("RequiresAdmin", func(t *testing.T) {
		for _, username := range []string{"", "reader", "ghost"} {
			_, err := f.svc.Properties.Create(ctx, propertyRequest("Forbidden "+username), username)
			assert.ErrorIs(t, err, realtycms.ErrForbidden, username)
			assert.Equal(t, "Admin access required", realtycms.Message(err))
		}
	})

	t.Run("RequiresImage", func(t *testing.T) {
		req := propertyRequest("No image")
		req.ImageURL = ""
		_, err := f.svc.Properties.Create(ctx, req, "admin")
		assert.ErrorIs(t, err, realtycms.ErrValidation)
		assert.Equal(t, "Either image file or imageUrl is required", realtycms.Message(err))
	})

	t.Run("RequiresFields", func(t *testing.T) {
		req := propertyRequest("Missing locations")
		req.Locations = nil
		_, err := f.svc.Properties.Create(ctx, req, "admin")
		assert.ErrorIs(t, err, realtycms.ErrValidation)
		assert.Equal(t, "locations must contain at least one entry", realtycms.Message(err))

		req = propertyRequest("Missing summary")
		req.Summary = ""
		_, err = f.svc.Properties.Create(ctx, req, "admin")
		assert.Equal(t, "summary is required", realtycms.Message(err))
	})

	t.Run("EmptySlugRejected", func(t *testing.T) {
		_, err := f.svc.Properties.Create(ctx, propertyRequest("!!!"), "admin")
		assert.ErrorIs(t, err, realtycms.ErrEmptySlug)
	})

	t.Run("BuilderReviewRating", func(t *testing.T) {
		_, err := f.svc.BuilderReviews.Create(ctx, reviewRequest("Too good", "Acme", 6), "admin")
		assert.ErrorIs(t, err, realtycms.ErrValidation)

		_, err = f.svc.BuilderReviews.Create(ctx, reviewRequest("No builder", "", 4), "admin")
		assert.ErrorIs(t, err, realtycms.ErrValidation)

		item, err := f.svc.BuilderReviews.Create(ctx, reviewRequest("Just right", "Acme", 4.5), "admin")
		require.NoError(t, err)
		assert.Equal(t, "Acme Review | Just right | IndRealty", item.SEO.MetaTitle)
	})

	t.Run("UploadsImage", func(t *testing.T) {
		req := propertyRequest("With upload")
		req.ImageURL = ""
		req.Image = &realtycms.ImageUpload{
			Reader:      bytes.NewReader([]byte("fake png")),
			FileName:    "front.png",
			ContentType: "image/png",
			Size:        8,
		}
		item, err := f.svc.Properties.Create(ctx, req, "admin")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(item.ImageURL, "/public/images/properties/"), item.ImageURL)
		assert.Equal(t, item.ImageURL, item.SEO.OgImage)
	})
}

func TestContentService_Reads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var created []*realtycms.Item[realtycms.PropertyExtra]
	for i := range 7 {
		req := propertyRequest(fmt.Sprintf("Listing %d", i))
		req.IsTop = true
		item, err := f.svc.Properties.Create(ctx, req, "admin")
		require.NoError(t, err)
		created = append(created, item)
	}

	t.Run("GetBySlugWithTopPosts", func(t *testing.T) {
		item, top, err := f.svc.Properties.GetBySlug(ctx, "listing-6")
		require.NoError(t, err)
		assert.Equal(t, created[6].ID, item.ID)
		assert.Len(t, top, 5)
		for _, p := range top {
			assert.NotEqual(t, item.ID, p.ID)
			assert.True(t, p.IsTop)
		}
		assert.Equal(t, "Listing 5", top[0].Title)
	})

	t.Run("GetBySlugNotFound", func(t *testing.T) {
		_, _, err := f.svc.Properties.GetBySlug(ctx, "nope")
		assert.ErrorIs(t, err, realtycms.ErrNotFound)
		assert.Equal(t, "Property not found", realtycms.Message(err))
	})

	t.Run("Pagination", func(t *testing.T) {
		page, err := f.svc.Properties.List(ctx, realtycms.ListQuery{Page: 1})
		require.NoError(t, err)
		assert.Len(t, page.Items, realtycms.DefaultPageSize)
		assert.Equal(t, 7, page.Total)
		assert.Equal(t, 2, page.Pages)
		assert.True(t, page.HasNext)
		assert.Equal(t, "Listing 6", page.Items[0].Title)

		page, err = f.svc.Properties.List(ctx, realtycms.ListQuery{Page: 2})
		require.NoError(t, err)
		assert.Len(t, page.Items, 3)
		assert.False(t, page.HasNext)
	})

	t.Run("SearchAndCategory", func(t *testing.T) {
		res, err := f.svc.Properties.List(ctx, realtycms.ListQuery{Search: "GOA"})
		require.NoError(t, err)
		assert.Len(t, res.Items, 7)

		res, err = f.svc.Properties.List(ctx, realtycms.ListQuery{Search: "listing 3"})
		require.NoError(t, err)
		require.Len(t, res.Items, 1)

		res, err = f.svc.Properties.List(ctx, realtycms.ListQuery{Category: "all"})
		require.NoError(t, err)
		assert.Len(t, res.Items, 7)

		res, err = f.svc.Properties.List(ctx, realtycms.ListQuery{Category: "Commercial"})
		require.NoError(t, err)
		assert.Empty(t, res.Items)
	})

	t.Run("Top", func(t *testing.T) {
		top, err := f.svc.Properties.Top(ctx)
		require.NoError(t, err)
		assert.Len(t, top, 5)
	})
}

func TestContentService_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.svc.Properties.Create(ctx, propertyRequest("Original title"), "admin")
	require.NoError(t, err)

	t.Run("NonAdminForbidden", func(t *testing.T) {
		title := "Hijacked"
		_, err := f.svc.Properties.Update(ctx, item.ID, realtycms.UpdateRequest[realtycms.PropertyExtra]{Title: &title}, "reader")
		assert.ErrorIs(t, err, realtycms.ErrForbidden)
		assert.Equal(t, "Only admin users can update properties", realtycms.Message(err))
	})

	t.Run("KeepsSlugAndSEO", func(t *testing.T) {
		title := "New title"
		updated, err := f.svc.Properties.Update(ctx, item.ID, realtycms.UpdateRequest[realtycms.PropertyExtra]{
			Title:     &title,
			Locations: []string{"Panaji"},
		}, "admin")
		require.NoError(t, err)
		assert.Equal(t, "New title", updated.Title)
		assert.Equal(t, []string{"Panaji"}, updated.Locations)
		assert.Equal(t, item.SEO, updated.SEO)
		assert.True(t, updated.UpdatedAt.After(item.UpdatedAt))
	})

	t.Run("RejectsEmptyLocations", func(t *testing.T) {
		_, err := f.svc.Properties.Update(ctx, item.ID, realtycms.UpdateRequest[realtycms.PropertyExtra]{Locations: []string{}}, "admin")
		assert.ErrorIs(t, err, realtycms.ErrValidation)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := f.svc.Properties.Update(ctx, uuid.New(), realtycms.UpdateRequest[realtycms.PropertyExtra]{}, "admin")
		assert.ErrorIs(t, err, realtycms.ErrNotFound)
	})

	t.Run("PatchExtra", func(t *testing.T) {
		review, err := f.svc.BuilderReviews.Create(ctx, reviewRequest("Patched", "Acme", 3), "admin")
		require.NoError(t, err)
		updated, err := f.svc.BuilderReviews.Update(ctx, review.ID, realtycms.UpdateRequest[realtycms.BuilderReviewExtra]{
			PatchExtra: func(e *realtycms.BuilderReviewExtra) { e.Rating = 4 },
		}, "admin")
		require.NoError(t, err)
		assert.Equal(t, 4.0, updated.Extra.Rating)
		assert.Equal(t, "Acme", updated.Extra.BuilderName)
	})
}

func TestContentService_UpdateSEO(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.WhatsNew.Create(ctx, realtycms.CreateRequest[realtycms.WhatsNewExtra]{
		Title: "Metro line opens", Summary: "s", Description: "d", ImageURL: "u",
		Locations: []string{"Mumbai"}, Categories: []string{"Infrastructure"},
	}, "admin")
	require.NoError(t, err)
	b, err := f.svc.WhatsNew.Create(ctx, realtycms.CreateRequest[realtycms.WhatsNewExtra]{
		Title: "Airport expansion", Summary: "s", Description: "d", ImageURL: "u",
		Locations: []string{"Mumbai"}, Categories: []string{"Infrastructure"},
	}, "admin")
	require.NoError(t, err)

	t.Run("MergesFields", func(t *testing.T) {
		updated, err := f.svc.WhatsNew.UpdateSEO(ctx, a.ID, realtycms.SeoOverride{MetaTitle: "Metro!"}, "admin")
		require.NoError(t, err)
		assert.Equal(t, "Metro!", updated.SEO.MetaTitle)
		assert.Equal(t, a.SEO.MetaDescription, updated.SEO.MetaDescription)
		assert.Equal(t, a.SEO.Keywords, updated.SEO.Keywords)
	})

	t.Run("SlugChangeMovesCanonical", func(t *testing.T) {
		updated, err := f.svc.WhatsNew.UpdateSEO(ctx, a.ID, realtycms.SeoOverride{Slug: "metro-line-3"}, "admin")
		require.NoError(t, err)
		assert.Equal(t, "metro-line-3", updated.SEO.Slug)
		assert.Equal(t, testBaseURL+"/whats-new/metro-line-3", updated.SEO.CanonicalURL)

		got, _, err := f.svc.WhatsNew.GetBySlug(ctx, "metro-line-3")
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
	})

	t.Run("SlugTaken", func(t *testing.T) {
		_, err := f.svc.WhatsNew.UpdateSEO(ctx, b.ID, realtycms.SeoOverride{Slug: "metro-line-3"}, "admin")
		assert.ErrorIs(t, err, realtycms.ErrConflict)
		assert.Equal(t, "Slug already exists", realtycms.Message(err))
	})

	t.Run("InvalidSlug", func(t *testing.T) {
		_, err := f.svc.WhatsNew.UpdateSEO(ctx, b.ID, realtycms.SeoOverride{Slug: "Bad Slug"}, "admin")
		assert.ErrorIs(t, err, realtycms.ErrInvalidSlug)
	})

	t.Run("Forbidden", func(t *testing.T) {
		_, err := f.svc.WhatsNew.UpdateSEO(ctx, b.ID, realtycms.SeoOverride{MetaTitle: "x"}, "reader")
		assert.ErrorIs(t, err, realtycms.ErrForbidden)
	})
}

func TestContentService_ToggleTopAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.svc.Investments.Create(ctx, investmentRequest("Toggle me"), "admin")
	require.NoError(t, err)
	require.False(t, item.IsTop)

	once, err := f.svc.Investments.ToggleTop(ctx, item.ID, "admin")
	require.NoError(t, err)
	assert.True(t, once.IsTop)

	twice, err := f.svc.Investments.ToggleTop(ctx, item.ID, "admin")
	require.NoError(t, err)
	assert.False(t, twice.IsTop)

	_, err = f.svc.Investments.ToggleTop(ctx, item.ID, "reader")
	assert.ErrorIs(t, err, realtycms.ErrForbidden)

	err = f.svc.Investments.Delete(ctx, item.ID, "reader")
	assert.ErrorIs(t, err, realtycms.ErrForbidden)
	assert.Equal(t, "Only admin users can delete investments", realtycms.Message(err))

	require.NoError(t, f.svc.Investments.Delete(ctx, item.ID, "admin"))
	_, err = f.svc.Investments.Get(ctx, item.ID)
	assert.ErrorIs(t, err, realtycms.ErrNotFound)
	assert.Equal(t, "Investment not found", realtycms.Message(err))

	err = f.svc.Investments.Delete(ctx, item.ID, "admin")
	assert.ErrorIs(t, err, realtycms.ErrNotFound)
}

func TestInvestmentService_ExpressInterest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.svc.Investments.Create(ctx, investmentRequest("Interesting plot"), "admin")
	require.NoError(t, err)

	got, err := f.svc.Investments.ExpressInterest(ctx, item.ID, "reader")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.user.ID}, got.Extra.InterestedUsers)

	_, err = f.svc.Investments.ExpressInterest(ctx, item.ID, "reader")
	assert.ErrorIs(t, err, realtycms.ErrConflict)
	assert.Equal(t, "User already expressed interest", realtycms.Message(err))

	_, err = f.svc.Investments.ExpressInterest(ctx, item.ID, "ghost")
	assert.ErrorIs(t, err, realtycms.ErrNotFound)
	assert.Equal(t, "User not found", realtycms.Message(err))

	_, err = f.svc.Investments.ExpressInterest(ctx, uuid.New(), "reader")
	assert.Equal(t, "Investment not found", realtycms.Message(err))

	fetched, err := f.svc.Investments.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, fetched.Extra.InterestedUsers, 1)
}

func TestInvestmentService_InterestOnEveryRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.svc.Investments.Create(ctx, investmentRequest("Warehouse fund"), "admin")
	require.NoError(t, err)
	assert.Empty(t, item.Extra.InterestedUsers)
	_, err = f.svc.Investments.ExpressInterest(ctx, item.ID, "reader")
	require.NoError(t, err)
	want := []uuid.UUID{f.user.ID}

	bySlug, _, err := f.svc.Investments.GetBySlug(ctx, item.SEO.Slug)
	require.NoError(t, err)
	assert.Equal(t, want, bySlug.Extra.InterestedUsers)

	title := "Warehouse fund II"
	updated, err := f.svc.Investments.Update(ctx, item.ID, realtycms.UpdateRequest[realtycms.InvestmentExtra]{Title: &title}, "admin")
	require.NoError(t, err)
	assert.Equal(t, want, updated.Extra.InterestedUsers)

	toggled, err := f.svc.Investments.ToggleTop(ctx, item.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, want, toggled.Extra.InterestedUsers)

	seo, err := f.svc.Investments.UpdateSEO(ctx, item.ID, realtycms.SeoOverride{MetaTitle: "Fund"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, want, seo.Extra.InterestedUsers)

	_, _, err = f.svc.Investments.GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, realtycms.ErrNotFound)
}

// recordingImages remembers the keys of every stored image.
type recordingImages struct {
	*realtycms.ImageService
	keys []string
}

func (r *recordingImages) UploadImage(ctx context.Context, folder string, upload realtycms.ImageUpload) (*realtycms.StoredImage, error) {
	stored, err := r.ImageService.UploadImage(ctx, folder, upload)
	if err == nil {
		r.keys = append(r.keys, stored.Key)
	}
	return stored, err
}

// failingSink rejects every event.
type failingSink struct{ calls int }

func (s *failingSink) ContentCreated(context.Context, realtycms.Kind, uuid.UUID, string) error {
	s.calls++
	return errors.New("sink offline")
}

func (s *failingSink) ContentUpdated(context.Context, realtycms.Kind, uuid.UUID, string) error {
	s.calls++
	return errors.New("sink offline")
}

func (s *failingSink) ContentDeleted(context.Context, realtycms.Kind, uuid.UUID) error {
	s.calls++
	return errors.New("sink offline")
}

func newPropertyService(t *testing.T, options ...realtycms.Option) *realtycms.ContentService[realtycms.PropertyExtra] {
	t.Helper()
	repos := repomemory.NewRepositories()
	users, err := realtycms.NewUserService(repos.Users)
	require.NoError(t, err)
	_, err = users.CreateUser(context.Background(), realtycms.CreateUserRequest{
		RegisterUserRequest: realtycms.RegisterUserRequest{UID: "uid-admin", Email: "admin@example.org", Username: "admin"},
		IsAdmin:             true,
	})
	require.NoError(t, err)

	svc, err := realtycms.NewContentService(repos.Properties,
		append([]realtycms.Option{realtycms.WithUserRepository(repos.Users), realtycms.WithClock(tickingClock())}, options...)...)
	require.NoError(t, err)
	return svc
}

func TestContentService_CreateRemovesImageOfFailedInsert(t *testing.T) {
	ctx := context.Background()
	store := memorystorage.New()
	images, err := realtycms.NewImageService(store)
	require.NoError(t, err)
	recorder := &recordingImages{ImageService: images}
	svc := newPropertyService(t, realtycms.WithImageUploader(recorder))

	withUpload := func() realtycms.CreateRequest[realtycms.PropertyExtra] {
		req := propertyRequest("Sea View Plot")
		req.ImageURL = ""
		req.Image = &realtycms.ImageUpload{Reader: strings.NewReader("png"), FileName: "plot.png", ContentType: "image/png"}
		return req
	}

	_, err = svc.Create(ctx, withUpload(), "admin")
	require.NoError(t, err)
	_, err = svc.Create(ctx, withUpload(), "admin")
	require.ErrorIs(t, err, realtycms.ErrConflict)

	require.Len(t, recorder.keys, 2)
	_, err = store.GetObjectMeta(ctx, recorder.keys[0])
	assert.NoError(t, err, "image of the saved item stays")
	_, err = store.GetObjectMeta(ctx, recorder.keys[1])
	assert.ErrorIs(t, err, realtycms.ErrObjectNotFound)
}

func TestContentService_EventSinkFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	sink := &failingSink{}
	svc := newPropertyService(t, realtycms.WithEventSink(sink))

	item, err := svc.Create(ctx, propertyRequest("Hill Cottage"), "admin")
	require.NoError(t, err)
	title := "Hill Cottage Renovated"
	_, err = svc.Update(ctx, item.ID, realtycms.UpdateRequest[realtycms.PropertyExtra]{Title: &title}, "admin")
	require.NoError(t, err)
	_, err = svc.ToggleTop(ctx, item.ID, "admin")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, item.ID, "admin"))

	assert.Equal(t, 4, sink.calls)
	_, err = svc.Get(ctx, item.ID)
	assert.ErrorIs(t, err, realtycms.ErrNotFound)
}

func TestItem_MarshalJSON(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	review, err := f.svc.BuilderReviews.Create(ctx, reviewRequest("Json shape", "Acme", 4), "admin")
	require.NoError(t, err)

	raw, err := json.Marshal(review)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, review.ID.String(), fields["_id"])
	assert.Equal(t, "Acme", fields["builderName"])
	assert.Equal(t, 4.0, fields["rating"])
	assert.Equal(t, false, fields["isTopBuilderReview"])
	assert.NotContains(t, fields, "isTop")

	author, ok := fields["author"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "admin", author["username"])

	seo, ok := fields["seo"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json-shape", seo["slug"])
}
