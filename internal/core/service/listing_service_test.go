package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-app/marketplace/internal/core/domain"
	"github.com/nexus-app/marketplace/internal/core/ports"
	"github.com/nexus-app/marketplace/internal/pkg/clock"
)

func newListingFixture() (*ListingService, *stubListingRepo, *clock.Manual) {
	repo := newStubListingRepo()
	clk := clock.NewManual(testStart)
	return NewListingService(repo, clk, fastPolicy, zerolog.Nop()), repo, clk
}

func acmeAccount() *domain.BusinessAccount {
	return &domain.BusinessAccount{
		AccountBase: domain.AccountBase{ID: "acc-acme", Username: "acme"},
		ABN:         "51824753556",
	}
}

func alexAccount(trade domain.Trade) *domain.ServiceProviderAccount {
	return &domain.ServiceProviderAccount{
		AccountBase: domain.AccountBase{ID: "acc-alex", Username: "alex"},
		FirstName:   "Alex",
		Trade:       trade,
	}
}

func postJob(t *testing.T, svc *ListingService, tags ...string) *domain.JobListing {
	t.Helper()
	l, err := svc.CreateListing(context.Background(), acmeAccount(), ports.CreateListingInput{
		Kind:        "JOB",
		Title:       "Fix leaking pipe",
		Location:    "Sydney",
		RequiredAt:  testStart.Add(48 * time.Hour),
		Tags:        tags,
		RatePerHour: 60,
	})
	require.NoError(t, err)
	job, ok := l.(*domain.JobListing)
	require.True(t, ok)
	return job
}

func TestListingService_CreateJobNormalizesTags(t *testing.T) {
	svc, repo, _ := newListingFixture()

	job := postJob(t, svc, "plumber", " PLUMBER ", "urgent", "")

	require.Len(t, job.Tags, 2)
	assert.Equal(t, "PLUMBER", job.Tags[0].Name)
	assert.Equal(t, "URGENT", job.Tags[1].Name)
	assert.Equal(t, "tag-PLUMBER", job.Tags[0].ID)
	assert.Equal(t, "acc-acme", job.CreatedBy)
	assert.Equal(t, testStart, job.CreatedAt)
	assert.Len(t, repo.listings, 1)
}

func TestListingService_OnlyBusinessesPostJobs(t *testing.T) {
	svc, repo, _ := newListingFixture()

	_, err := svc.CreateListing(context.Background(), alexAccount(domain.TradePlumber), ports.CreateListingInput{
		Kind:  "JOB",
		Title: "Need a hand",
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Empty(t, repo.listings)
}

func TestListingService_ProviderCanPostProduct(t *testing.T) {
	svc, _, _ := newListingFixture()

	l, err := svc.CreateListing(context.Background(), alexAccount(domain.TradeChef), ports.CreateListingInput{
		Kind:     "PRODUCT",
		Title:    "Chef knives",
		Price:    120.5,
		Quantity: 3,
	})
	require.NoError(t, err)
	product, ok := l.(*domain.ProductListing)
	require.True(t, ok)
	assert.Equal(t, 3, product.Quantity)
}

func TestListingService_CreateValidation(t *testing.T) {
	svc, _, _ := newListingFixture()
	ctx := context.Background()

	_, err := svc.CreateListing(ctx, acmeAccount(), ports.CreateListingInput{Kind: "SERVICE", Title: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidListing)

	_, err = svc.CreateListing(ctx, acmeAccount(), ports.CreateListingInput{Kind: "JOB", Title: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidListing)

	_, err = svc.CreateListing(ctx, acmeAccount(), ports.CreateListingInput{Kind: "PRODUCT", Title: "x", Price: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidListing)
}

func TestListingService_ApplyIsIdempotent(t *testing.T) {
	svc, repo, _ := newListingFixture()
	ctx := context.Background()
	job := postJob(t, svc, "PLUMBER")
	alex := alexAccount(domain.TradePlumber)

	first, err := svc.AddApplicant(ctx, job, alex)
	require.NoError(t, err)
	assert.Equal(t, "acc-alex", first.ApplicantID)
	assert.Len(t, job.Applications, 1)

	again, err := svc.AddApplicant(ctx, job, alex)
	assert.ErrorIs(t, err, domain.ErrAlreadyApplied)
	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, job.Applications, 1)
	assert.Len(t, repo.applications, 1)
}

func TestListingService_ApplyByIDLoadsListing(t *testing.T) {
	svc, _, _ := newListingFixture()
	ctx := context.Background()
	job := postJob(t, svc, "PLUMBER")

	_, err := svc.Apply(ctx, job.ID, alexAccount(domain.TradePlumber))
	require.NoError(t, err)

	loaded, err := svc.GetListing(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.(*domain.JobListing).Applications, 1)

	_, err = svc.Apply(ctx, job.ID, alexAccount(domain.TradePlumber))
	assert.ErrorIs(t, err, domain.ErrAlreadyApplied)
}

func TestListingService_ApplyIneligibleTrade(t *testing.T) {
	svc, repo, _ := newListingFixture()
	job := postJob(t, svc, "ELECTRICIAN")

	assert.False(t, svc.CanApply(job, alexAccount(domain.TradePlumber)))
	_, err := svc.AddApplicant(context.Background(), job, alexAccount(domain.TradePlumber))
	assert.ErrorIs(t, err, domain.ErrNotEligible)
	assert.Empty(t, repo.applications)
}

func TestListingService_BusinessNeverApplies(t *testing.T) {
	svc, repo, _ := newListingFixture()
	job := postJob(t, svc, "PLUMBER", "BUSINESS")

	_, err := svc.AddApplicant(context.Background(), job, acmeAccount())
	assert.ErrorIs(t, err, domain.ErrWrongAccountKind)
	assert.Empty(t, repo.applications)
	assert.Empty(t, job.Applications)
}

func TestListingService_ApplyToProduct(t *testing.T) {
	svc, _, _ := newListingFixture()
	ctx := context.Background()
	l, err := svc.CreateListing(ctx, acmeAccount(), ports.CreateListingInput{Kind: "PRODUCT", Title: "Pipes", Tags: []string{"PLUMBER"}})
	require.NoError(t, err)

	_, err = svc.Apply(ctx, l.Header().ID, alexAccount(domain.TradePlumber))
	assert.ErrorIs(t, err, domain.ErrNotJobListing)
}

func TestListingService_ApplicationsOrderedAndOwnerOnly(t *testing.T) {
	svc, _, clk := newListingFixture()
	ctx := context.Background()
	job := postJob(t, svc, "PLUMBER")

	first := alexAccount(domain.TradePlumber)
	second := alexAccount(domain.TradePlumber)
	second.ID = "acc-sam"
	_, err := svc.AddApplicant(ctx, job, first)
	require.NoError(t, err)
	clk.Advance(time.Minute)
	_, err = svc.AddApplicant(ctx, job, second)
	require.NoError(t, err)

	apps, err := svc.ListApplications(ctx, acmeAccount(), job.ID)
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "acc-alex", apps[0].ApplicantID)
	assert.Equal(t, "acc-sam", apps[1].ApplicantID)
	assert.True(t, apps[0].AppliedAt.Before(apps[1].AppliedAt))

	_, err = svc.ListApplications(ctx, first, job.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestListingService_DeleteCascadesAndChecksOwner(t *testing.T) {
	svc, repo, _ := newListingFixture()
	ctx := context.Background()
	job := postJob(t, svc, "PLUMBER")
	_, err := svc.AddApplicant(ctx, job, alexAccount(domain.TradePlumber))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteListing(ctx, alexAccount(domain.TradePlumber), job.ID), domain.ErrForbidden)

	require.NoError(t, svc.DeleteListing(ctx, acmeAccount(), job.ID))
	assert.Empty(t, repo.listings)
	assert.Empty(t, repo.applications)

	_, err = svc.GetListing(ctx, job.ID)
	assert.ErrorIs(t, err, domain.ErrListingNotFound)
}

func TestListingService_ApplyAfterDeleteLeavesNoApplication(t *testing.T) {
	svc, repo, _ := newListingFixture()
	ctx := context.Background()
	job := postJob(t, svc, "PLUMBER")

	// job was loaded before the owner deleted it.
	require.NoError(t, svc.DeleteListing(ctx, acmeAccount(), job.ID))

	_, err := svc.AddApplicant(ctx, job, alexAccount(domain.TradePlumber))
	assert.ErrorIs(t, err, domain.ErrListingNotFound)
	assert.Empty(t, repo.applications)
	assert.Empty(t, job.Applications)
}

func TestListingService_ListFiltersAndLimits(t *testing.T) {
	svc, _, _ := newListingFixture()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		postJob(t, svc, "PLUMBER")
	}
	postJob(t, svc, "CHEF")

	all, err := svc.ListListings(ctx, ports.ListListingsFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	plumbing, err := svc.ListListings(ctx, ports.ListListingsFilter{Tag: "plumber"})
	require.NoError(t, err)
	assert.Len(t, plumbing, 3)

	limited, err := svc.ListListings(ctx, ports.ListListingsFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	products, err := svc.ListListings(ctx, ports.ListListingsFilter{Kind: domain.ListingProduct})
	require.NoError(t, err)
	assert.Empty(t, products)
}
