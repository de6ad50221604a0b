package ports

import (
	"context"
	"time"

	"github.com/nexus-app/marketplace/internal/core/domain"
)

// CreateListingInput carries the data needed to post a listing. Job-only and
// product-only fields are ignored for the other kind.
type CreateListingInput struct {
	Kind        string
	Title       string
	Description string
	Location    string
	RequiredAt  time.Time
	Tags        []string

	RatePerHour int

	Price    float64
	Quantity int
}

// ListingService holds the listing and application use cases.
type ListingService interface {
	CreateListing(ctx context.Context, owner domain.Account, in CreateListingInput) (domain.Listing, error)
	GetListing(ctx context.Context, id string) (domain.Listing, error)
	ListListings(ctx context.Context, filter ListListingsFilter) ([]domain.Listing, error)
	DeleteListing(ctx context.Context, requester domain.Account, id string) error

	CanApply(job *domain.JobListing, candidate domain.Account) bool
	AddApplicant(ctx context.Context, job *domain.JobListing, candidate domain.Account) (*domain.Application, error)
	// Apply loads the listing by id and runs AddApplicant against it.
	Apply(ctx context.Context, listingID string, candidate domain.Account) (*domain.Application, error)
	ListApplications(ctx context.Context, requester domain.Account, listingID string) ([]domain.Application, error)
}
