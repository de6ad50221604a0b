package ports

import (
	"context"

	"github.com/nexus-app/marketplace/internal/core/domain"
)

// ListListingsFilter narrows a listing query. Zero values mean no filter.
type ListListingsFilter struct {
	Kind      domain.ListingKind
	Tag       string
	CreatedBy string
	Limit     int
}

// ListingRepository persists listings, their tags and job applications.
type ListingRepository interface {
	// Create stores the listing and upserts its tags in one transaction,
	// filling in the tag IDs.
	Create(ctx context.Context, l domain.Listing) error
	// FindByID returns the concrete variant; job listings carry their
	// applications ordered by application time.
	FindByID(ctx context.Context, id string) (domain.Listing, error)
	List(ctx context.Context, filter ListListingsFilter) ([]domain.Listing, error)
	// Delete removes the listing and, atomically, all of its applications.
	Delete(ctx context.Context, id string) error

	// InsertApplication reports a duplicate (applicant, listing) pair as *domain.ConflictError.
	InsertApplication(ctx context.Context, app *domain.Application) error
	// FindApplication returns domain.ErrApplicationNotFound when the pair has no application.
	FindApplication(ctx context.Context, applicantID, listingID string) (*domain.Application, error)
	ListApplications(ctx context.Context, listingID string) ([]domain.Application, error)
}
