package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nexus-app/marketplace/internal/core/domain"
	"github.com/nexus-app/marketplace/internal/core/ports"
	"github.com/nexus-app/marketplace/internal/pkg/clock"
	"github.com/nexus-app/marketplace/internal/pkg/retry"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type ListingService struct {
	repo   ports.ListingRepository
	clock  clock.Clock
	retry  retry.Policy
	logger zerolog.Logger
}

func NewListingService(repo ports.ListingRepository, clk clock.Clock, policy retry.Policy, logger zerolog.Logger) *ListingService {
	if clk == nil {
		clk = clock.System{}
	}
	return &ListingService{repo: repo, clock: clk, retry: policy, logger: logger}
}

// CreateListing posts a listing owned by owner. Only businesses may post jobs.
func (s *ListingService) CreateListing(ctx context.Context, owner domain.Account, in ports.CreateListingInput) (domain.Listing, error) {
	if owner == nil {
		return nil, domain.ErrForbidden
	}
	kind, err := domain.ParseListingKind(in.Kind)
	if err != nil {
		return nil, err
	}
	if kind == domain.ListingJob && owner.Kind() != domain.KindBusiness {
		return nil, domain.ErrForbidden
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidListing)
	}

	now := s.clock.Now().UTC()
	base := domain.ListingBase{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Location:    in.Location,
		RequiredAt:  in.RequiredAt.UTC(),
		CreatedBy:   owner.Identity().ID,
		CreatedAt:   now,
		Tags:        normalizeTags(in.Tags),
	}

	var listing domain.Listing
	switch kind {
	case domain.ListingJob:
		if in.RatePerHour < 0 {
			return nil, fmt.Errorf("%w: rate per hour must not be negative", domain.ErrInvalidListing)
		}
		listing = &domain.JobListing{ListingBase: base, RatePerHour: in.RatePerHour}
	case domain.ListingProduct:
		if in.Price < 0 || in.Quantity < 0 {
			return nil, fmt.Errorf("%w: price and quantity must not be negative", domain.ErrInvalidListing)
		}
		listing = &domain.ProductListing{ListingBase: base, Price: in.Price, Quantity: in.Quantity}
	}

	err = withStorageRetry(ctx, s.retry, s.logger, "listing.create", func(ctx context.Context) error {
		return s.repo.Create(ctx, listing)
	})
	if err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}

	s.logger.Info().Str("listing_id", base.ID).Str("kind", string(kind)).Str("created_by", base.CreatedBy).Msg("listing created")
	return listing, nil
}

// normalizeTags upper-cases, trims and de-duplicates tag names, keeping first-seen order.
func normalizeTags(names []string) []domain.Tag {
	seen := make(map[string]struct{}, len(names))
	tags := make([]domain.Tag, 0, len(names))
	for _, n := range names {
		name := domain.NormalizeTagName(n)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		tags = append(tags, domain.Tag{Name: name})
	}
	return tags
}

func (s *ListingService) GetListing(ctx context.Context, id string) (domain.Listing, error) {
	var listing domain.Listing
	err := withStorageRetry(ctx, s.retry, s.logger, "listing.find", func(ctx context.Context) error {
		var err error
		listing, err = s.repo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

func (s *ListingService) ListListings(ctx context.Context, filter ports.ListListingsFilter) ([]domain.Listing, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultListLimit
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}
	if filter.Tag != "" {
		filter.Tag = domain.NormalizeTagName(filter.Tag)
	}

	var listings []domain.Listing
	err := withStorageRetry(ctx, s.retry, s.logger, "listing.list", func(ctx context.Context) error {
		var err error
		listings, err = s.repo.List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// DeleteListing removes a listing and its applications. Only the owner may delete.
func (s *ListingService) DeleteListing(ctx context.Context, requester domain.Account, id string) error {
	listing, err := s.GetListing(ctx, id)
	if err != nil {
		return err
	}
	if requester == nil || listing.Header().CreatedBy != requester.Identity().ID {
		return domain.ErrForbidden
	}

	err = withStorageRetry(ctx, s.retry, s.logger, "listing.delete", func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	s.logger.Info().Str("listing_id", id).Msg("listing deleted")
	return nil
}

func (s *ListingService) CanApply(job *domain.JobListing, candidate domain.Account) bool {
	return domain.CanApply(job, candidate)
}

// AddApplicant records candidate's application to job. Applying twice is a
// no-op that reports domain.ErrAlreadyApplied; the listing keeps one entry.
func (s *ListingService) AddApplicant(ctx context.Context, job *domain.JobListing, candidate domain.Account) (*domain.Application, error) {
	if job == nil {
		return nil, domain.ErrListingNotFound
	}
	if _, ok := candidate.(*domain.ServiceProviderAccount); !ok {
		return nil, domain.ErrWrongAccountKind
	}
	if !domain.CanApply(job, candidate) {
		return nil, domain.ErrNotEligible
	}

	applicantID := candidate.Identity().ID
	var existing *domain.Application
	err := withStorageRetry(ctx, s.retry, s.logger, "application.find", func(ctx context.Context) error {
		var err error
		existing, err = s.repo.FindApplication(ctx, applicantID, job.ID)
		return err
	})
	switch {
	case err == nil && existing != nil:
		return existing, domain.ErrAlreadyApplied
	case err != nil && !errors.Is(err, domain.ErrApplicationNotFound):
		return nil, fmt.Errorf("add applicant: %w", err)
	}

	app := &domain.Application{
		ID:          uuid.NewString(),
		ApplicantID: applicantID,
		ListingID:   job.ID,
		AppliedAt:   s.clock.Now().UTC(),
	}
	err = withStorageRetry(ctx, s.retry, s.logger, "application.insert", func(ctx context.Context) error {
		return s.repo.InsertApplication(ctx, app)
	})
	if errors.Is(err, domain.ErrConflict) {
		return nil, domain.ErrAlreadyApplied
	}
	if err != nil {
		return nil, fmt.Errorf("add applicant: %w", err)
	}

	job.Applications = append(job.Applications, *app)
	s.logger.Info().Str("listing_id", job.ID).Str("applicant_id", applicantID).Msg("application recorded")
	return app, nil
}

func (s *ListingService) Apply(ctx context.Context, listingID string, candidate domain.Account) (*domain.Application, error) {
	listing, err := s.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	job, ok := listing.(*domain.JobListing)
	if !ok {
		return nil, domain.ErrNotJobListing
	}
	return s.AddApplicant(ctx, job, candidate)
}

// ListApplications returns a job's applications in application order. Only
// the listing owner may see them.
func (s *ListingService) ListApplications(ctx context.Context, requester domain.Account, listingID string) ([]domain.Application, error) {
	listing, err := s.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if _, ok := listing.(*domain.JobListing); !ok {
		return nil, domain.ErrNotJobListing
	}
	if requester == nil || listing.Header().CreatedBy != requester.Identity().ID {
		return nil, domain.ErrForbidden
	}

	var apps []domain.Application
	err = withStorageRetry(ctx, s.retry, s.logger, "application.list", func(ctx context.Context) error {
		var err error
		apps, err = s.repo.ListApplications(ctx, listingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return apps, nil
}
