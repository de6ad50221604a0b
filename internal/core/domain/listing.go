package domain

import (
	"fmt"
	"strings"
	"time"
)

// ListingKind discriminates the Listing variants.
type ListingKind string

const (
	ListingJob     ListingKind = "JOB"
	ListingProduct ListingKind = "PRODUCT"
)

func ParseListingKind(s string) (ListingKind, error) {
	switch ListingKind(strings.ToUpper(strings.TrimSpace(s))) {
	case ListingJob:
		return ListingJob, nil
	case ListingProduct:
		return ListingProduct, nil
	}
	return "", fmt.Errorf("%w: unknown listing kind %q", ErrInvalidListing, s)
}

// Tag labels listings. Names are unique after normalization.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NormalizeTagName is the canonical form used for storage and matching.
func NormalizeTagName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Listing is a posted job or product. The set of variants is closed.
type Listing interface {
	Header() *ListingBase
	Kind() ListingKind
	sealedListing()
}

// ListingBase holds the fields shared by every listing variant.
type ListingBase struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	RequiredAt  time.Time `json:"required_at"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	Tags        []Tag     `json:"tags"`
}

func (b *ListingBase) Header() *ListingBase { return b }

// TagNames returns the normalized set of tag names on the listing.
func (b *ListingBase) TagNames() map[string]struct{} {
	set := make(map[string]struct{}, len(b.Tags))
	for _, t := range b.Tags {
		set[NormalizeTagName(t.Name)] = struct{}{}
	}
	return set
}

// JobListing is work a service provider can apply for. Applications are kept
// in application-time order.
type JobListing struct {
	ListingBase
	RatePerHour  int           `json:"rate_per_hour"`
	Applications []Application `json:"applications,omitempty"`
}

func (*JobListing) Kind() ListingKind { return ListingJob }
func (*JobListing) sealedListing()    {}

// ProductListing is goods offered for sale.
type ProductListing struct {
	ListingBase
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

func (*ProductListing) Kind() ListingKind { return ListingProduct }
func (*ProductListing) sealedListing()    {}

// CanApply reports whether candidate is eligible for job: it must be a service
// provider whose trade tags intersect the listing tags.
func CanApply(job *JobListing, candidate Account) bool {
	if job == nil {
		return false
	}
	switch acc := candidate.(type) {
	case *ServiceProviderAccount:
		required := job.TagNames()
		for _, tag := range acc.Trade.Tags() {
			if _, ok := required[tag]; ok {
				return true
			}
		}
		return false
	case *BusinessAccount:
		return false
	default:
		return false
	}
}
