package domain

import "time"

// Application records a service provider's intent to take a job listing.
// It is never mutated after creation.
type Application struct {
	ID          string    `json:"id"`
	ApplicantID string    `json:"applicant_id"`
	ListingID   string    `json:"listing_id"`
	AppliedAt   time.Time `json:"applied_at"`
}
