package handler

import "time"

type messageResponse struct {
	Message string `json:"message"`
}

// --- Account request / response types ---

// registerRequest carries the fields of every account kind. Kind-specific
// requirements are enforced by the required_if rules; the format rules accept
// an empty value and leave presence to required_if.
type registerRequest struct {
	AccountType string `json:"account_type" validate:"required"`
	Username    string `json:"username"     validate:"required,username"`
	Email       string `json:"email"        validate:"required,email"`
	PhoneNumber string `json:"phone_number" validate:"required,phone10"`
	Password    string `json:"password"     validate:"required,strongpassword"`

	ABN     string `json:"abn"     validate:"required_if=AccountType BUSINESS,abn11"`
	Address string `json:"address" validate:"required"`

	FirstName string `json:"first_name" validate:"required_if=AccountType SERVICE_PROVIDER"`
	LastName  string `json:"last_name"  validate:"required_if=AccountType SERVICE_PROVIDER"`
	Trade     string `json:"trade"      validate:"required_if=AccountType SERVICE_PROVIDER,trade"`
}

// loginForm is bound from an application/x-www-form-urlencoded body.
type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Role        string    `json:"role"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// --- Listing request / response types ---

type createListingRequest struct {
	Kind        string    `json:"type"          validate:"required,oneof=JOB PRODUCT job product"`
	Title       string    `json:"title"         validate:"required,max=120"`
	Description string    `json:"description"   validate:"max=4000"`
	Location    string    `json:"location"      validate:"required"`
	RequiredAt  time.Time `json:"datetime_required"`
	Tags        []string  `json:"tags"          validate:"max=20,dive,required,max=32"`

	RatePerHour int `json:"rate_per_h" validate:"gte=0"`

	Price    float64 `json:"price"    validate:"gte=0"`
	Quantity int     `json:"quantity" validate:"gte=0"`
}

type tagResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type listingResponse struct {
	ID          string        `json:"id"`
	Kind        string        `json:"type"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Location    string        `json:"location"`
	RequiredAt  time.Time     `json:"datetime_required"`
	CreatedBy   string        `json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`
	Tags        []tagResponse `json:"tags"`

	RatePerHour  *int              `json:"rate_per_h,omitempty"`
	Applications *int              `json:"application_count,omitempty"`
	Price        *float64          `json:"price,omitempty"`
	Quantity     *int              `json:"quantity,omitempty"`
	Links        map[string]string `json:"_links"`
}

type listListingsResponse struct {
	Items []listingResponse `json:"items"`
	Count int               `json:"count"`
}

type applicationResponse struct {
	ID          string    `json:"id"`
	ApplicantID string    `json:"applicant_id"`
	ListingID   string    `json:"listing_id"`
	AppliedAt   time.Time `json:"applied_at"`
}
