package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/nexus-app/marketplace/internal/api/metrics"
	"github.com/nexus-app/marketplace/internal/core/domain"
	"github.com/nexus-app/marketplace/internal/core/ports"
)

// ListingHandler handles HTTP requests for listings and job applications.
type ListingHandler struct {
	listings ports.ListingService
	accounts ports.AccountService
}

func NewListingHandler(listings ports.ListingService, accounts ports.AccountService) *ListingHandler {
	return &ListingHandler{listings: listings, accounts: accounts}
}

// currentAccount reloads the caller's account so every decision uses current state.
func (h *ListingHandler) currentAccount(c echo.Context) (domain.Account, error) {
	session, err := ctxSession(c)
	if err != nil {
		return nil, err
	}
	acc, err := h.accounts.Account(c.Request().Context(), session.Subject)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
	}
	return acc, err
}

// Create handles POST /listings.
//
// @Summary      Post a job or product listing
// @Tags         listings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createListingRequest  true  "Listing details"
// @Success      201   {object}  listingResponse
// @Failure      403   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /listings [post]
func (h *ListingHandler) Create(c echo.Context) error {
	var req createListingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	owner, err := h.currentAccount(c)
	if err != nil {
		return err
	}

	listing, err := h.listings.CreateListing(c.Request().Context(), owner, toCreateListingInput(req))
	if err != nil {
		return err
	}

	metrics.ListingsCreatedTotal.WithLabelValues(string(listing.Kind())).Inc()
	return c.JSON(http.StatusCreated, toListingResponse(listing))
}

// List handles GET /listings?kind=JOB&tag=PLUMBER&limit=20.
func (h *ListingHandler) List(c echo.Context) error {
	filter := ports.ListListingsFilter{Tag: c.QueryParam("tag")}
	if k := c.QueryParam("kind"); k != "" {
		kind, err := domain.ParseListingKind(k)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "kind must be JOB or PRODUCT")
		}
		filter.Kind = kind
	}
	if l := c.QueryParam("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		filter.Limit = n
	}

	listings, err := h.listings.ListListings(c.Request().Context(), filter)
	if err != nil {
		return err
	}

	items := make([]listingResponse, 0, len(listings))
	for _, l := range listings {
		items = append(items, toListingResponse(l))
	}
	return c.JSON(http.StatusOK, listListingsResponse{Items: items, Count: len(items)})
}

// Get handles GET /listings/:id.
func (h *ListingHandler) Get(c echo.Context) error {
	listing, err := h.listings.GetListing(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListingResponse(listing))
}

// Delete handles DELETE /listings/:id. Only the owner may delete.
func (h *ListingHandler) Delete(c echo.Context) error {
	requester, err := h.currentAccount(c)
	if err != nil {
		return err
	}
	if err := h.listings.DeleteListing(c.Request().Context(), requester, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Apply handles POST /listings/:id/applications.
//
// @Summary      Apply to a job listing
// @Tags         listings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Listing ID"
// @Success      201  {object}  applicationResponse
// @Failure      403  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /listings/{id}/applications [post]
func (h *ListingHandler) Apply(c echo.Context) error {
	candidate, err := h.currentAccount(c)
	if err != nil {
		return err
	}

	app, err := h.listings.Apply(c.Request().Context(), c.Param("id"), candidate)
	if err != nil {
		metrics.ApplicationsTotal.WithLabelValues(applicationResult(err)).Inc()
		return err
	}

	metrics.ApplicationsTotal.WithLabelValues("accepted").Inc()
	return c.JSON(http.StatusCreated, toApplicationResponse(*app))
}

func applicationResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyApplied):
		return "already_applied"
	case errors.Is(err, domain.ErrNotEligible):
		return "not_eligible"
	case errors.Is(err, domain.ErrWrongAccountKind):
		return "wrong_kind"
	}
	return "error"
}

// Applications handles GET /listings/:id/applications. Only the owner may list them.
func (h *ListingHandler) Applications(c echo.Context) error {
	requester, err := h.currentAccount(c)
	if err != nil {
		return err
	}

	apps, err := h.listings.ListApplications(c.Request().Context(), requester, c.Param("id"))
	if err != nil {
		return err
	}

	out := make([]applicationResponse, 0, len(apps))
	for _, a := range apps {
		out = append(out, toApplicationResponse(a))
	}
	return c.JSON(http.StatusOK, out)
}
