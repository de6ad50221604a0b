package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-app/marketplace/internal/api/middleware"
	"github.com/nexus-app/marketplace/internal/core/domain"
	"github.com/nexus-app/marketplace/internal/core/ports"
)

type stubListingService struct {
	ports.ListingService

	createFn func(ctx context.Context, owner domain.Account, in ports.CreateListingInput) (domain.Listing, error)
	listFn   func(ctx context.Context, filter ports.ListListingsFilter) ([]domain.Listing, error)
	applyFn  func(ctx context.Context, listingID string, candidate domain.Account) (*domain.Application, error)
	appsFn   func(ctx context.Context, requester domain.Account, listingID string) ([]domain.Application, error)
}

func (s *stubListingService) CreateListing(ctx context.Context, owner domain.Account, in ports.CreateListingInput) (domain.Listing, error) {
	return s.createFn(ctx, owner, in)
}

func (s *stubListingService) ListListings(ctx context.Context, filter ports.ListListingsFilter) ([]domain.Listing, error) {
	return s.listFn(ctx, filter)
}

func (s *stubListingService) Apply(ctx context.Context, listingID string, candidate domain.Account) (*domain.Application, error) {
	return s.applyFn(ctx, listingID, candidate)
}

func (s *stubListingService) ListApplications(ctx context.Context, requester domain.Account, listingID string) ([]domain.Application, error) {
	return s.appsFn(ctx, requester, listingID)
}

var (
	acme = &domain.BusinessAccount{AccountBase: domain.AccountBase{ID: "acc-acme", Username: "acme"}}
	alex = &domain.ServiceProviderAccount{AccountBase: domain.AccountBase{ID: "acc-alex", Username: "alex"}, Trade: domain.TradePlumber}
)

func accountsByUsername() *stubAccountService {
	return &stubAccountService{
		accountFn: func(_ context.Context, username string) (domain.Account, error) {
			switch username {
			case "acme":
				return acme, nil
			case "alex":
				return alex, nil
			}
			return nil, domain.ErrAccountNotFound
		},
	}
}

func authed(c echo.Context, username string) echo.Context {
	c.Set(middleware.CtxUsername, username)
	c.Set(middleware.CtxTokenID, "jti-"+username)
	return c
}

func sampleJob() *domain.JobListing {
	return &domain.JobListing{
		ListingBase: domain.ListingBase{
			ID:         "lst-1",
			Title:      "Fix burst pipe",
			Location:   "Sydney",
			RequiredAt: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
			CreatedBy:  acme.ID,
			CreatedAt:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			Tags:       []domain.Tag{{ID: "tag-PLUMBER", Name: "PLUMBER"}},
		},
		RatePerHour: 80,
	}
}

func TestListingHandler_Create(t *testing.T) {
	e := newTestEcho()
	svc := &stubListingService{
		createFn: func(_ context.Context, owner domain.Account, in ports.CreateListingInput) (domain.Listing, error) {
			assert.Equal(t, acme, owner)
			assert.Equal(t, "JOB", in.Kind)
			assert.Equal(t, []string{"plumber"}, in.Tags)
			assert.Equal(t, 80, in.RatePerHour)
			return sampleJob(), nil
		},
	}
	body := `{"type":"JOB","title":"Fix burst pipe","location":"Sydney","datetime_required":"2026-03-02T08:00:00Z","tags":["plumber"],"rate_per_h":80}`
	req := httptest.NewRequest(http.MethodPost, "/listings", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authed(e.NewContext(req, rec), "acme")

	require.NoError(t, NewListingHandler(svc, accountsByUsername()).Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "JOB", resp["type"])
	assert.EqualValues(t, 80, resp["rate_per_h"])
	assert.EqualValues(t, 0, resp["application_count"])
	assert.NotContains(t, resp, "price")
	links := resp["_links"].(map[string]any)
	assert.Equal(t, "/listings/lst-1/applications", links["applications"])
}

func TestListingHandler_Create_ValidationFailure(t *testing.T) {
	e := newTestEcho()
	svc := &stubListingService{}
	req := httptest.NewRequest(http.MethodPost, "/listings", strings.NewReader(`{"type":"SERVICE","title":"x","location":"Sydney"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	serve(e, authed(e.NewContext(req, rec), "acme"), NewListingHandler(svc, accountsByUsername()).Create)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListingHandler_Create_DeletedAccount(t *testing.T) {
	e := newTestEcho()
	body := `{"type":"PRODUCT","title":"Espresso machine","location":"Sydney","price":1200,"quantity":1}`
	req := httptest.NewRequest(http.MethodPost, "/listings", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	serve(e, authed(e.NewContext(req, rec), "ghost"), NewListingHandler(&stubListingService{}, accountsByUsername()).Create)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListingHandler_List_ParsesQuery(t *testing.T) {
	e := newTestEcho()
	var got ports.ListListingsFilter
	svc := &stubListingService{
		listFn: func(_ context.Context, filter ports.ListListingsFilter) ([]domain.Listing, error) {
			got = filter
			return []domain.Listing{sampleJob()}, nil
		},
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/listings?kind=job&tag=plumber&limit=5", nil), rec)

	require.NoError(t, NewListingHandler(svc, accountsByUsername()).List(c))
	assert.Equal(t, domain.ListingJob, got.Kind)
	assert.Equal(t, "plumber", got.Tag)
	assert.Equal(t, 5, got.Limit)

	var resp listListingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
}

func TestListingHandler_List_BadQuery(t *testing.T) {
	for _, q := range []string{"kind=SERVICE", "limit=abc", "limit=-1"} {
		t.Run(q, func(t *testing.T) {
			e := newTestEcho()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/listings?"+q, nil), rec)
			serve(e, c, NewListingHandler(&stubListingService{}, accountsByUsername()).List)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestListingHandler_Apply(t *testing.T) {
	e := newTestEcho()
	applied := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	svc := &stubListingService{
		applyFn: func(_ context.Context, listingID string, candidate domain.Account) (*domain.Application, error) {
			assert.Equal(t, "lst-1", listingID)
			assert.Equal(t, alex, candidate)
			return &domain.Application{ID: "app-1", ApplicantID: alex.ID, ListingID: listingID, AppliedAt: applied}, nil
		},
	}
	rec := httptest.NewRecorder()
	c := authed(e.NewContext(httptest.NewRequest(http.MethodPost, "/listings/lst-1/applications", nil), rec), "alex")
	c.SetParamNames("id")
	c.SetParamValues("lst-1")

	require.NoError(t, NewListingHandler(svc, accountsByUsername()).Apply(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp applicationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "acc-alex", resp.ApplicantID)
	assert.True(t, applied.Equal(resp.AppliedAt))
}

func TestListingHandler_Apply_PassesDomainError(t *testing.T) {
	e := newTestEcho()
	svc := &stubListingService{
		applyFn: func(context.Context, string, domain.Account) (*domain.Application, error) {
			return nil, domain.ErrNotEligible
		},
	}
	c := authed(e.NewContext(httptest.NewRequest(http.MethodPost, "/listings/lst-1/applications", nil), httptest.NewRecorder()), "alex")
	c.SetParamNames("id")
	c.SetParamValues("lst-1")

	assert.ErrorIs(t, NewListingHandler(svc, accountsByUsername()).Apply(c), domain.ErrNotEligible)
}

func TestListingHandler_Applications(t *testing.T) {
	e := newTestEcho()
	svc := &stubListingService{
		appsFn: func(_ context.Context, requester domain.Account, listingID string) ([]domain.Application, error) {
			assert.Equal(t, acme, requester)
			return []domain.Application{
				{ID: "app-1", ApplicantID: "acc-alex", ListingID: listingID},
				{ID: "app-2", ApplicantID: "acc-sam", ListingID: listingID},
			}, nil
		},
	}
	rec := httptest.NewRecorder()
	c := authed(e.NewContext(httptest.NewRequest(http.MethodGet, "/listings/lst-1/applications", nil), rec), "acme")
	c.SetParamNames("id")
	c.SetParamValues("lst-1")

	require.NoError(t, NewListingHandler(svc, accountsByUsername()).Applications(c))

	var resp []applicationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "app-1", resp[0].ID)
	assert.Equal(t, "app-2", resp[1].ID)
}

func TestToListingResponse_Product(t *testing.T) {
	p := &domain.ProductListing{
		ListingBase: domain.ListingBase{ID: "lst-2", Title: "Espresso machine"},
		Price:       1200.5,
		Quantity:    3,
	}
	resp := toListingResponse(p)

	assert.Equal(t, "PRODUCT", resp.Kind)
	require.NotNil(t, resp.Price)
	assert.Equal(t, 1200.5, *resp.Price)
	assert.Nil(t, resp.RatePerHour)
	assert.Nil(t, resp.Applications)
	assert.NotContains(t, resp.Links, "applications")
	assert.NotNil(t, resp.Tags)
}
