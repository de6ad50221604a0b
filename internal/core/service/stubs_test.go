package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nexus-app/marketplace/internal/core/domain"
	"github.com/nexus-app/marketplace/internal/core/ports"
	"github.com/nexus-app/marketplace/internal/pkg/clock"
	"github.com/nexus-app/marketplace/internal/pkg/password"
	"github.com/nexus-app/marketplace/internal/pkg/retry"
	"github.com/nexus-app/marketplace/internal/pkg/token"
)

const testSecret = "test-secret-that-is-at-least-32-bytes-long"

var (
	testStart  = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	fastPolicy = retry.Policy{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
)

// stubAccountRepo enforces the same uniqueness rules as the real store.
type stubAccountRepo struct {
	mu        sync.Mutex
	accounts  map[string]domain.Account
	transient int
	// lostAcks stores the account but still reports a transient failure, as
	// when the connection drops after the write commits.
	lostAcks int
	inserts  int
	// hideExisting makes ExistsByUsername lie, simulating a concurrent registration
	// that lands between the pre-check and the insert.
	hideExisting bool
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{accounts: make(map[string]domain.Account)}
}

func (r *stubAccountRepo) Insert(_ context.Context, acc domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserts++
	if r.transient > 0 {
		r.transient--
		return domain.ErrStorageUnavailable
	}
	in := acc.Identity()
	for _, existing := range r.accounts {
		base := existing.Identity()
		switch {
		case base.Username == in.Username:
			return &domain.ConflictError{Field: "username"}
		case base.Email == in.Email:
			return &domain.ConflictError{Field: "email"}
		case base.PhoneNumber == in.PhoneNumber:
			return &domain.ConflictError{Field: "phone_number"}
		}
		if b, ok := existing.(*domain.BusinessAccount); ok {
			if nb, ok := acc.(*domain.BusinessAccount); ok && nb.ABN == b.ABN {
				return &domain.ConflictError{Field: "abn"}
			}
		}
	}
	r.accounts[in.Username] = acc
	if r.lostAcks > 0 {
		r.lostAcks--
		return domain.ErrStorageUnavailable
	}
	return nil
}

func (r *stubAccountRepo) FindByUsername(_ context.Context, username string) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[username]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return acc, nil
}

func (r *stubAccountRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hideExisting {
		return false, nil
	}
	_, ok := r.accounts[username]
	return ok, nil
}

func (r *stubAccountRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.accounts)
}

// countingHasher records how many verifications ran.
type countingHasher struct {
	password.Hasher
	mu       sync.Mutex
	verifies int
}

func (h *countingHasher) Verify(plaintext, hash string) bool {
	h.mu.Lock()
	h.verifies++
	h.mu.Unlock()
	return h.Hasher.Verify(plaintext, hash)
}

type stubRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newStubRevoker() *stubRevoker {
	return &stubRevoker{revoked: make(map[string]time.Time)}
}

func (r *stubRevoker) Revoke(_ context.Context, id string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[id] = until
	return nil
}

func (r *stubRevoker) IsRevoked(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[id]
	return ok, nil
}

type stubListingRepo struct {
	mu           sync.Mutex
	listings     map[string]domain.Listing
	applications []domain.Application
	tagIDs       map[string]string
}

func newStubListingRepo() *stubListingRepo {
	return &stubListingRepo{
		listings: make(map[string]domain.Listing),
		tagIDs:   make(map[string]string),
	}
}

func (r *stubListingRepo) Create(_ context.Context, l domain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := l.Header()
	for i, t := range h.Tags {
		id, ok := r.tagIDs[t.Name]
		if !ok {
			id = "tag-" + t.Name
			r.tagIDs[t.Name] = id
		}
		h.Tags[i].ID = id
	}
	r.listings[h.ID] = l
	return nil
}

func (r *stubListingRepo) FindByID(_ context.Context, id string) (domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	if job, ok := l.(*domain.JobListing); ok {
		copied := *job
		copied.Applications = r.applicationsFor(id)
		return &copied, nil
	}
	return l, nil
}

func (r *stubListingRepo) List(_ context.Context, f ports.ListListingsFilter) ([]domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Listing, 0, len(r.listings))
	for _, l := range r.listings {
		if f.Kind != "" && l.Kind() != f.Kind {
			continue
		}
		if f.CreatedBy != "" && l.Header().CreatedBy != f.CreatedBy {
			continue
		}
		if f.Tag != "" {
			if _, ok := l.Header().TagNames()[f.Tag]; !ok {
				continue
			}
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Header().ID < out[j].Header().ID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *stubListingRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listings[id]; !ok {
		return domain.ErrListingNotFound
	}
	delete(r.listings, id)
	kept := r.applications[:0]
	for _, a := range r.applications {
		if a.ListingID != id {
			kept = append(kept, a)
		}
	}
	r.applications = kept
	return nil
}

func (r *stubListingRepo) InsertApplication(_ context.Context, app *domain.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listings[app.ListingID].(*domain.JobListing); !ok {
		return domain.ErrListingNotFound
	}
	for _, a := range r.applications {
		if a.ApplicantID == app.ApplicantID && a.ListingID == app.ListingID {
			return &domain.ConflictError{Field: "applicant_id"}
		}
	}
	r.applications = append(r.applications, *app)
	return nil
}

func (r *stubListingRepo) FindApplication(_ context.Context, applicantID, listingID string) (*domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.applications {
		if a.ApplicantID == applicantID && a.ListingID == listingID {
			found := a
			return &found, nil
		}
	}
	return nil, domain.ErrApplicationNotFound
}

func (r *stubListingRepo) ListApplications(_ context.Context, listingID string) ([]domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applicationsFor(listingID), nil
}

func (r *stubListingRepo) applicationsFor(listingID string) []domain.Application {
	var out []domain.Application
	for _, a := range r.applications {
		if a.ListingID == listingID {
			out = append(out, a)
		}
	}
	return out
}

type accountFixture struct {
	svc     *AccountService
	repo    *stubAccountRepo
	hasher  *countingHasher
	issuer  *token.Issuer
	revoker *stubRevoker
	clock   *clock.Manual
}

func newAccountFixture(tb testing.TB, stub bool) *accountFixture {
	tb.Helper()
	clk := clock.NewManual(testStart)
	issuer, err := token.NewIssuer(token.Config{Secret: testSecret, TTL: time.Hour}, clk)
	if err != nil {
		tb.Fatalf("issuer: %v", err)
	}
	repo := newStubAccountRepo()
	hasher := &countingHasher{Hasher: password.NewBcrypt(4)}
	revoker := newStubRevoker()
	svc, err := NewAccountService(AccountDeps{
		Repo:       repo,
		Hasher:     hasher,
		Tokens:     issuer,
		Strategies: NewVerificationStrategies(stub),
		Sessions:   revoker,
		Clock:      clk,
		Retry:      fastPolicy,
		Logger:     zerolog.Nop(),
	})
	if err != nil {
		tb.Fatalf("account service: %v", err)
	}
	return &accountFixture{svc: svc, repo: repo, hasher: hasher, issuer: issuer, revoker: revoker, clock: clk}
}

func acmeRegistration() domain.Registration {
	return domain.Registration{
		Username:    "acme",
		Email:       "ops@acme.test",
		PhoneNumber: "0400000000",
		Password:    "Str0ngPass",
		ABN:         "51824753556",
		Address:     "1 George St, Sydney",
	}
}

func alexRegistration() domain.Registration {
	return domain.Registration{
		Username:    "alex",
		Email:       "alex@mail.test",
		PhoneNumber: "0411111111",
		Password:    "Plumb3rPass",
		FirstName:   "Alex",
		LastName:    "Smith",
		Address:     "2 Pitt St, Sydney",
		Trade:       "PLUMBER",
	}
}
