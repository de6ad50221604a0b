package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nexus-app/marketplace/internal/core/domain"
	"github.com/nexus-app/marketplace/internal/core/ports"
)

const (
	collectionListings     = "listings"
	collectionTags         = "tags"
	collectionApplications = "applications"
)

// ListingRepository persists listings, the shared tag catalogue and job
// applications. Multi-collection writes run in a transaction, so the
// deployment must be a replica set.
type ListingRepository struct {
	client       *mongo.Client
	listings     *mongo.Collection
	tags         *mongo.Collection
	applications *mongo.Collection
	timeout      time.Duration
}

func NewListingRepository(db *mongo.Database, timeout time.Duration) *ListingRepository {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ListingRepository{
		client:       db.Client(),
		listings:     db.Collection(collectionListings),
		tags:         db.Collection(collectionTags),
		applications: db.Collection(collectionApplications),
		timeout:      timeout,
	}
}

type tagDoc struct {
	ID   string `bson:"_id"`
	Name string `bson:"name"`
}

type listingDoc struct {
	ID          string    `bson:"_id"`
	Kind        string    `bson:"kind"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Location    string    `bson:"location"`
	RequiredAt  time.Time `bson:"required_at"`
	CreatedBy   string    `bson:"created_by"`
	CreatedAt   time.Time `bson:"created_at"`
	Tags        []tagDoc  `bson:"tags"`

	RatePerHour int `bson:"rate_per_hour,omitempty"`

	Price    float64 `bson:"price,omitempty"`
	Quantity int     `bson:"quantity,omitempty"`
}

type applicationDoc struct {
	ID          string    `bson:"_id"`
	ApplicantID string    `bson:"applicant_id"`
	ListingID   string    `bson:"listing_id"`
	AppliedAt   time.Time `bson:"applied_at"`
}

func toListingDoc(l domain.Listing) listingDoc {
	h := l.Header()
	doc := listingDoc{
		ID:          h.ID,
		Kind:        string(l.Kind()),
		Title:       h.Title,
		Description: h.Description,
		Location:    h.Location,
		RequiredAt:  h.RequiredAt.UTC(),
		CreatedBy:   h.CreatedBy,
		CreatedAt:   h.CreatedAt.UTC(),
		Tags:        make([]tagDoc, 0, len(h.Tags)),
	}
	for _, t := range h.Tags {
		doc.Tags = append(doc.Tags, tagDoc{ID: t.ID, Name: t.Name})
	}
	switch v := l.(type) {
	case *domain.JobListing:
		doc.RatePerHour = v.RatePerHour
	case *domain.ProductListing:
		doc.Price = v.Price
		doc.Quantity = v.Quantity
	}
	return doc
}

func (d listingDoc) toDomain() (domain.Listing, error) {
	base := domain.ListingBase{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Location:    d.Location,
		RequiredAt:  d.RequiredAt.UTC(),
		CreatedBy:   d.CreatedBy,
		CreatedAt:   d.CreatedAt.UTC(),
		Tags:        make([]domain.Tag, 0, len(d.Tags)),
	}
	for _, t := range d.Tags {
		base.Tags = append(base.Tags, domain.Tag{ID: t.ID, Name: t.Name})
	}

	kind, err := domain.ParseListingKind(d.Kind)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", d.ID, err)
	}
	if kind == domain.ListingJob {
		return &domain.JobListing{ListingBase: base, RatePerHour: d.RatePerHour}, nil
	}
	return &domain.ProductListing{ListingBase: base, Price: d.Price, Quantity: d.Quantity}, nil
}

func (d applicationDoc) toDomain() domain.Application {
	return domain.Application{ID: d.ID, ApplicantID: d.ApplicantID, ListingID: d.ListingID, AppliedAt: d.AppliedAt.UTC()}
}

// tagUpsertAttempts bounds reruns of Create after losing a race to insert a new tag.
const tagUpsertAttempts = 3

// Create upserts each tag by name, stores the listing with the resolved tag
// IDs and writes both in one transaction.
func (r *ListingRepository) Create(ctx context.Context, l domain.Listing) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sess, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", translate(err))
	}
	defer sess.EndSession(ctx)

	h := l.Header()
	return retryOnConflict("tag_name", tagUpsertAttempts, func() error {
		_, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			for i, t := range h.Tags {
				var tag tagDoc
				err := r.tags.FindOneAndUpdate(sc,
					bson.M{"name": t.Name},
					bson.M{"$setOnInsert": bson.M{"_id": uuid.NewString(), "name": t.Name}},
					options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
				).Decode(&tag)
				if err != nil {
					return nil, fmt.Errorf("upsert tag %s: %w", t.Name, err)
				}
				h.Tags[i].ID = tag.ID
			}
			if _, err := r.listings.InsertOne(sc, toListingDoc(l)); err != nil {
				return nil, fmt.Errorf("insert listing: %w", err)
			}
			return nil, nil
		})
		return translate(err)
	})
}

func (r *ListingRepository) FindByID(ctx context.Context, id string) (domain.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var doc listingDoc
	if err := r.listings.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("find listing: %w", translate(err))
	}
	listing, err := doc.toDomain()
	if err != nil {
		return nil, err
	}

	if job, ok := listing.(*domain.JobListing); ok {
		apps, err := r.listApplications(ctx, id)
		if err != nil {
			return nil, err
		}
		job.Applications = apps
	}
	return listing, nil
}

// listingQuery builds the filter and options for List. Newest listings come first.
func listingQuery(f ports.ListListingsFilter) (bson.M, *options.FindOptions) {
	filter := bson.M{}
	if f.Kind != "" {
		filter["kind"] = string(f.Kind)
	}
	if f.Tag != "" {
		filter["tags.name"] = f.Tag
	}
	if f.CreatedBy != "" {
		filter["created_by"] = f.CreatedBy
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	return filter, opts
}

func (r *ListingRepository) List(ctx context.Context, f ports.ListListingsFilter) ([]domain.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter, opts := listingQuery(f)
	cur, err := r.listings.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", translate(err))
	}
	var docs []listingDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode listings: %w", translate(err))
	}

	out := make([]domain.Listing, 0, len(docs))
	for _, d := range docs {
		l, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// Delete removes the listing and its applications together.
func (r *ListingRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sess, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", translate(err))
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := r.listings.DeleteOne(sc, bson.M{"_id": id})
		if err != nil {
			return nil, err
		}
		if res.DeletedCount == 0 {
			return nil, domain.ErrListingNotFound
		}
		_, err = r.applications.DeleteMany(sc, bson.M{"listing_id": id})
		return nil, err
	})
	if errors.Is(err, domain.ErrListingNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("delete listing: %w", translate(err))
	}
	return nil
}

// InsertApplication stores the application only while its job listing still
// exists. Bumping the listing's application count in the same transaction makes
// a concurrent Delete write-conflict with it, so no application outlives its listing.
func (r *ListingRepository) InsertApplication(ctx context.Context, app *domain.Application) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sess, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", translate(err))
	}
	defer sess.EndSession(ctx)

	doc := applicationDoc{
		ID:          app.ID,
		ApplicantID: app.ApplicantID,
		ListingID:   app.ListingID,
		AppliedAt:   app.AppliedAt.UTC(),
	}
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := r.listings.UpdateOne(sc,
			bson.M{"_id": app.ListingID, "kind": string(domain.ListingJob)},
			bson.M{"$inc": bson.M{"application_count": 1}},
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, domain.ErrListingNotFound
		}
		_, err = r.applications.InsertOne(sc, doc)
		return nil, err
	})
	if errors.Is(err, domain.ErrListingNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("insert application: %w", translate(err))
	}
	return nil
}

func (r *ListingRepository) FindApplication(ctx context.Context, applicantID, listingID string) (*domain.Application, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var doc applicationDoc
	err := r.applications.FindOne(ctx, bson.M{"applicant_id": applicantID, "listing_id": listingID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("find application: %w", translate(err))
	}
	app := doc.toDomain()
	return &app, nil
}

func (r *ListingRepository) ListApplications(ctx context.Context, listingID string) ([]domain.Application, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.listApplications(ctx, listingID)
}

func (r *ListingRepository) listApplications(ctx context.Context, listingID string) ([]domain.Application, error) {
	opts := options.Find().SetSort(bson.D{{Key: "applied_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.applications.Find(ctx, bson.M{"listing_id": listingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", translate(err))
	}
	var docs []applicationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode applications: %w", translate(err))
	}

	apps := make([]domain.Application, 0, len(docs))
	for _, d := range docs {
		apps = append(apps, d.toDomain())
	}
	return apps, nil
}

// EnsureIndexes creates the tag-name and one-application-per-provider
// constraints plus the lookup indexes used by List.
func (r *ListingRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := r.tags.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_tag_name"),
	}); err != nil {
		return err
	}

	if _, err := r.listings.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "tags.name", Value: 1}}},
		{Keys: bson.D{{Key: "created_by", Value: 1}}},
	}); err != nil {
		return err
	}

	_, err := r.applications.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "applicant_id", Value: 1}, {Key: "listing_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_application"),
		},
		{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "applied_at", Value: 1}}},
	})
	return err
}
