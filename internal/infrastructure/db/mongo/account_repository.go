package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nexus-app/marketplace/internal/core/domain"
)

const accountCollection = "accounts"

// AccountRepository stores every account kind in one collection, discriminated
// by the kind field. Uniqueness is enforced by the indexes in EnsureIndexes.
type AccountRepository struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func NewAccountRepository(db *mongo.Database, timeout time.Duration) *AccountRepository {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &AccountRepository{coll: db.Collection(accountCollection), timeout: timeout}
}

type accountDoc struct {
	ID           string    `bson:"_id"`
	Kind         string    `bson:"kind"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PhoneNumber  string    `bson:"phone_number"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
	Address      string    `bson:"address,omitempty"`

	ABN string `bson:"abn,omitempty"`

	FirstName string `bson:"first_name,omitempty"`
	LastName  string `bson:"last_name,omitempty"`
	Trade     string `bson:"trade,omitempty"`
}

func toAccountDoc(acc domain.Account) (accountDoc, error) {
	base := acc.Identity()
	doc := accountDoc{
		ID:           base.ID,
		Kind:         string(acc.Kind()),
		Username:     base.Username,
		Email:        base.Email,
		PhoneNumber:  base.PhoneNumber,
		PasswordHash: base.PasswordHash,
		CreatedAt:    base.CreatedAt.UTC(),
	}
	switch a := acc.(type) {
	case *domain.BusinessAccount:
		doc.ABN = a.ABN
		doc.Address = a.Address
	case *domain.ServiceProviderAccount:
		doc.FirstName = a.FirstName
		doc.LastName = a.LastName
		doc.Address = a.Address
		doc.Trade = string(a.Trade)
	default:
		return accountDoc{}, fmt.Errorf("%w: %T", domain.ErrUnrecognisedAccountKind, acc)
	}
	return doc, nil
}

func (d accountDoc) toDomain() (domain.Account, error) {
	base := domain.AccountBase{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		PhoneNumber:  d.PhoneNumber,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
	}
	kind, err := domain.ParseAccountKind(d.Kind)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", d.ID, err)
	}
	switch kind {
	case domain.KindBusiness:
		return &domain.BusinessAccount{AccountBase: base, ABN: d.ABN, Address: d.Address}, nil
	case domain.KindServiceProvider:
		trade, ok := domain.ParseTrade(d.Trade)
		if !ok {
			return nil, fmt.Errorf("account %s: unknown trade %q", d.ID, d.Trade)
		}
		return &domain.ServiceProviderAccount{
			AccountBase: base,
			FirstName:   d.FirstName,
			LastName:    d.LastName,
			Address:     d.Address,
			Trade:       trade,
		}, nil
	}
	return nil, domain.ErrUnrecognisedAccountKind
}

func (r *AccountRepository) Insert(ctx context.Context, acc domain.Account) error {
	doc, err := toAccountDoc(acc)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert account: %w", translate(err))
	}
	return nil
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var doc accountDoc
	if err := r.coll.FindOne(ctx, bson.M{"username": username}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", translate(err))
	}
	return doc.toDomain()
}

func (r *AccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, bson.M{"username": username}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count accounts: %w", translate(err))
	}
	return n > 0, nil
}

// EnsureIndexes creates the uniqueness constraints. ABN uniqueness only
// applies to documents that carry one.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_username")},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
		{Keys: bson.D{{Key: "phone_number", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_phone_number")},
		{
			Keys: bson.D{{Key: "abn", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_abn").
				SetPartialFilterExpression(bson.M{"abn": bson.M{"$exists": true}}),
		},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
