// Package dao is the credential store, it persists organizations in MongoDB.
package dao

import (
	"context"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoLib "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Laisky/fingenius-compliance/internal/web/organization/model"
	"github.com/Laisky/fingenius-compliance/library/apierr"
	"github.com/Laisky/fingenius-compliance/library/db/mongo"
)

// Organization dao
type Organization struct {
	logger logSDK.Logger
	db     mongo.DB
}

// New create new dao
func New(logger logSDK.Logger, db mongo.DB) *Organization {
	return &Organization{
		logger: logger,
		db:     db,
	}
}

// GetCol get organizations collection
func (d *Organization) GetCol() *mongoLib.Collection {
	return d.db.GetCol(model.Organization{}.Collection())
}

// EnsureIndexes creates the unique email index.
func (d *Organization) EnsureIndexes(ctx context.Context) error {
	if _, err := d.GetCol().Indexes().CreateOne(ctx, mongoLib.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return errors.Wrap(err, "create index for email")
	}

	return nil
}

// NormalizeEmail is the canonical form stored and queried.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Insert saves a new organization, a taken email yields DUPLICATE_EMAIL.
func (d *Organization) Insert(ctx context.Context, org *model.Organization) error {
	if _, err := d.GetCol().InsertOne(ctx, org); err != nil {
		if mongo.Duplicated(err) {
			return apierr.Wrap(err, apierr.CodeDuplicateEmail, "Organization already exists")
		}
		return errors.Wrapf(err, "insert organization %q", org.Email)
	}

	d.logger.Debug("insert organization",
		zap.String("id", org.ID.Hex()), zap.String("email", org.Email))
	return nil
}

func (d *Organization) findOne(ctx context.Context, filter bson.D) (*model.Organization, error) {
	org := new(model.Organization)
	if err := d.GetCol().FindOne(ctx, filter).Decode(org); err != nil {
		if mongo.NotFound(err) {
			return nil, apierr.Wrap(err, apierr.CodeNotFound, "Organization not found")
		}
		return nil, errors.Wrap(err, "find organization")
	}

	return org, nil
}

// FindByEmail loads an organization by its (normalized) email.
func (d *Organization) FindByEmail(ctx context.Context, email string) (*model.Organization, error) {
	return d.findOne(ctx, bson.D{{Key: "email", Value: NormalizeEmail(email)}})
}

// FindByID loads an organization by id.
func (d *Organization) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Organization, error) {
	return d.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

// Exists reports whether an organization with id exists.
func (d *Organization) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	cnt, err := d.GetCol().CountDocuments(ctx, bson.D{{Key: "_id", Value: id}},
		options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrapf(err, "count organization %s", id.Hex())
	}

	return cnt > 0, nil
}

// UpdateLastLogin records a successful login.
func (d *Organization) UpdateLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return d.set(ctx, id, bson.D{
		{Key: "last_login", Value: at},
		{Key: "updated_at", Value: at},
	})
}

// UpdateProfileImage stores the profile photo url.
func (d *Organization) UpdateProfileImage(ctx context.Context, id primitive.ObjectID, url string, at time.Time) error {
	return d.set(ctx, id, bson.D{
		{Key: "profile_image_url", Value: url},
		{Key: "updated_at", Value: at},
	})
}

func (d *Organization) set(ctx context.Context, id primitive.ObjectID, fields bson.D) error {
	ret, err := d.GetCol().UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: fields}},
	)
	if err != nil {
		return errors.Wrapf(err, "update organization %s", id.Hex())
	}
	if ret.MatchedCount == 0 {
		return apierr.New(apierr.CodeNotFound, "Organization not found")
	}

	return nil
}
