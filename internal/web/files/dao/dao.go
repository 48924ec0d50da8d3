// Package dao is the file record store.
package dao

import (
	"context"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoLib "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Laisky/fingenius-compliance/internal/web/files/model"
	"github.com/Laisky/fingenius-compliance/library/apierr"
	"github.com/Laisky/fingenius-compliance/library/db/mongo"
)

// NotFoundMessage is returned when a file id matches nothing.
const NotFoundMessage = "File not found"

// Files dao
type Files struct {
	logger logSDK.Logger
	db     mongo.DB
}

// New create new dao
func New(logger logSDK.Logger, db mongo.DB) *Files {
	return &Files{
		logger: logger,
		db:     db,
	}
}

// GetCol get files collection
func (d *Files) GetCol() *mongoLib.Collection {
	return d.db.GetCol(model.File{}.Collection())
}

// EnsureIndexes creates the per-organization listing index.
func (d *Files) EnsureIndexes(ctx context.Context) error {
	if _, err := d.GetCol().Indexes().CreateOne(ctx, mongoLib.IndexModel{
		Keys: bson.D{
			{Key: "organization", Value: 1},
			{Key: "upload_date", Value: -1},
		},
	}); err != nil {
		return errors.Wrap(err, "create index for organization and upload_date")
	}

	return nil
}

// Create persists a new file record.
func (d *Files) Create(ctx context.Context, file *model.File) error {
	if file.ID.IsZero() {
		file.ID = primitive.NewObjectID()
	}
	if _, err := d.GetCol().InsertOne(ctx, file); err != nil {
		return errors.Wrapf(err, "insert file %q", file.Filename)
	}

	d.logger.Debug("insert file",
		zap.String("id", file.ID.Hex()),
		zap.String("organization", file.Organization.Hex()))
	return nil
}

func (d *Files) list(ctx context.Context, filter bson.D) ([]*model.File, error) {
	cur, err := d.GetCol().Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "upload_date", Value: -1}}))
	if err != nil {
		return nil, errors.Wrap(err, "find files")
	}

	files := []*model.File{}
	if err = cur.All(ctx, &files); err != nil {
		return nil, errors.Wrap(err, "decode files")
	}

	return files, nil
}

// ListAll returns every file, newest upload first.
func (d *Files) ListAll(ctx context.Context) ([]*model.File, error) {
	return d.list(ctx, bson.D{})
}

// ListByOrganization returns the files owned by orgID, newest upload first.
func (d *Files) ListByOrganization(ctx context.Context, orgID primitive.ObjectID) ([]*model.File, error) {
	return d.list(ctx, bson.D{{Key: "organization", Value: orgID}})
}

// FindByID loads a file record.
func (d *Files) FindByID(ctx context.Context, id primitive.ObjectID) (*model.File, error) {
	file := new(model.File)
	if err := d.GetCol().FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(file); err != nil {
		if mongo.NotFound(err) {
			return nil, apierr.Wrap(err, apierr.CodeNotFound, NotFoundMessage)
		}
		return nil, errors.Wrapf(err, "find file %s", id.Hex())
	}

	return file, nil
}

// DeleteByID removes a file record, NOT_FOUND when nothing was deleted.
func (d *Files) DeleteByID(ctx context.Context, id primitive.ObjectID) error {
	ret, err := d.GetCol().DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return errors.Wrapf(err, "delete file %s", id.Hex())
	}
	if ret.DeletedCount == 0 {
		return apierr.New(apierr.CodeNotFound, NotFoundMessage)
	}

	return nil
}
