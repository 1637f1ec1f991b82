package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the read path depends on. Creation is
// idempotent on the server side.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	listings := d.Database.Collection("listings")

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "listing_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "location", Value: "2dsphere"}},
		},
		{
			Keys: bson.D{{Key: "category", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "updated_at", Value: -1}},
		},
	}

	_, err := listings.Indexes().CreateMany(ctx, indexes)
	return err
}
