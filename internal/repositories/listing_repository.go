package repositories

import (
	"context"
	"time"

	apperrors "jewgo-discovery/internal/errors"
	"jewgo-discovery/internal/models"
	"jewgo-discovery/pkg/metrics"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const listingCollection = "listings"

// listingDoc is the persisted shape. The location is stored as GeoJSON so
// the 2dsphere index applies; it is converted to lat/lon on read.
type listingDoc struct {
	ID        string              `bson:"listing_id"`
	Name      string              `bson:"name"`
	Location  *geoJSONPoint       `bson:"location,omitempty"`
	Hours     *models.WeeklyHours `bson:"hours,omitempty"`
	Timezone  string              `bson:"timezone"`
	Category  string              `bson:"category"`
	UpdatedAt time.Time           `bson:"updated_at"`
}

type geoJSONPoint struct {
	Type        string     `bson:"type"`
	Coordinates [2]float64 `bson:"coordinates"` // lon, lat
}

func (d *listingDoc) toModel() models.Listing {
	l := models.Listing{
		ID:        d.ID,
		Name:      d.Name,
		Hours:     d.Hours,
		Timezone:  d.Timezone,
		Category:  d.Category,
		UpdatedAt: d.UpdatedAt,
	}
	if d.Location != nil {
		l.Location = &models.GeoPoint{
			Lat: d.Location.Coordinates[1],
			Lon: d.Location.Coordinates[0],
		}
	}
	return l
}

type listingRepository struct {
	collection *mongo.Collection
}

func NewListingRepository(db *mongo.Database) ListingRepository {
	return &listingRepository{
		collection: db.Collection(listingCollection),
	}
}

func (r *listingRepository) FindByID(ctx context.Context, id string) (*models.Listing, error) {
	start := time.Now()
	var doc listingDoc
	err := r.collection.FindOne(ctx, bson.M{"listing_id": id}).Decode(&doc)
	metrics.MongoOperationDuration.WithLabelValues("find_one", listingCollection).Observe(time.Since(start).Seconds())
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.ErrListingNotFound
	}
	if err != nil {
		metrics.MongoErrorsTotal.WithLabelValues("find_one", listingCollection).Inc()
		return nil, err
	}
	l := doc.toModel()
	return &l, nil
}

func (r *listingRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	start := time.Now()
	cursor, err := r.collection.Find(ctx, bson.M{"listing_id": bson.M{"$in": ids}})
	metrics.MongoOperationDuration.WithLabelValues("find_in", listingCollection).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MongoErrorsTotal.WithLabelValues("find_in", listingCollection).Inc()
		return nil, err
	}
	defer cursor.Close(ctx)

	var listings []models.Listing
	for cursor.Next(ctx) {
		var doc listingDoc
		if err := cursor.Decode(&doc); err != nil {
			metrics.MongoErrorsTotal.WithLabelValues("find_in", listingCollection).Inc()
			return nil, err
		}
		listings = append(listings, doc.toModel())
	}
	return listings, cursor.Err()
}

func (r *listingRepository) FindAll(ctx context.Context) ([]models.Listing, error) {
	start := time.Now()
	cursor, err := r.collection.Find(ctx, bson.M{})
	metrics.MongoOperationDuration.WithLabelValues("find_all", listingCollection).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MongoErrorsTotal.WithLabelValues("find_all", listingCollection).Inc()
		return nil, err
	}
	defer cursor.Close(ctx)

	var listings []models.Listing
	for cursor.Next(ctx) {
		var doc listingDoc
		if err := cursor.Decode(&doc); err != nil {
			metrics.MongoErrorsTotal.WithLabelValues("find_all", listingCollection).Inc()
			return nil, err
		}
		listings = append(listings, doc.toModel())
	}
	return listings, cursor.Err()
}
