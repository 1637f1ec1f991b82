package database

import (
	"context"
	"fmt"
	"time"

	"jewgo-discovery/pkg/config"
	"jewgo-discovery/pkg/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DB bundles the Mongo client and database handle. Listings are owned by the
// external CRUD layer; this core only ever reads them.
type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Connect establishes the MongoDB connection and ensures indexes.
func Connect(cfg *config.Config) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(cfg.Database.URI).
		SetMaxPoolSize(50).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	db := &DB{
		Client:   client,
		Database: client.Database(cfg.Database.DBName),
	}

	if err := db.EnsureIndexes(ctx); err != nil {
		logger.GlobalLogger.Errorf("failed to ensure indexes: %v", err)
		return nil, err
	}

	logger.GlobalLogger.Println("MongoDB connected successfully")
	return db, nil
}

// Close disconnects the Mongo client.
func (d *DB) Close() {
	if d.Client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Client.Disconnect(ctx); err != nil {
		logger.GlobalLogger.Errorf("error closing MongoDB: %v", err)
	} else {
		logger.GlobalLogger.Println("MongoDB connection closed")
	}
}

// Ping reports whether the MongoDB connection is healthy.
func (d *DB) Ping(ctx context.Context) error {
	return d.Client.Ping(ctx, nil)
}
