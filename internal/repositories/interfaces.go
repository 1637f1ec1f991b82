package repositories

import (
	"context"

	"jewgo-discovery/internal/models"
)

// ListingRepository is the read-only view over listing records owned by the
// external CRUD layer.
type ListingRepository interface {
	FindByID(ctx context.Context, id string) (*models.Listing, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Listing, error)
	FindAll(ctx context.Context) ([]models.Listing, error)
}
