package handlers

import (
	"net/http"

	apperrors "jewgo-discovery/internal/errors"
	"jewgo-discovery/internal/models"
	"jewgo-discovery/internal/search"

	"github.com/gin-gonic/gin"
)

// InternalHandler exposes ingestion-facing endpoints. These sit behind the
// /internal group and are not reachable through the public gateway.
type InternalHandler struct {
	searchService *search.Service
}

func NewInternalHandler(searchService *search.Service) *InternalHandler {
	return &InternalHandler{searchService: searchService}
}

// ListingChanged handles POST /internal/listings/changed. The ingestion
// pipeline calls it after persisting a change so the index, cache and
// connected clients converge on the new state.
func (h *InternalHandler) ListingChanged(c *gin.Context) {
	var change models.ListingChange
	if err := c.ShouldBindJSON(&change); err != nil {
		_ = c.Error(apperrors.NewValidationError("body", "listing_id and kind are required"))
		return
	}

	switch change.Kind {
	case models.ChangeGeometry, models.ChangeHours, models.ChangeDeleted:
	default:
		_ = c.Error(apperrors.NewValidationError("kind", "unknown change kind"))
		return
	}

	if err := h.searchService.ListingChanged(c.Request.Context(), change); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}
