package handlers

import (
	"net/http"
	"strconv"

	apperrors "jewgo-discovery/internal/errors"
	"jewgo-discovery/internal/models"
	"jewgo-discovery/internal/search"

	"github.com/gin-gonic/gin"
)

type SearchHandler struct {
	searchService *search.Service
}

func NewSearchHandler(searchService *search.Service) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// SearchListings handles GET /api/listings/search. Filters: lat/lon + radius
// (meters), open_now, q, category, page_size, cursor.
func (h *SearchHandler) SearchListings(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response, err := h.searchService.Search(c.Request.Context(), *filter)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// GetListing handles GET /api/listings/:id.
func (h *SearchHandler) GetListing(c *gin.Context) {
	listing, err := h.searchService.GetListing(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func parseFilter(c *gin.Context) (*models.SearchFilter, error) {
	var filter models.SearchFilter

	latStr := c.Query("lat")
	lonStr := c.Query("lon")
	if latStr != "" || lonStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return nil, apperrors.NewValidationError("lat", "must be a number")
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return nil, apperrors.NewValidationError("lon", "must be a number")
		}
		filter.Origin = &models.GeoPoint{Lat: lat, Lon: lon}

		radius, err := strconv.ParseFloat(c.DefaultQuery("radius", "0"), 64)
		if err != nil {
			return nil, apperrors.NewValidationError("radius", "must be a number")
		}
		filter.RadiusMeters = radius
	}

	filter.OpenNow = c.Query("open_now") == "true"
	filter.Query = c.Query("q")
	filter.Category = c.Query("category")
	filter.Cursor = c.Query("cursor")

	if ps := c.Query("page_size"); ps != "" {
		pageSize, err := strconv.Atoi(ps)
		if err != nil {
			return nil, apperrors.NewValidationError("page_size", "must be an integer")
		}
		filter.PageSize = pageSize
	}

	return &filter, nil
}
