package cache

import (
	"fmt"
)

// cache key for one page of search results under a filter signature.
func SearchPageKey(signature string, offset int) string {
	return fmt.Sprintf("search:%s:page:%d", signature, offset)
}

// tag set holding every cache key that contains listings from a geographic cell.
func CellTagKey(cell string) string {
	return fmt.Sprintf("cell:keys:%s", cell)
}

// tag set holding every cache key that contains a specific listing.
func ListingTagKey(listingID string) string {
	return fmt.Sprintf("listing:keys:%s", listingID)
}

// cache key for a single listing document.
func ListingKey(id string) string {
	return fmt.Sprintf("listing:%s", id)
}
