package models

import (
	"time"
)

// ChangeKind classifies a listing-change notification from the CRUD layer.
type ChangeKind string

const (
	ChangeGeometry ChangeKind = "geometry-changed"
	ChangeHours    ChangeKind = "hours-changed"
	ChangeDeleted  ChangeKind = "deleted"
)

// ListingChange is the payload of the listing-change notification interface.
type ListingChange struct {
	ListingID string     `json:"listing_id" binding:"required"`
	Kind      ChangeKind `json:"kind" binding:"required"`
}

// Realtime message types pushed to subscribed connections.
const (
	MessageListingStatusChanged = "listing-status-changed"
	MessageFilterResultChanged  = "filter-result-changed"
	MessageHeartbeat            = "heartbeat"
)

// Event is the envelope for every message a room delivers.
type Event struct {
	Type   string      `json:"type"`
	Room   string      `json:"room,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	SentAt time.Time   `json:"sent_at"`
}

// ListingStatusEvent reports an open/closed transition.
type ListingStatusEvent struct {
	ListingID string    `json:"listing_id"`
	Open      bool      `json:"open"`
	At        time.Time `json:"at"`
}

// FilterResultEvent reports a listing entering or leaving a room's active
// result set.
type FilterResultEvent struct {
	ListingID string     `json:"listing_id"`
	Kind      ChangeKind `json:"kind"`
}
