package models

import (
	"time"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DayHours holds the open/close interval for one weekday in the listing's
// local time ("HH:MM"). A close earlier than the open means the interval
// spills past midnight into the next calendar day.
type DayHours struct {
	Open   *string `json:"open,omitempty" bson:"open,omitempty"`
	Close  *string `json:"close,omitempty" bson:"close,omitempty"`
	Closed bool    `json:"closed" bson:"closed"`
}

// WeeklyHours is indexed by time.Weekday (Sunday = 0).
type WeeklyHours [7]DayHours

// Listing is the read-only view of a venue this core serves. Records are
// created and updated by the external CRUD layer.
type Listing struct {
	ID        string       `json:"id" bson:"listing_id"`
	Name      string       `json:"name" bson:"name"`
	Location  *GeoPoint    `json:"location,omitempty" bson:"-"`
	Hours     *WeeklyHours `json:"hours,omitempty" bson:"hours,omitempty"`
	Timezone  string       `json:"timezone" bson:"timezone"`
	Category  string       `json:"category" bson:"category"`
	UpdatedAt time.Time    `json:"updated_at" bson:"updated_at"`
}

// HasHoursData reports whether the listing carries any usable hours
// information. Listings without it are "unknown" for open-now purposes.
func (l *Listing) HasHoursData() bool {
	if l.Hours == nil || l.Timezone == "" {
		return false
	}
	for _, d := range l.Hours {
		if d.Closed || (d.Open != nil && d.Close != nil) {
			return true
		}
	}
	return false
}
