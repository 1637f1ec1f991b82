package watcher

import (
	"context"
	"time"

	"jewgo-discovery/internal/geo"
	"jewgo-discovery/internal/hours"
	"jewgo-discovery/internal/models"
	"jewgo-discovery/internal/repositories"
	"jewgo-discovery/internal/search"
	"jewgo-discovery/pkg/logger"
)

// StatusWatcher pushes open/closed transitions to subscribers instead of
// leaving clients to poll. Once a minute it evaluates the listings inside
// cells that have at least one active room and publishes a
// listing-status-changed event whenever a listing's state flipped.
type StatusWatcher struct {
	repo     repositories.ListingRepository
	geoIndex *geo.Index
	hours    *hours.Evaluator
	hub      search.Broadcaster
	rooms    func() []string

	lastState map[string]bool

	stop chan struct{}
	done chan struct{}
}

func New(repo repositories.ListingRepository, geoIndex *geo.Index, evaluator *hours.Evaluator, hub search.Broadcaster, rooms func() []string) *StatusWatcher {
	return &StatusWatcher{
		repo:      repo,
		geoIndex:  geoIndex,
		hours:     evaluator,
		hub:       hub,
		rooms:     rooms,
		lastState: make(map[string]bool),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the watch loop aligned to minute boundaries, since hours
// comparisons operate at one-minute resolution.
func (w *StatusWatcher) Start() {
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.sweep(time.Now())
			case <-w.stop:
				return
			}
		}
	}()
}

// Stop signals the loop to exit and waits for it.
func (w *StatusWatcher) Stop() {
	close(w.stop)
	<-w.done
	logger.GlobalLogger.Println("Status watcher stopped")
}

func (w *StatusWatcher) sweep(now time.Time) {
	cells := make(map[string]struct{})
	for _, room := range w.rooms() {
		if cell := search.CellOfRoom(room); cell != "" {
			cells[cell] = struct{}{}
		}
	}
	if len(cells) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for cell := range cells {
		ids := w.geoIndex.IDsInCell(cell)
		if len(ids) == 0 {
			continue
		}
		listings, err := w.repo.FindByIDs(ctx, ids)
		if err != nil {
			logger.GlobalLogger.Errorf("status sweep failed for cell %s: %v", cell, err)
			continue
		}
		for i := range listings {
			l := &listings[i]
			open, known := w.hours.IsOpenAt(l, now)
			if !known {
				continue
			}
			prev, seen := w.lastState[l.ID]
			w.lastState[l.ID] = open
			if !seen || prev == open {
				continue
			}
			w.hub.PublishCell(cell, models.Event{
				Type: models.MessageListingStatusChanged,
				Data: models.ListingStatusEvent{
					ListingID: l.ID,
					Open:      open,
					At:        now.Truncate(time.Minute),
				},
				SentAt: now,
			})
		}
	}
}
