package warmer

import (
	"context"
	"time"

	"jewgo-discovery/internal/models"
	"jewgo-discovery/internal/pager"
	"jewgo-discovery/internal/search"
	"jewgo-discovery/pkg/config"
	"jewgo-discovery/pkg/logger"
)

// Warmer proactively populates cache entries for configured hot filter
// signatures on a schedule, decoupled from request traffic. It is a bounded
// background task: started once, stopped through an explicit signal.
type Warmer struct {
	service    *search.Service
	prefetcher *pager.Prefetcher
	interval   time.Duration
	filters    []models.SearchFilter

	stop chan struct{}
	done chan struct{}
}

func New(service *search.Service, prefetcher *pager.Prefetcher, cfg *config.Config) *Warmer {
	filters := make([]models.SearchFilter, 0, len(cfg.Warmer.HotFilters))
	for _, hf := range cfg.Warmer.HotFilters {
		filters = append(filters, models.SearchFilter{
			Origin:       &models.GeoPoint{Lat: hf.Lat, Lon: hf.Lon},
			RadiusMeters: hf.RadiusMeters,
			Category:     hf.Category,
			OpenNow:      hf.OpenNow,
		})
	}
	return &Warmer{
		service:    service,
		prefetcher: prefetcher,
		interval:   cfg.WarmerInterval(),
		filters:    filters,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the warming loop. An immediate first pass runs before the
// ticker takes over.
func (w *Warmer) Start() {
	go func() {
		defer close(w.done)
		w.warmOnce()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.warmOnce()
				if w.prefetcher != nil {
					w.prefetcher.Sweep()
				}
			case <-w.stop:
				return
			}
		}
	}()
}

// Stop signals the loop to exit and waits for it.
func (w *Warmer) Stop() {
	close(w.stop)
	<-w.done
	logger.GlobalLogger.Println("Cache warmer stopped")
}

func (w *Warmer) warmOnce() {
	if len(w.filters) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()
	for _, f := range w.filters {
		if err := w.service.WarmFilter(ctx, f); err != nil {
			logger.GlobalLogger.Errorf("cache warming failed for filter %s: %v", search.Signature(f), err)
		}
	}
}
