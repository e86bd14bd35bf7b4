package service

import (
	"context"
	"log"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/terradactile/api/internal/model"
)

var (
	tilesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "terradactile_tiles_fetched_total",
		Help: "The total number of elevation tiles fetched successfully",
	})
	tileFetchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "terradactile_tile_fetch_failures_total",
		Help: "The total number of elevation tile fetches that failed and were skipped",
	})
)

// fetchTiles downloads the tile set into the job's scratch directory through
// a bounded worker pool and returns the local paths of the tiles that
// succeeded, preserving the grid's row-major order.
//
// A single tile's failure is logged and skipped and never aborts the rest;
// elevation coverage has gaps (ocean, dataset edges), so the job proceeds
// with whatever subset succeeded. All outstanding fetches are joined before
// returning.
func (s *TerrainService) fetchTiles(ctx context.Context, coords []model.TileCoord, scratchDir string) []string {
	results := make([]string, len(coords))
	sem := make(chan struct{}, s.fetchConcurrency)
	var wg sync.WaitGroup

	for i, coord := range coords {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, coord model.TileCoord) {
			defer wg.Done()
			defer func() { <-sem }()

			destPath := filepath.Join(scratchDir, coord.Filename())
			if err := s.tiles.FetchTile(ctx, coord, destPath); err != nil {
				tileFetchFailuresTotal.Inc()
				log.Printf("Skipping tile %s: %v", coord, err)
				return
			}
			tilesFetchedTotal.Inc()
			results[i] = destPath
		}(i, coord)
	}
	wg.Wait()

	files := make([]string, 0, len(coords))
	for _, path := range results {
		if path != "" {
			files = append(files, path)
		}
	}
	return files
}
