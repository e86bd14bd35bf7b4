package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/terradactile/api/internal/config"
	"github.com/terradactile/api/internal/model"
)

// TileSource defines the interface for retrieving elevation raster tiles.
type TileSource interface {
	FetchTile(ctx context.Context, coord model.TileCoord, destPath string) error
}

// HTTPTileSource implements TileSource against a z/x/y GeoTIFF tile endpoint.
type HTTPTileSource struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPTileSource creates a new tile source client. The configured timeout
// bounds each individual tile download.
func NewHTTPTileSource(cfg *config.TilesConfig) *HTTPTileSource {
	return &HTTPTileSource{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.BaseURL,
	}
}

// FetchTile downloads one tile into destPath. A non-200 response is an error;
// the caller decides whether to tolerate it.
func (c *HTTPTileSource) FetchTile(ctx context.Context, coord model.TileCoord, destPath string) error {
	url := fmt.Sprintf("%s/%d/%d/%d.tif", c.baseURL, coord.Z, coord.X, coord.Y)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build tile request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("no such tile %s: status %d", coord, resp.StatusCode)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create tile file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("failed to write tile file: %w", err)
	}
	return nil
}
