package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/terradactile/api/internal/handler"
	"github.com/terradactile/api/internal/middleware"
	"github.com/terradactile/api/internal/model"
	"github.com/terradactile/api/internal/service"
)

const testOrigin = "https://terradactile.netlify.app"

// testApp holds all components needed for testing
type testApp struct {
	app     *fiber.App
	tiles   *stubTileSource
	storage *stubStorage
}

// stubTileSource fetches every tile successfully unless told otherwise.
type stubTileSource struct {
	mu      sync.Mutex
	calls   int
	failAll bool
}

func (s *stubTileSource) FetchTile(_ context.Context, _ model.TileCoord, destPath string) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.failAll {
		return errors.New("tile unavailable")
	}
	return os.WriteFile(destPath, []byte("tile"), 0o644)
}

// stubEngine writes placeholder outputs for every raster operation.
type stubEngine struct{}

func (stubEngine) Mosaic(_ context.Context, _ []string, _, destPath string) error {
	return os.WriteFile(destPath, []byte("mosaic"), 0o644)
}

func (stubEngine) EncodeOptimized(_ context.Context, _, destPath string) error {
	return os.WriteFile(destPath, []byte("cog"), 0o644)
}

func (stubEngine) RescaleForDisplay(_ context.Context, _, destPath string) error {
	return os.WriteFile(destPath, []byte("display"), 0o644)
}

func (stubEngine) ComputeDerivative(_ context.Context, _ string, kind model.ProductKind, destPath string) error {
	return os.WriteFile(destPath, []byte(kind), 0o644)
}

// stubStorage records published keys in order.
type stubStorage struct {
	keys []string
}

func (s *stubStorage) Upload(_ context.Context, _, key string) error {
	s.keys = append(s.keys, key)
	return nil
}

func (s *stubStorage) Prefix(jobID string) string {
	return "s3://test-bucket/" + jobID
}

// setupApp creates a Fiber app wired like main.go but with stub
// collaborators, so no network or gdal binaries are needed.
func setupApp(t *testing.T, tileLimit int) *testApp {
	t.Helper()

	tiles := &stubTileSource{}
	storage := &stubStorage{}

	terrainService := service.NewTerrainService(tiles, stubEngine{}, storage, service.TerrainOptions{
		TileLimit:        tileLimit,
		FetchConcurrency: 4,
		ScratchRoot:      t.TempDir(),
	})

	validate := validator.New()
	terrainHandler := handler.NewTerrainHandler(terrainService, validate)

	app := fiber.New()
	api := app.Group("/api", middleware.OriginAllowList([]string{testOrigin}))
	api.Post("/terrain", terrainHandler.Create)

	return &testApp{app: app, tiles: tiles, storage: storage}
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doOriginRequest performs a request from the allow-listed origin.
func doOriginRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	return doRequest(app, method, path, body, map[string]string{
		"Origin": testOrigin,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus fails the test if the response status does not match.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
