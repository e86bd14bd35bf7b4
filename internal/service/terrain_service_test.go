package service_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/terradactile/api/internal/model"
	"github.com/terradactile/api/internal/service"
)

// The test box resolves to a 2x3 grid of 6 tiles at zoom 10.
const testTileCount = 6

type fakeTileSource struct {
	mu    sync.Mutex
	calls int
	fail  func(model.TileCoord) bool
}

func (f *fakeTileSource) FetchTile(_ context.Context, coord model.TileCoord, destPath string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail != nil && f.fail(coord) {
		return errors.New("tile unavailable")
	}
	return os.WriteFile(destPath, []byte("tile"), 0o644)
}

type fakeEngine struct {
	calls          []string
	mosaicFiles    []string
	failMosaic     bool
	failDerivative model.ProductKind
}

func (f *fakeEngine) Mosaic(_ context.Context, tileFiles []string, _, destPath string) error {
	f.calls = append(f.calls, "mosaic")
	f.mosaicFiles = tileFiles
	if f.failMosaic {
		return errors.New("warp failed")
	}
	return os.WriteFile(destPath, []byte("mosaic"), 0o644)
}

func (f *fakeEngine) EncodeOptimized(_ context.Context, _, destPath string) error {
	f.calls = append(f.calls, "encode")
	return os.WriteFile(destPath, []byte("cog"), 0o644)
}

func (f *fakeEngine) RescaleForDisplay(_ context.Context, _, destPath string) error {
	f.calls = append(f.calls, "rescale")
	return os.WriteFile(destPath, []byte("display"), 0o644)
}

func (f *fakeEngine) ComputeDerivative(_ context.Context, _ string, kind model.ProductKind, destPath string) error {
	f.calls = append(f.calls, "derivative:"+string(kind))
	if f.failDerivative != "" && kind == f.failDerivative {
		return errors.New("dem processing failed")
	}
	return os.WriteFile(destPath, []byte(kind), 0o644)
}

type fakeStorage struct {
	keys    []string
	failKey string
}

func (f *fakeStorage) Upload(_ context.Context, _, key string) error {
	if f.failKey != "" && strings.HasSuffix(key, f.failKey) {
		return errors.New("store unavailable")
	}
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeStorage) Prefix(jobID string) string {
	return "s3://test-bucket/" + jobID
}

func newTestService(t *testing.T, tiles *fakeTileSource, engine *fakeEngine, storage *fakeStorage, tileLimit int) *service.TerrainService {
	t.Helper()
	return service.NewTerrainService(tiles, engine, storage, service.TerrainOptions{
		TileLimit:        tileLimit,
		FetchConcurrency: 4,
		ScratchRoot:      t.TempDir(),
	})
}

func terrainRequest(outputs ...string) *model.TerrainRequest {
	z := 10
	x1, y1, x2, y2 := -122.5, 37.0, -122.0, 37.5
	return &model.TerrainRequest{
		Z:       &z,
		X1:      &x1,
		Y1:      &y1,
		X2:      &x2,
		Y2:      &y2,
		Outputs: outputs,
	}
}

func TestRunPublishesArtifacts(t *testing.T) {
	for _, tc := range []struct {
		name     string
		outputs  []string
		expected []string
	}{
		{
			name:     "default",
			outputs:  nil,
			expected: []string{"mosaic.tif", "mosaic_display.tif", "hillshade.tif"},
		},
		{
			name:     "slope",
			outputs:  []string{"slope"},
			expected: []string{"mosaic.tif", "mosaic_display.tif", "slope.tif", "hillshade.tif"},
		},
		{
			name:     "hillshade not duplicated",
			outputs:  []string{"hillshade"},
			expected: []string{"mosaic.tif", "mosaic_display.tif", "hillshade.tif"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tiles := &fakeTileSource{}
			engine := &fakeEngine{}
			storage := &fakeStorage{}
			svc := newTestService(t, tiles, engine, storage, 50)

			prefix, err := svc.Run(context.Background(), terrainRequest(tc.outputs...))
			assert.NoError(t, err)

			assert.Equal(t, testTileCount, tiles.calls)
			assert.Equal(t, len(tc.expected), len(storage.keys))

			jobID := strings.SplitN(storage.keys[0], "/", 2)[0]
			assert.Equal(t, "s3://test-bucket/"+jobID, prefix)
			for i, name := range tc.expected {
				assert.Equal(t, jobID+"/"+name, storage.keys[i])
			}
		})
	}
}

func TestRunQuotaBoundary(t *testing.T) {
	// Exactly at the limit is accepted.
	tiles := &fakeTileSource{}
	svc := newTestService(t, tiles, &fakeEngine{}, &fakeStorage{}, testTileCount)
	_, err := svc.Run(context.Background(), terrainRequest())
	assert.NoError(t, err)

	// One over the limit is rejected before any fetch work.
	tiles = &fakeTileSource{}
	engine := &fakeEngine{}
	storage := &fakeStorage{}
	svc = newTestService(t, tiles, engine, storage, testTileCount-1)
	_, err = svc.Run(context.Background(), terrainRequest())
	assert.True(t, errors.Is(err, service.ErrQuotaExceeded))
	assert.Equal(t, 0, tiles.calls)
	assert.Equal(t, 0, len(engine.calls))
	assert.Equal(t, 0, len(storage.keys))
}

func TestRunPartialFetchTolerated(t *testing.T) {
	tiles := &fakeTileSource{
		fail: func(c model.TileCoord) bool { return c.X == 163 },
	}
	engine := &fakeEngine{}
	storage := &fakeStorage{}
	svc := newTestService(t, tiles, engine, storage, 50)

	_, err := svc.Run(context.Background(), terrainRequest())
	assert.NoError(t, err)
	assert.Equal(t, testTileCount, tiles.calls)
	// Half the grid failed; the mosaic is built from the rest.
	assert.Equal(t, testTileCount/2, len(engine.mosaicFiles))
	assert.Equal(t, 3, len(storage.keys))
}

func TestRunFetchExhausted(t *testing.T) {
	tiles := &fakeTileSource{
		fail: func(model.TileCoord) bool { return true },
	}
	engine := &fakeEngine{}
	storage := &fakeStorage{}
	svc := newTestService(t, tiles, engine, storage, 50)

	_, err := svc.Run(context.Background(), terrainRequest())
	assert.True(t, errors.Is(err, service.ErrTileFetchExhausted))
	assert.Equal(t, testTileCount, tiles.calls)
	assert.Equal(t, 0, len(engine.calls))
	assert.Equal(t, 0, len(storage.keys))
}

func TestRunEngineFailureIsFatal(t *testing.T) {
	engine := &fakeEngine{failMosaic: true}
	storage := &fakeStorage{}
	svc := newTestService(t, &fakeTileSource{}, engine, storage, 50)

	_, err := svc.Run(context.Background(), terrainRequest())
	assert.True(t, errors.Is(err, service.ErrEngineFailure))
	assert.Equal(t, 0, len(storage.keys))
}

func TestRunDerivativeFailureIsFatal(t *testing.T) {
	// Unlike tile fetch there is no partial tolerance for products, but
	// artifacts published before the failure stay published.
	engine := &fakeEngine{failDerivative: model.ProductHillshade}
	storage := &fakeStorage{}
	svc := newTestService(t, &fakeTileSource{}, engine, storage, 50)

	_, err := svc.Run(context.Background(), terrainRequest("slope"))
	assert.True(t, errors.Is(err, service.ErrEngineFailure))
	assert.Equal(t, 3, len(storage.keys))
	assert.True(t, strings.HasSuffix(storage.keys[2], "/slope.tif"))
}

func TestRunPublishFailureIsFatal(t *testing.T) {
	storage := &fakeStorage{failKey: "/mosaic.tif"}
	svc := newTestService(t, &fakeTileSource{}, &fakeEngine{}, storage, 50)

	_, err := svc.Run(context.Background(), terrainRequest())
	assert.True(t, errors.Is(err, service.ErrPublishFailure))
	assert.Equal(t, 0, len(storage.keys))
}
