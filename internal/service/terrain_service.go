package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/terradactile/api/internal/client"
	"github.com/terradactile/api/internal/model"
	"github.com/terradactile/api/internal/tilegrid"
)

var jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "terradactile_jobs_total",
	Help: "The total number of terrain jobs by outcome",
}, []string{"outcome"})

// TerrainOptions carries the orchestrator's admission and resource settings.
type TerrainOptions struct {
	TileLimit        int    // max tiles per job, the admission-control quota
	FetchConcurrency int    // bounded worker pool size for tile downloads
	ScratchRoot      string // parent directory for per-job scratch space
}

// TerrainService orchestrates one terrain job end to end: grid resolution,
// quota gate, tile fetch, mosaic assembly, product pipeline, publish.
type TerrainService struct {
	tiles            client.TileSource
	engine           client.RasterEngine
	storage          client.StorageClient
	tileLimit        int
	fetchConcurrency int
	scratchRoot      string
}

// NewTerrainService creates a new terrain job orchestrator. All collaborators
// are injected so tests can substitute doubles.
func NewTerrainService(tiles client.TileSource, engine client.RasterEngine, storage client.StorageClient, opts TerrainOptions) *TerrainService {
	return &TerrainService{
		tiles:            tiles,
		engine:           engine,
		storage:          storage,
		tileLimit:        opts.TileLimit,
		fetchConcurrency: opts.FetchConcurrency,
		scratchRoot:      opts.ScratchRoot,
	}
}

// Run executes the full pipeline for one request and returns the object
// store location prefix containing the job's published artifacts. Artifacts
// already published when a later stage fails are left in place; the key
// namespace is unique per job.
func (s *TerrainService) Run(ctx context.Context, req *model.TerrainRequest) (string, error) {
	box := model.NewBoundingBox(*req.X1, *req.Y1, *req.X2, *req.Y2)
	job := model.NewJob(req.ProductKinds())

	coords := tilegrid.Resolve(*req.Z, box)
	job.State = model.JobStateGridResolved

	// Admission control: the quota gate runs before any fetch or build work.
	if len(coords) > s.tileLimit {
		return "", s.fail(job, fmt.Errorf("%w: requested too many tiles (%d in total, limit is %d). Try a lower zoom level or a smaller bbox",
			ErrQuotaExceeded, len(coords), s.tileLimit))
	}
	job.State = model.JobStateQuotaChecked

	scratchDir, err := os.MkdirTemp(s.scratchRoot, "terradactile-"+job.ID+"-")
	if err != nil {
		return "", s.fail(job, fmt.Errorf("failed to create scratch dir: %w", err))
	}
	job.ScratchDir = scratchDir
	defer os.RemoveAll(scratchDir)

	tileFiles := s.fetchTiles(ctx, coords, scratchDir)
	if len(tileFiles) == 0 {
		return "", s.fail(job, fmt.Errorf("%w: none of the %d requested tiles could be retrieved", ErrTileFetchExhausted, len(coords)))
	}
	job.State = model.JobStateTilesFetched
	log.Printf("Job %s: fetched %d/%d tiles", job.ID, len(tileFiles), len(coords))

	mosaicPath := filepath.Join(scratchDir, "mos.tif")
	if err := s.engine.Mosaic(ctx, tileFiles, tilegrid.CutlineWKT(box), mosaicPath); err != nil {
		return "", s.fail(job, fmt.Errorf("%w: mosaic: %v", ErrEngineFailure, err))
	}
	job.State = model.JobStateMosaicBuilt

	mosaicCOG := filepath.Join(scratchDir, "mos_cog.tif")
	if err := s.engine.EncodeOptimized(ctx, mosaicPath, mosaicCOG); err != nil {
		return "", s.fail(job, fmt.Errorf("%w: mosaic encode: %v", ErrEngineFailure, err))
	}
	if err := s.publish(ctx, job, model.Artifact{LocalPath: mosaicCOG, Key: job.ID + "/mosaic.tif"}); err != nil {
		return "", err
	}

	displayPath := filepath.Join(scratchDir, "mos_display.tif")
	if err := s.engine.RescaleForDisplay(ctx, mosaicCOG, displayPath); err != nil {
		return "", s.fail(job, fmt.Errorf("%w: display rescale: %v", ErrEngineFailure, err))
	}
	if err := s.publish(ctx, job, model.Artifact{LocalPath: displayPath, Key: job.ID + "/mosaic_display.tif"}); err != nil {
		return "", err
	}
	job.State = model.JobStateBasePublished

	// Derived products run in request order, default hillshade last. Unlike
	// tile fetch there is no partial tolerance: a failed derivative is
	// job-fatal.
	for _, kind := range job.Outputs {
		if err := s.buildProduct(ctx, job, mosaicCOG, kind); err != nil {
			return "", err
		}
	}
	job.State = model.JobStateProductsBuilt

	job.State = model.JobStateDone
	jobsTotal.WithLabelValues("success").Inc()
	return s.storage.Prefix(job.ID), nil
}

// buildProduct computes one derivative from the mosaic, re-encodes it
// through the optimized path and publishes it under {jobID}/{kind}.tif.
func (s *TerrainService) buildProduct(ctx context.Context, job *model.Job, mosaicCOG string, kind model.ProductKind) error {
	rawPath := filepath.Join(job.ScratchDir, fmt.Sprintf("%s.tif", kind))
	if err := s.engine.ComputeDerivative(ctx, mosaicCOG, kind, rawPath); err != nil {
		return s.fail(job, fmt.Errorf("%w: %s: %v", ErrEngineFailure, kind, err))
	}

	cogPath := filepath.Join(job.ScratchDir, fmt.Sprintf("%s_cog.tif", kind))
	if err := s.engine.EncodeOptimized(ctx, rawPath, cogPath); err != nil {
		return s.fail(job, fmt.Errorf("%w: %s encode: %v", ErrEngineFailure, kind, err))
	}

	return s.publish(ctx, job, model.Artifact{
		LocalPath: cogPath,
		Key:       fmt.Sprintf("%s/%s.tif", job.ID, kind),
	})
}

func (s *TerrainService) publish(ctx context.Context, job *model.Job, artifact model.Artifact) error {
	if err := s.storage.Upload(ctx, artifact.LocalPath, artifact.Key); err != nil {
		return s.fail(job, fmt.Errorf("%w: %s: %v", ErrPublishFailure, artifact.Key, err))
	}
	return nil
}

func (s *TerrainService) fail(job *model.Job, err error) error {
	job.State = model.JobStateFailed
	jobsTotal.WithLabelValues("failure").Inc()
	log.Printf("Job %s failed: %v", job.ID, err)
	return err
}
