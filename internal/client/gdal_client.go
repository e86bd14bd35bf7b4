package client

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/terradactile/api/internal/config"
	"github.com/terradactile/api/internal/model"
)

// RasterEngine defines the interface for the external raster processing
// engine. All paths are job-scratch local; every failure is job-fatal.
type RasterEngine interface {
	// Mosaic merges the tile files into one raster cropped to the cutline
	// polygon (WKT, in the mosaic's projected coordinate system).
	Mosaic(ctx context.Context, tileFiles []string, cutlineWKT, destPath string) error
	// EncodeOptimized re-encodes a raster as a tiled, compressed GeoTIFF
	// with an embedded overview pyramid. The source file gains overviews in
	// place; it is scratch-local so that is harmless.
	EncodeOptimized(ctx context.Context, srcPath, destPath string) error
	// RescaleForDisplay produces a byte-typed min/max-rescaled copy for
	// visualization.
	RescaleForDisplay(ctx context.Context, srcPath, destPath string) error
	// ComputeDerivative runs a terrain algorithm (hillshade, slope, ...)
	// over an elevation raster. The kind is passed through unvalidated; the
	// engine rejects kinds it does not know.
	ComputeDerivative(ctx context.Context, srcPath string, kind model.ProductKind, destPath string) error
}

// overviewLevels is the fixed reduced-resolution pyramid embedded in every
// optimized artifact.
var overviewLevels = []string{"2", "4", "8", "16", "32", "64"}

// GDALEngine implements RasterEngine by shelling out to the GDAL command
// line tools.
type GDALEngine struct {
	binDir  string
	timeout time.Duration
}

// NewGDALEngine creates a new GDAL CLI engine client.
func NewGDALEngine(cfg *config.GDALConfig) *GDALEngine {
	return &GDALEngine{
		binDir:  cfg.BinDir,
		timeout: time.Duration(cfg.Timeout) * time.Second,
	}
}

func (e *GDALEngine) Mosaic(ctx context.Context, tileFiles []string, cutlineWKT, destPath string) error {
	if len(tileFiles) == 0 {
		return fmt.Errorf("mosaic requires at least one input tile")
	}

	dir := filepath.Dir(destPath)
	vrtPath := filepath.Join(dir, "mosaic.vrt")
	if err := e.run(ctx, "gdalbuildvrt", append([]string{vrtPath}, tileFiles...)...); err != nil {
		return err
	}

	cutlinePath := filepath.Join(dir, "cutline.csv")
	if err := writeCutlineCSV(cutlinePath, cutlineWKT); err != nil {
		return err
	}

	return e.run(ctx, "gdalwarp",
		"-of", "GTiff",
		"-cutline", cutlinePath,
		"-crop_to_cutline",
		vrtPath, destPath,
	)
}

func (e *GDALEngine) EncodeOptimized(ctx context.Context, srcPath, destPath string) error {
	if err := e.run(ctx, "gdaladdo", append([]string{"-r", "nearest", srcPath}, overviewLevels...)...); err != nil {
		return err
	}
	return e.run(ctx, "gdal_translate",
		"-of", "GTiff",
		"-co", "COPY_SRC_OVERVIEWS=YES",
		"-co", "TILED=YES",
		"-co", "COMPRESS=LZW",
		srcPath, destPath,
	)
}

func (e *GDALEngine) RescaleForDisplay(ctx context.Context, srcPath, destPath string) error {
	return e.run(ctx, "gdal_translate",
		"-of", "GTiff",
		"-ot", "Byte",
		"-scale",
		srcPath, destPath,
	)
}

func (e *GDALEngine) ComputeDerivative(ctx context.Context, srcPath string, kind model.ProductKind, destPath string) error {
	args := []string{string(kind), srcPath, destPath, "-of", "GTiff"}
	// gdaldem rejects parameters that do not apply to the processing mode.
	switch kind {
	case model.ProductHillshade:
		args = append(args, "-z", "1", "-s", "1", "-az", "315", "-alt", "45")
	case model.ProductSlope:
		args = append(args, "-s", "1")
	}
	return e.run(ctx, "gdaldem", args...)
}

func (e *GDALEngine) run(ctx context.Context, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	bin := name
	if e.binDir != "" {
		bin = filepath.Join(e.binDir, name)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// writeCutlineCSV writes the one-row id,wkt datasource that gdalwarp reads
// the cutline polygon from.
func writeCutlineCSV(path, cutlineWKT string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create cutline file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "wkt"}); err != nil {
		return err
	}
	if err := w.Write([]string{"1", cutlineWKT}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
