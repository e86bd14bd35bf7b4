// Package tilegrid holds the pure coordinate math of the pipeline: resolving
// a geographic bounding box into the covering web-mercator tile grid, and
// building the projected clip polygon the mosaic is cropped back down to.
package tilegrid

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/project"

	"github.com/terradactile/api/internal/model"
)

// tileIndex projects a geographic point through the spherical web-mercator
// forward transform and scales it into tile-index space at the given zoom.
// Truncation toward zero matches the tile pyramid convention.
func tileIndex(lat, lon float64, zoom int) (int, int) {
	x := lon * math.Pi / 180
	y := math.Log(math.Tan(0.25*math.Pi + 0.5*lat*math.Pi/180))
	tiles, diameter := float64(int(1)<<zoom), 2*math.Pi
	return int(tiles * (x + math.Pi) / diameter), int(tiles * (math.Pi - y) / diameter)
}

// Resolve returns the tile grid fully covering the box at the given zoom, in
// row-major order (y ascending, then x ascending). The NW corner gives
// (xmin, ymin) and the SE corner (xmax, ymax); both ends are inclusive, so a
// degenerate box still resolves to one tile. Indices are not clamped to the
// valid range: an out-of-range tile surfaces as a fetch failure downstream
// rather than being silently dropped here.
func Resolve(zoom int, b model.BoundingBox) []model.TileCoord {
	xmin, ymin := tileIndex(b.MaxLat, b.MinLon, zoom)
	xmax, ymax := tileIndex(b.MinLat, b.MaxLon, zoom)

	coords := make([]model.TileCoord, 0, (xmax-xmin+1)*(ymax-ymin+1))
	for y := ymin; y <= ymax; y++ {
		for x := xmin; x <= xmax; x++ {
			coords = append(coords, model.TileCoord{Z: zoom, X: x, Y: y})
		}
	}
	return coords
}

// ClipPolygon returns the box as a closed 5-point rectangle in EPSG:3857,
// the mosaic's coordinate system. The tile grid over-covers the request, so
// the mosaic is cropped to exactly this polygon.
func ClipPolygon(b model.BoundingBox) orb.Polygon {
	min := project.WGS84.ToMercator(orb.Point{b.MinLon, b.MinLat})
	max := project.WGS84.ToMercator(orb.Point{b.MaxLon, b.MaxLat})
	return orb.Polygon{orb.Ring{
		{min[0], max[1]},
		{max[0], max[1]},
		{max[0], min[1]},
		{min[0], min[1]},
		{min[0], max[1]},
	}}
}

// CutlineWKT serializes the clip polygon for the raster engine's cutline
// datasource.
func CutlineWKT(b model.BoundingBox) string {
	return wkt.MarshalString(ClipPolygon(b))
}
