package model

import "fmt"

// TerrainRequest is the body of POST /api/terrain. The corner coordinates
// may arrive in any order; BoundingBox normalization sorts the axes.
type TerrainRequest struct {
	Z       *int     `json:"z" validate:"required,gte=0,lte=15"`
	X1      *float64 `json:"x1" validate:"required,gte=-180,lte=180"`
	Y1      *float64 `json:"y1" validate:"required,gte=-85.051129,lte=85.051129"`
	X2      *float64 `json:"x2" validate:"required,gte=-180,lte=180"`
	Y2      *float64 `json:"y2" validate:"required,gte=-85.051129,lte=85.051129"`
	Outputs []string `json:"outputs"`
}

// ProductKinds converts the raw output strings from the request.
func (r *TerrainRequest) ProductKinds() []ProductKind {
	kinds := make([]ProductKind, 0, len(r.Outputs))
	for _, o := range r.Outputs {
		kinds = append(kinds, ProductKind(o))
	}
	return kinds
}

// A TileCoord identifies one raster tile in a web-mercator tile pyramid.
type TileCoord struct {
	Z int
	X int
	Y int
}

// Filename is the scratch-local name a fetched tile is stored under.
func (t TileCoord) Filename() string {
	return fmt.Sprintf("%d-%d-%d.tif", t.Z, t.X, t.Y)
}

func (t TileCoord) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// A BoundingBox is a geographic extent in degrees, normalized so that
// min <= max on both axes.
type BoundingBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// NewBoundingBox builds a normalized box from two opposite corners given in
// any order.
func NewBoundingBox(x1, y1, x2, y2 float64) BoundingBox {
	b := BoundingBox{MinLon: x1, MinLat: y1, MaxLon: x2, MaxLat: y2}
	if b.MinLon > b.MaxLon {
		b.MinLon, b.MaxLon = b.MaxLon, b.MinLon
	}
	if b.MinLat > b.MaxLat {
		b.MinLat, b.MaxLat = b.MaxLat, b.MinLat
	}
	return b
}
