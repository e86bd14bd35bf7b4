package model_test

import (
	"strconv"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/terradactile/api/internal/model"
)

func TestNormalizeOutputs(t *testing.T) {
	for i, tc := range []struct {
		requested []model.ProductKind
		expected  []model.ProductKind
	}{
		{
			requested: nil,
			expected:  []model.ProductKind{model.ProductHillshade},
		},
		{
			requested: []model.ProductKind{model.ProductSlope},
			expected:  []model.ProductKind{model.ProductSlope, model.ProductHillshade},
		},
		{
			requested: []model.ProductKind{model.ProductHillshade},
			expected:  []model.ProductKind{model.ProductHillshade},
		},
		{
			requested: []model.ProductKind{model.ProductHillshade, model.ProductSlope},
			expected:  []model.ProductKind{model.ProductHillshade, model.ProductSlope},
		},
		{
			// Unknown kinds pass through untouched; the engine decides.
			requested: []model.ProductKind{"contours", model.ProductAspect},
			expected:  []model.ProductKind{"contours", model.ProductAspect, model.ProductHillshade},
		},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			assert.Equal(t, tc.expected, model.NormalizeOutputs(tc.requested))
		})
	}
}

func TestNewBoundingBox(t *testing.T) {
	expected := model.BoundingBox{MinLon: -122.5, MinLat: 37.0, MaxLon: -122.0, MaxLat: 37.5}
	for i, corners := range [][4]float64{
		{-122.5, 37.0, -122.0, 37.5},
		{-122.0, 37.5, -122.5, 37.0},
		{-122.5, 37.5, -122.0, 37.0},
		{-122.0, 37.0, -122.5, 37.5},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			assert.Equal(t, expected, model.NewBoundingBox(corners[0], corners[1], corners[2], corners[3]))
		})
	}
}

func TestTileCoordFilename(t *testing.T) {
	assert.Equal(t, "10-163-396.tif", model.TileCoord{Z: 10, X: 163, Y: 396}.Filename())
}
