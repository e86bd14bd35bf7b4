package model

// Product kinds
type ProductKind string

const (
	ProductHillshade   ProductKind = "hillshade"
	ProductSlope       ProductKind = "slope"
	ProductAspect      ProductKind = "aspect"
	ProductTRI         ProductKind = "TRI"
	ProductTPI         ProductKind = "TPI"
	ProductRoughness   ProductKind = "roughness"
	ProductColorRelief ProductKind = "color-relief"
)

// KnownProducts lists the derivative kinds the raster engine is known to
// accept. Unknown kinds are still passed through; the engine is the
// authority on validity, not this list.
var KnownProducts = []ProductKind{
	ProductHillshade, ProductSlope, ProductAspect,
	ProductTRI, ProductTPI, ProductRoughness, ProductColorRelief,
}

// NormalizeOutputs returns the requested product kinds in request order with
// hillshade appended last unless it is already present. Every job produces a
// hillshade regardless of what was asked for.
func NormalizeOutputs(requested []ProductKind) []ProductKind {
	outputs := make([]ProductKind, 0, len(requested)+1)
	hasHillshade := false
	for _, kind := range requested {
		if kind == ProductHillshade {
			hasHillshade = true
		}
		outputs = append(outputs, kind)
	}
	if !hasHillshade {
		outputs = append(outputs, ProductHillshade)
	}
	return outputs
}

// Job states
type JobState string

const (
	JobStateCreated       JobState = "created"
	JobStateGridResolved  JobState = "grid_resolved"
	JobStateQuotaChecked  JobState = "quota_checked"
	JobStateTilesFetched  JobState = "tiles_fetched"
	JobStateMosaicBuilt   JobState = "mosaic_built"
	JobStateBasePublished JobState = "base_published"
	JobStateProductsBuilt JobState = "products_built"
	JobStateDone          JobState = "done"
	JobStateFailed        JobState = "failed"
)
