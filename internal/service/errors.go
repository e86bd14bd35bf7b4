package service

import "errors"

// Failure kinds the pipeline can surface. Handlers branch on these with
// errors.Is to pick the response code; the wrapped message carries the
// user-facing detail.
var (
	ErrQuotaExceeded      = errors.New("tile quota exceeded")
	ErrTileFetchExhausted = errors.New("no tiles could be fetched")
	ErrEngineFailure      = errors.New("raster engine failure")
	ErrPublishFailure     = errors.New("artifact publish failure")
)
