package model

import "github.com/google/uuid"

// A Job is one end-to-end pipeline invocation. Its ID namespaces both the
// scratch directory and every published object key, so concurrent jobs never
// interfere.
type Job struct {
	ID         string
	ScratchDir string
	State      JobState
	Outputs    []ProductKind
}

// NewJob creates a job with a fresh id and the normalized output list.
// The scratch directory is assigned by the orchestrator once quota passes.
func NewJob(requested []ProductKind) *Job {
	return &Job{
		ID:      uuid.New().String(),
		State:   JobStateCreated,
		Outputs: NormalizeOutputs(requested),
	}
}

// An Artifact pairs a finished local file with the object-store key it must
// be published under. Each artifact is published exactly once, in order of
// production.
type Artifact struct {
	LocalPath string
	Key       string
}
