package pipeline

import (
	"errors"
	"fmt"
)

// Per-document failures. They exclude one document and never abort a run.
var (
	ErrAcquisition = errors.New("document acquisition failed")
	ErrRender      = errors.New("document rendering failed")
	ErrExtraction  = errors.New("fact extraction failed")
)

// Whole-run failures surfaced to the caller instead of a report
var (
	ErrGraphBuild          = errors.New("graph build failed")
	ErrRuleEvaluation      = errors.New("rule evaluation failed")
	ErrApplicationNotFound = errors.New("application not found")
	ErrNoDocuments         = errors.New("no documents declared")
	ErrNoUsableDocuments   = errors.New("no document produced usable facts")
)

// Stage is a step of one verification run
type Stage string

const (
	StageFetching       Stage = "fetching"
	StageRendering      Stage = "rendering"
	StageExtracting     Stage = "extracting"
	StageGraphBuilding  Stage = "graph_building"
	StageRuleEvaluating Stage = "rule_evaluating"
	StageReported       Stage = "reported"
)

// DocumentError records why a document was excluded. Err wraps both the
// stage sentinel and the underlying cause.
type DocumentError struct {
	Filename string
	Stage    Stage
	Err      error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s excluded at %s: %v", e.Filename, e.Stage, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

func documentError(filename string, stage Stage, sentinel, cause error) *DocumentError {
	return &DocumentError{
		Filename: filename,
		Stage:    stage,
		Err:      fmt.Errorf("%w: %w", sentinel, cause),
	}
}
