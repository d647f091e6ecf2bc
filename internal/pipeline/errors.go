package pipeline

import (
	"errors"
	"fmt"
)

// Stage names one step of the runner.
type Stage string

const (
	StageExtract  Stage = "extract"
	StageInfer    Stage = "infer"
	StageValidate Stage = "validate"
	StageRender   Stage = "render"
)

// Kind classifies a stage failure.
type Kind string

const (
	ExtractionError Kind = "ExtractionError"
	ProviderError   Kind = "ProviderError"
	ValidationError Kind = "ValidationError"
	RenderError     Kind = "RenderError"
)

var stageKinds = map[Stage]Kind{
	StageExtract:  ExtractionError,
	StageInfer:    ProviderError,
	StageValidate: ValidationError,
	StageRender:   RenderError,
}

var stageLabels = map[Stage]string{
	StageExtract:  "text extraction failed",
	StageInfer:    "provider call failed",
	StageValidate: "response validation failed",
	StageRender:   "spreadsheet generation failed",
}

// StageError is a failure caught at a stage boundary. Its message is what
// the job records as error_message.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", stageLabels[e.Stage], e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func (e *StageError) Kind() Kind { return stageKinds[e.Stage] }

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// KindOf reports the failure kind of err, or "" for errors raised outside a stage.
func KindOf(err error) Kind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind()
	}
	return ""
}
