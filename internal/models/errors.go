package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the prediction pipeline. Structured errors below match
// them through errors.Is.
var (
	ErrNoData           = errors.New("no data")
	ErrInsufficientData = errors.New("insufficient data")
	ErrNotFitted        = errors.New("scaler not fitted")
	ErrNotTrained       = errors.New("model not trained")
	ErrMissingInput     = errors.New("missing required input")
	ErrArtifactLoad     = errors.New("artifact load failed")
	ErrNoModel          = errors.New("no model available")
)

// InsufficientDataError reports that a model needs more rows than it was given
type InsufficientDataError struct {
	Model string
	Have  int
	Need  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: have %d rows, need at least %d", e.Model, e.Have, e.Need)
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// MissingInputError names the required live-input field that was absent
type MissingInputError struct {
	Field string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing required input field %q", e.Field)
}

func (e *MissingInputError) Is(target error) bool {
	return target == ErrMissingInput
}

// ArtifactErrorKind classifies an artifact load failure
type ArtifactErrorKind string

const (
	ArtifactMissing         ArtifactErrorKind = "missing"
	ArtifactCorrupt         ArtifactErrorKind = "corrupt"
	ArtifactVersionMismatch ArtifactErrorKind = "version_mismatch"
)

// ArtifactError is returned when a persisted scaler or model cannot be used
type ArtifactError struct {
	Artifact string
	Kind     ArtifactErrorKind
	Err      error
}

func (e *ArtifactError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("artifact %s: %s", e.Artifact, e.Kind)
	}
	return fmt.Sprintf("artifact %s: %s: %v", e.Artifact, e.Kind, e.Err)
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}

func (e *ArtifactError) Is(target error) bool {
	return target == ErrArtifactLoad
}
