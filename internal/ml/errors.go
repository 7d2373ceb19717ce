package ml

import (
	"errors"
	"fmt"
)

// ErrNotFitted is returned when Predict or Save is called before a
// successful Train or Load.
var ErrNotFitted = errors.New("model is not fitted: train or load a model first")

// InsufficientDataError is returned when training is attempted with no samples
type InsufficientDataError struct {
	Samples int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient training data: %d samples", e.Samples)
}

// ShapeMismatchError is returned when predict-time feature columns differ
// from the columns the model was trained with
type ShapeMismatchError struct {
	Want []string
	Got  []string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("feature shape mismatch: model trained with %d columns, extraction produced %d", len(e.Want), len(e.Got))
}

// TrainingError wraps an underlying failure during model fitting. Model state
// is unchanged when it is returned.
type TrainingError struct {
	Err error
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("model training failed: %v", e.Err)
}

func (e *TrainingError) Unwrap() error {
	return e.Err
}
