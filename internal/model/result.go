package model

import (
	"errors"
	"fmt"
)

// FailureKind classifies why an analysis produced no bundle.
type FailureKind string

const (
	FailureDataUnavailable FailureKind = "data_unavailable"
	FailureAlignment       FailureKind = "alignment_failure"
	FailureDegenerateRatio FailureKind = "degenerate_ratio"
	FailureInvalidRequest  FailureKind = "invalid_request"
)

// Failure is the error variant of Result.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
}

// NewFailure builds a Failure with a formatted message.
func NewFailure(kind FailureKind, err error, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

// AsFailure extracts a *Failure from err, wrapping foreign errors as the given kind.
func AsFailure(err error, fallback FailureKind) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: fallback, Message: err.Error(), Err: err}
}

// Result carries exactly one of Bundle or Failure.
type Result struct {
	Bundle  *Bundle  `json:"result,omitempty"`
	Failure *Failure `json:"error,omitempty"`
}

func Succeeded(b *Bundle) Result { return Result{Bundle: b} }

func Failed(f *Failure) Result { return Result{Failure: f} }

func (r Result) OK() bool { return r.Failure == nil && r.Bundle != nil }

// Request is the entry-point input. Zero dates mean "use the default window".
type Request struct {
	Symbol    string `json:"symbol"`
	Benchmark string `json:"benchmark,omitempty"`
	Start     Date   `json:"start"`
	End       Date   `json:"end"`
}
