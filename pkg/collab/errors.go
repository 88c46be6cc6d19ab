package collab

import (
	"errors"
	"fmt"
)

// SynthesisError wraps any failure surfaced by the synthesis engine.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis error: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

func NewSynthesisError(err error) *SynthesisError {
	return &SynthesisError{Err: err}
}

// IsSynthesisError checks if the error is or wraps a SynthesisError.
func IsSynthesisError(err error) bool {
	var synthErr *SynthesisError
	return err != nil && errors.As(err, &synthErr)
}

// TranscriptionError wraps any failure surfaced by the transcription engine.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription error: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

func NewTranscriptionError(err error) *TranscriptionError {
	return &TranscriptionError{Err: err}
}

// IsTranscriptionError checks if the error is or wraps a TranscriptionError.
func IsTranscriptionError(err error) bool {
	var sttErr *TranscriptionError
	return err != nil && errors.As(err, &sttErr)
}

// AnalysisError wraps a failure from the analysis engine other than a
// malformed response, which degrades to a fallback verdict instead.
type AnalysisError struct {
	Err error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis error: %v", e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

func NewAnalysisError(err error) *AnalysisError {
	return &AnalysisError{Err: err}
}

// IsAnalysisError checks if the error is or wraps an AnalysisError.
func IsAnalysisError(err error) bool {
	var llmErr *AnalysisError
	return err != nil && errors.As(err, &llmErr)
}
