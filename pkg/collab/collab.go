// Package collab defines the contracts for the external engines the
// test pipeline delegates to, plus the in-process implementations the
// service ships with (call simulator, disk audio store) and HTTP client
// adapters for the remote ones (synthesis, transcription, analysis).
package collab

import (
	"context"

	"github.com/voicelab/callcheck/pkg/audio"
	"github.com/voicelab/callcheck/pkg/script"
)

// Synthesizer turns an ordered list of speaker-tagged utterances into a
// single audio artifact.
type Synthesizer interface {
	Synthesize(ctx context.Context, lines []script.Line) (*audio.Artifact, error)
	Probe(ctx context.Context) bool
}

// Transcriber turns an audio artifact into text plus a confidence score
// in [0,1].
type Transcriber interface {
	Transcribe(ctx context.Context, a *audio.Artifact) (string, float64, error)
	Probe(ctx context.Context) bool
}

// Analyzer compares an original script against a transcript and scores
// how closely they match.
type Analyzer interface {
	Compare(ctx context.Context, original, transcribed string) (*AnalysisResult, error)
	Probe(ctx context.Context) bool
}

// CallSimulator produces the far-side recording of a call from the
// input audio.
type CallSimulator interface {
	Simulate(ctx context.Context, a *audio.Artifact) (*audio.Artifact, error)
}

// Store persists audio artifacts under opaque ids.
type Store interface {
	Put(ctx context.Context, a *audio.Artifact, metadata map[string]any) (string, error)
	Retrieve(id string) (*audio.Artifact, error)
}

// AnalysisResult is the structured verdict from the analysis engine.
type AnalysisResult struct {
	AccuracyScore  float64  `json:"accuracy_score"`
	Summary        string   `json:"summary"`
	KeyDifferences []string `json:"key_differences"`
	Suggestions    []string `json:"suggestions"`
	Reasoning      string   `json:"reasoning"`
}

// EmptyTranscriptResult is the fixed zero-score verdict recorded when
// transcription yields no text. The analysis engine is not consulted.
func EmptyTranscriptResult() *AnalysisResult {
	return &AnalysisResult{
		AccuracyScore:  0,
		Summary:        "transcript is empty, analysis not possible",
		KeyDifferences: []string{"no transcribed content available"},
		Suggestions:    []string{"check audio quality", "retry the test"},
		Reasoning:      "transcription produced no text or the audio had no content",
	}
}

// fallbackResult is the fixed zero-score verdict substituted when the
// analysis backend returns a response we cannot parse. Backend flakiness
// is deliberately hidden from the caller.
func fallbackResult(reason string) *AnalysisResult {
	return &AnalysisResult{
		AccuracyScore:  0,
		Summary:        "analysis failed to produce a verdict",
		KeyDifferences: []string{},
		Suggestions:    []string{"check the input data", "retry the analysis"},
		Reasoning:      "could not parse analysis response: " + reason,
	}
}
