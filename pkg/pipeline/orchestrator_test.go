package pipeline

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicelab/callcheck/pkg/audio"
	"github.com/voicelab/callcheck/pkg/collab"
	"github.com/voicelab/callcheck/pkg/script"
)

type stubSynth struct {
	artifact *audio.Artifact
	err      error
	probeOK  bool
	panics   bool
	calls    int
}

func (s *stubSynth) Synthesize(ctx context.Context, lines []script.Line) (*audio.Artifact, error) {
	s.calls++
	if s.panics {
		panic("synth exploded")
	}
	return s.artifact, s.err
}

func (s *stubSynth) Probe(ctx context.Context) bool { return s.probeOK }

type stubTranscriber struct {
	text       string
	confidence float64
	err        error
	probeOK    bool
	calls      int
}

func (s *stubTranscriber) Transcribe(ctx context.Context, a *audio.Artifact) (string, float64, error) {
	s.calls++
	return s.text, s.confidence, s.err
}

func (s *stubTranscriber) Probe(ctx context.Context) bool { return s.probeOK }

type stubAnalyzer struct {
	result  *collab.AnalysisResult
	err     error
	probeOK bool
	calls   int
}

func (s *stubAnalyzer) Compare(ctx context.Context, original, transcribed string) (*collab.AnalysisResult, error) {
	s.calls++
	return s.result, s.err
}

func (s *stubAnalyzer) Probe(ctx context.Context) bool { return s.probeOK }

type stubSimulator struct {
	artifact *audio.Artifact
	err      error
	calls    int
}

func (s *stubSimulator) Simulate(ctx context.Context, a *audio.Artifact) (*audio.Artifact, error) {
	s.calls++
	return s.artifact, s.err
}

type stubStore struct {
	id    string
	err   error
	calls int
}

func (s *stubStore) Put(ctx context.Context, a *audio.Artifact, metadata map[string]any) (string, error) {
	s.calls++
	return s.id, s.err
}

func (s *stubStore) Retrieve(id string) (*audio.Artifact, error) { return nil, collab.ErrNotStored }

type stubs struct {
	synth *stubSynth
	stt   *stubTranscriber
	llm   *stubAnalyzer
	call  *stubSimulator
	store *stubStore
}

func healthyStubs() *stubs {
	return &stubs{
		synth: &stubSynth{
			artifact: &audio.Artifact{Path: "/tmp/tts.mp3", Duration: 5, Size: 2048, Format: "mp3"},
			probeOK:  true,
		},
		stt: &stubTranscriber{text: "hello hi there", confidence: 0.9, probeOK: true},
		llm: &stubAnalyzer{
			result: &collab.AnalysisResult{
				AccuracyScore:  92,
				Summary:        "close match",
				KeyDifferences: []string{},
				Suggestions:    []string{},
				Reasoning:      "nearly verbatim",
			},
			probeOK: true,
		},
		call: &stubSimulator{
			artifact: &audio.Artifact{Path: "/tmp/recorded.mp3", Duration: 5, Size: 2048, Format: "mp3"},
		},
		store: &stubStore{id: "file-1"},
	}
}

func newTestOrchestrator(t *testing.T, st *stubs) *Orchestrator {
	t.Helper()
	o, err := New(Config{
		Log:           log.NewLogger(log.DiscardHandler()),
		Synthesizer:   st.synth,
		Transcriber:   st.stt,
		Analyzer:      st.llm,
		CallSimulator: st.call,
		Store:         st.store,
	})
	require.NoError(t, err)
	return o
}

func TestNewRejectsMissingCollaborators(t *testing.T) {
	_, err := New(Config{Log: log.NewLogger(log.DiscardHandler())})
	assert.Error(t, err)
}

func TestRunHappyPath(t *testing.T) {
	st := healthyStubs()
	o := newTestOrchestrator(t, st)
	res := NewResult("customer: hello\nagent: hi there")

	o.Run(context.Background(), res)

	snap := res.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 100.0, snap.OverallProgress)
	assert.Empty(t, snap.ErrorMessage)
	assert.Equal(t, StageOrder, snap.CompletedStages)

	assert.Equal(t, 2, snap.ParsedDialogueCount)
	assert.Equal(t, map[string]bool{"synthesis": true, "transcription": true, "analysis": true}, snap.APIsVerified)
	require.NotNil(t, snap.TTSAudio)
	assert.Equal(t, 5.0, snap.TTSAudio.Duration)
	require.NotNil(t, snap.RecordedAudio)
	assert.Equal(t, "file-1", snap.StorageID)
	assert.Equal(t, "hello hi there", snap.TranscribedText)
	assert.Equal(t, 0.9, snap.STTConfidence)
	require.NotNil(t, snap.Analysis)
	assert.Equal(t, 92.0, snap.Analysis.AccuracyScore)
	assert.Equal(t, "excellent", GradeForScore(snap.Analysis.AccuracyScore))
	require.NotNil(t, snap.FinalReport)
	assert.Equal(t, 1, st.store.calls)

	// Every stage recorded its metadata.
	for _, stage := range StageOrder {
		assert.NotEmpty(t, snap.StageInfo[stage], "stage %s", stage)
	}
}

func TestRunEmptyScriptFailsAtPreprocessing(t *testing.T) {
	st := healthyStubs()
	o := newTestOrchestrator(t, st)
	res := NewResult("   \n  ")

	o.Run(context.Background(), res)

	snap := res.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, StagePreprocessing, snap.CurrentStage)
	assert.Contains(t, snap.ErrorMessage, "empty")
	assert.Empty(t, snap.CompletedStages)

	// Nothing downstream ran.
	assert.Nil(t, snap.TTSAudio)
	assert.Nil(t, snap.RecordedAudio)
	assert.Zero(t, st.synth.calls)
	assert.Zero(t, st.stt.calls)
	assert.Zero(t, st.llm.calls)
}

func TestRunProbeFailureFailsAtStartup(t *testing.T) {
	st := healthyStubs()
	st.stt.probeOK = false
	o := newTestOrchestrator(t, st)
	res := NewResult("customer: hello")

	o.Run(context.Background(), res)

	snap := res.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, StageStartup, snap.CurrentStage)
	assert.True(t, snap.APIsVerified["synthesis"])
	assert.False(t, snap.APIsVerified["transcription"])
	assert.Equal(t, []Stage{StagePreprocessing}, snap.CompletedStages)
	assert.Zero(t, st.synth.calls)
}

func TestRunEmptyTranscriptSkipsAnalyzer(t *testing.T) {
	st := healthyStubs()
	st.stt.text = ""
	o := newTestOrchestrator(t, st)
	res := NewResult("customer: hello")

	o.Run(context.Background(), res)

	snap := res.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	require.NotNil(t, snap.Analysis)
	assert.Zero(t, snap.Analysis.AccuracyScore)
	assert.Zero(t, st.llm.calls)
}

func TestRunCollaboratorFailureSealsFailed(t *testing.T) {
	st := healthyStubs()
	st.synth.artifact = nil
	st.synth.err = collab.NewSynthesisError(assert.AnError)
	o := newTestOrchestrator(t, st)
	res := NewResult("customer: hello")

	o.Run(context.Background(), res)

	snap := res.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, StageSynthesis, snap.CurrentStage)
	assert.Contains(t, snap.ErrorMessage, "synthesis")
	assert.Zero(t, st.call.calls)
}

func TestRunAbsorbsPanics(t *testing.T) {
	st := healthyStubs()
	st.synth.panics = true
	o := newTestOrchestrator(t, st)
	res := NewResult("customer: hello")

	require.NotPanics(t, func() {
		o.Run(context.Background(), res)
	})
	snap := res.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Contains(t, snap.ErrorMessage, "unexpected failure")
}

func TestRunRefusesTerminalRecord(t *testing.T) {
	st := healthyStubs()
	o := newTestOrchestrator(t, st)
	res := NewResult("customer: hello")
	res.seal(StatusCompleted, "")

	o.Run(context.Background(), res)

	assert.Zero(t, st.synth.calls)
	assert.Empty(t, res.Snapshot().CompletedStages)
}

func TestServiceStatus(t *testing.T) {
	st := healthyStubs()
	st.llm.probeOK = false
	o := newTestOrchestrator(t, st)

	got := o.ServiceStatus(context.Background())
	assert.Equal(t, map[string]bool{
		"synthesis":     true,
		"transcription": true,
		"analysis":      false,
	}, got)
}
