package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voicelab/callcheck/pkg/audio"
	"github.com/voicelab/callcheck/pkg/collab"
)

// Result is the mutable state record for one test run. Only the run's
// orchestrator goroutine mutates it; any number of readers may take
// snapshots concurrently. The mutex makes the single-writer rule safe
// under preemptive scheduling rather than relying on cooperative
// scheduling like the usual asyncio rendition of this pattern.
//
// Artifact fields are write-once: no stage overwrites a field set by an
// earlier stage. The record does not police terminal status itself;
// stage executors stop mutating once the orchestrator has sealed it.
type Result struct {
	mu sync.RWMutex

	id             string
	createdAt      time.Time
	status         Status
	originalScript string

	currentStage    Stage
	stageProgress   float64
	overallProgress float64
	completedStages []Stage
	stageInfo       map[Stage]map[string]any
	analysisPhase   string // "", "transcribing" or "comparing"

	parsedDialogueCount int
	apisVerified        map[string]bool
	ttsAudio            *audio.Artifact
	recordedAudio       *audio.Artifact
	storageID           string
	transcribedText     string
	sttConfidence       float64
	analysis            *collab.AnalysisResult
	finalReport         map[string]any
	errorMessage        string
}

// NewResult allocates a pending record for the given script.
func NewResult(script string) *Result {
	return &Result{
		id:             uuid.NewString(),
		createdAt:      time.Now(),
		status:         StatusPending,
		originalScript: script,
		currentStage:   StageIdle,
		stageInfo:      make(map[Stage]map[string]any),
		apisVerified:   make(map[string]bool),
	}
}

func (r *Result) ID() string {
	return r.id // immutable, no lock needed
}

func (r *Result) CreatedAt() time.Time {
	return r.createdAt
}

func (r *Result) OriginalScript() string {
	return r.originalScript
}

func (r *Result) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

func (r *Result) CurrentStage() Stage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentStage
}

func (r *Result) OverallProgress() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.overallProgress
}

func (r *Result) ErrorMessage() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.errorMessage
}

// AdvanceStage moves the run to the given stage with the given
// intra-stage progress, clamped to [0,100], and recomputes the overall
// progress.
func (r *Result) AdvanceStage(stage Stage, progress float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if progress < 0 {
		progress = 0
	} else if progress > 100 {
		progress = 100
	}
	r.currentStage = stage
	r.stageProgress = progress
	r.overallProgress = overallProgress(r.currentStage, r.stageProgress, r.completedStages)
}

// MergeStageInfo merges keys into the stage's metadata map. Existing
// keys may be overwritten with fresh values, but never deleted.
func (r *Result) MergeStageInfo(stage Stage, info map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stageInfo[stage] == nil {
		r.stageInfo[stage] = make(map[string]any, len(info))
	}
	for k, v := range info {
		r.stageInfo[stage][k] = v
	}
}

// CompleteStage marks the current stage finished: it joins the
// completed set (at most once), intra-stage progress is forced to 100
// and the overall progress snaps to the stage's table value.
func (r *Result) CompleteStage() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.currentStage == StageIdle {
		return
	}
	done := false
	for _, s := range r.completedStages {
		if s == r.currentStage {
			done = true
			break
		}
	}
	if !done {
		r.completedStages = append(r.completedStages, r.currentStage)
	}
	r.stageProgress = 100
	r.overallProgress = overallProgress(r.currentStage, r.stageProgress, r.completedStages)
}

// begin transitions pending -> running. Orchestrator only.
func (r *Result) begin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = StatusRunning
}

// seal sets the terminal status. Orchestrator only, called exactly once
// per run.
func (r *Result) seal(status Status, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Terminal() {
		return
	}
	r.status = status
	r.errorMessage = errMsg
	if status == StatusCompleted {
		r.overallProgress = 100
	}
}

func (r *Result) setDialogueCount(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsedDialogueCount = n
}

func (r *Result) setAPIVerified(name string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apisVerified[name] = ok
}

func (r *Result) setTTSAudio(a *audio.Artifact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ttsAudio = a
}

func (r *Result) setRecordedAudio(a *audio.Artifact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recordedAudio = a
}

func (r *Result) setStorageID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storageID = id
}

func (r *Result) setTranscription(text string, confidence float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcribedText = text
	r.sttConfidence = confidence
}

func (r *Result) setAnalysis(a *collab.AnalysisResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analysis = a
}

func (r *Result) setAnalysisPhase(phase string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analysisPhase = phase
}

func (r *Result) setFinalReport(report map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalReport = report
}

// TTSAudio returns the synthesis artifact, or nil before synthesis.
func (r *Result) TTSAudio() *audio.Artifact {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ttsAudio
}

// RecordedAudio returns the recording artifact, or nil before recording.
func (r *Result) RecordedAudio() *audio.Artifact {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.recordedAudio
}

// stageInfoValue reads one key from a stage's metadata map.
func (r *Result) stageInfoValue(stage Stage, key string) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stageInfo[stage][key]
}

// descriptorLocked assembles the stage descriptor. Caller holds at
// least the read lock.
func (r *Result) descriptorLocked() StageDescriptor {
	d := StageDescriptor{
		Name:        r.currentStage.DisplayName(),
		Description: stageDescriptions[r.currentStage],
	}
	if r.currentStage == StageAnalysis {
		switch r.analysisPhase {
		case "transcribing":
			d.SubPhase = "transcribing audio"
		case "comparing":
			d.SubPhase = "comparing conversation quality"
		}
	}
	if r.currentStage != StageIdle && !r.status.Terminal() {
		d.ETASeconds = estimateRemaining(r.currentStage, r.stageProgress)
	}
	return d
}
