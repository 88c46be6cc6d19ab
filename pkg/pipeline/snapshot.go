package pipeline

import (
	"time"

	"github.com/voicelab/callcheck/pkg/audio"
	"github.com/voicelab/callcheck/pkg/collab"
)

// AudioRef is the read-side view of an audio artifact, including the
// URL path it is served under.
type AudioRef struct {
	Path     string  `json:"file_path"`
	Duration float64 `json:"duration"`
	Size     int64   `json:"file_size"`
	Format   string  `json:"format"`
	WebPath  string  `json:"web_path"`
}

func audioRef(a *audio.Artifact) *AudioRef {
	if a == nil {
		return nil
	}
	return &AudioRef{
		Path:     a.Path,
		Duration: a.Duration,
		Size:     a.Size,
		Format:   a.Format,
		WebPath:  a.WebPath(),
	}
}

// StatusSnapshot is the lightweight view served to progress pollers.
type StatusSnapshot struct {
	ID              string          `json:"test_id"`
	Status          Status          `json:"status"`
	CurrentStage    Stage           `json:"current_stage"`
	StageProgress   float64         `json:"stage_progress"`
	OverallProgress float64         `json:"overall_progress"`
	StageDetail     StageDescriptor `json:"stage_detail"`
	CompletedStages []Stage         `json:"completed_stages"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// StatusSnapshot returns a self-consistent copy of the run's progress
// state. Safe to call at any time from any goroutine.
func (r *Result) StatusSnapshot() StatusSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return StatusSnapshot{
		ID:              r.id,
		Status:          r.status,
		CurrentStage:    r.currentStage,
		StageProgress:   r.stageProgress,
		OverallProgress: r.overallProgress,
		StageDetail:     r.descriptorLocked(),
		CompletedStages: append([]Stage(nil), r.completedStages...),
		ErrorMessage:    r.errorMessage,
		CreatedAt:       r.createdAt,
	}
}

// Snapshot is the full read-side view of a run, used by the result and
// report endpoints. All maps and slices are copies.
type Snapshot struct {
	ID                  string                   `json:"test_id"`
	CreatedAt           time.Time                `json:"timestamp"`
	Status              Status                   `json:"status"`
	OriginalScript      string                   `json:"original_script"`
	CurrentStage        Stage                    `json:"current_stage"`
	StageProgress       float64                  `json:"stage_progress"`
	OverallProgress     float64                  `json:"overall_progress"`
	CompletedStages     []Stage                  `json:"completed_stages"`
	StageDetail         StageDescriptor          `json:"stage_detail"`
	StageInfo           map[Stage]map[string]any `json:"stage_info"`
	ParsedDialogueCount int                      `json:"parsed_dialogue_count"`
	APIsVerified        map[string]bool          `json:"apis_verified"`
	TTSAudio            *AudioRef                `json:"tts_audio"`
	RecordedAudio       *AudioRef                `json:"recorded_audio"`
	StorageID           string                   `json:"storage_file_id,omitempty"`
	TranscribedText     string                   `json:"transcribed_text"`
	STTConfidence       float64                  `json:"stt_confidence"`
	Analysis            *collab.AnalysisResult   `json:"analysis_result"`
	FinalReport         map[string]any           `json:"final_report"`
	ErrorMessage        string                   `json:"error_message,omitempty"`
}

// Snapshot returns a full copy of the record's state.
func (r *Result) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info := make(map[Stage]map[string]any, len(r.stageInfo))
	for stage, m := range r.stageInfo {
		c := make(map[string]any, len(m))
		for k, v := range m {
			c[k] = v
		}
		info[stage] = c
	}
	verified := make(map[string]bool, len(r.apisVerified))
	for k, v := range r.apisVerified {
		verified[k] = v
	}

	var analysis *collab.AnalysisResult
	if r.analysis != nil {
		c := *r.analysis
		analysis = &c
	}

	return Snapshot{
		ID:                  r.id,
		CreatedAt:           r.createdAt,
		Status:              r.status,
		OriginalScript:      r.originalScript,
		CurrentStage:        r.currentStage,
		StageProgress:       r.stageProgress,
		OverallProgress:     r.overallProgress,
		CompletedStages:     append([]Stage(nil), r.completedStages...),
		StageDetail:         r.descriptorLocked(),
		StageInfo:           info,
		ParsedDialogueCount: r.parsedDialogueCount,
		APIsVerified:        verified,
		TTSAudio:            audioRef(r.ttsAudio),
		RecordedAudio:       audioRef(r.recordedAudio),
		StorageID:           r.storageID,
		TranscribedText:     r.transcribedText,
		STTConfidence:       r.sttConfidence,
		Analysis:            analysis,
		FinalReport:         r.finalReport,
		ErrorMessage:        r.errorMessage,
	}
}
