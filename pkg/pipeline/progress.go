package pipeline

import "math"

// Status is the lifecycle state of one test run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is a final one.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Stage is one of the seven fixed phases of a run.
type Stage string

const (
	StageIdle          Stage = "idle"
	StagePreprocessing Stage = "preprocessing"
	StageStartup       Stage = "startup"
	StageSynthesis     Stage = "synthesis"
	StageRecording     Stage = "recording"
	StageStorage       Stage = "storage"
	StageAnalysis      Stage = "analysis"
	StageCompletion    Stage = "completion"
)

// StageOrder is the fixed execution order. Stages never run out of
// order and are never skipped on the success path.
var StageOrder = []Stage{
	StagePreprocessing,
	StageStartup,
	StageSynthesis,
	StageRecording,
	StageStorage,
	StageAnalysis,
	StageCompletion,
}

const stageWeight = 100.0 / 7

// stageCumulative maps each stage to the overall progress once that
// stage is the last completed one. The checklist values are fixed;
// every poller and the final report must agree on them exactly.
var stageCumulative = map[Stage]float64{
	StageIdle:          0,
	StagePreprocessing: 14,
	StageStartup:       28,
	StageSynthesis:     43,
	StageRecording:     57,
	StageStorage:       71,
	StageAnalysis:      86,
	StageCompletion:    100,
}

// stageBaseEstimate is the advisory per-stage duration estimate in
// seconds, used only for the eta heuristic.
var stageBaseEstimate = map[Stage]int{
	StagePreprocessing: 5,
	StageStartup:       10,
	StageSynthesis:     30,
	StageRecording:     5,
	StageStorage:       3,
	StageAnalysis:      45,
	StageCompletion:    5,
}

var stageDisplayNames = map[Stage]string{
	StagePreprocessing: "Script Preprocessing",
	StageStartup:       "System Startup",
	StageSynthesis:     "Speech Synthesis",
	StageRecording:     "Call Recording",
	StageStorage:       "Audio Archival",
	StageAnalysis:      "Transcription & Analysis",
	StageCompletion:    "Report & Cleanup",
}

var stageDescriptions = map[Stage]string{
	StagePreprocessing: "validating and parsing the test script",
	StageStartup:       "verifying collaborator connectivity",
	StageSynthesis:     "rendering the script to speech",
	StageRecording:     "recording the simulated call",
	StageStorage:       "archiving the call recording",
	StageAnalysis:      "transcribing audio and scoring the conversation",
	StageCompletion:    "assembling the final report",
}

// DisplayName returns the human-facing name for a stage.
func (s Stage) DisplayName() string {
	if name, ok := stageDisplayNames[s]; ok {
		return name
	}
	return string(s)
}

// Description returns a short sentence describing what the stage does.
func (s Stage) Description() string {
	return stageDescriptions[s]
}

// precedingCumulative returns the table value of the stage before s, or
// 0 when s is the first stage.
func precedingCumulative(s Stage) float64 {
	for i, stage := range StageOrder {
		if stage == s {
			if i == 0 {
				return 0
			}
			return stageCumulative[StageOrder[i-1]]
		}
	}
	return 0
}

// overallProgress derives the 0-100 overall value from the current
// stage, its intra-stage progress and the completed-stage set. Once a
// stage completes the value matches the fixed table exactly, so the
// status endpoint and the completion checklist always agree.
func overallProgress(current Stage, stageProgress float64, completed []Stage) float64 {
	if current == StageIdle {
		return 0
	}
	for _, s := range completed {
		if s == current {
			return stageCumulative[current]
		}
	}
	// Cap at the stage's own table value so progress never dips when the
	// stage completes and the overall value snaps to the table.
	p := precedingCumulative(current) + (stageProgress/100)*stageWeight
	return math.Min(stageCumulative[current], p)
}

// StageDescriptor is the human-facing description of where a run is.
type StageDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SubPhase    string `json:"sub_phase,omitempty"`
	ETASeconds  int    `json:"eta_seconds,omitempty"`
}

// estimateRemaining applies the advisory eta heuristic:
// ceil(base * (100-progress)/100), floored at one second.
func estimateRemaining(stage Stage, stageProgress float64) int {
	base, ok := stageBaseEstimate[stage]
	if !ok {
		return 0
	}
	eta := int(math.Ceil(float64(base) * (100 - stageProgress) / 100))
	if eta < 1 {
		eta = 1
	}
	return eta
}

// GradeForScore maps an accuracy score to its qualitative grade.
func GradeForScore(score float64) string {
	switch {
	case score >= 90:
		return "excellent"
	case score >= 80:
		return "good"
	case score >= 70:
		return "fair"
	default:
		return "needs improvement"
	}
}
