package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageCumulativeTable(t *testing.T) {
	// The checklist values are fixed; a drift here breaks agreement
	// between the status endpoint, the steps checklist and the report.
	want := map[Stage]float64{
		StagePreprocessing: 14,
		StageStartup:       28,
		StageSynthesis:     43,
		StageRecording:     57,
		StageStorage:       71,
		StageAnalysis:      86,
		StageCompletion:    100,
	}
	for stage, v := range want {
		assert.Equal(t, v, stageCumulative[stage], "stage %s", stage)
	}
}

func TestOverallProgress(t *testing.T) {
	t.Run("idle is zero", func(t *testing.T) {
		assert.Zero(t, overallProgress(StageIdle, 50, nil))
	})

	t.Run("completed stage snaps to table value", func(t *testing.T) {
		completed := []Stage{StagePreprocessing, StageStartup}
		assert.Equal(t, 28.0, overallProgress(StageStartup, 100, completed))
	})

	t.Run("mid stage interpolates from preceding table value", func(t *testing.T) {
		completed := []Stage{StagePreprocessing, StageStartup}
		got := overallProgress(StageSynthesis, 50, completed)
		assert.InDelta(t, 28+0.5*stageWeight, got, 0.001)
	})

	t.Run("never exceeds 100", func(t *testing.T) {
		completed := StageOrder[:6]
		got := overallProgress(StageCompletion, 100, completed)
		assert.LessOrEqual(t, got, 100.0)
	})
}

func TestOverallProgressMonotonic(t *testing.T) {
	// Walk every stage through 0/50/100 plus completion and verify the
	// overall value never moves backwards.
	var completed []Stage
	last := 0.0
	for _, stage := range StageOrder {
		for _, p := range []float64{0, 50, 100} {
			got := overallProgress(stage, p, completed)
			assert.GreaterOrEqual(t, got, last, "stage %s at %.0f%%", stage, p)
			last = got
		}
		completed = append(completed, stage)
		got := overallProgress(stage, 100, completed)
		assert.GreaterOrEqual(t, got, last, "stage %s completed", stage)
		last = got
	}
	assert.Equal(t, 100.0, last)
}

func TestEstimateRemaining(t *testing.T) {
	assert.Equal(t, 45, estimateRemaining(StageAnalysis, 0))
	assert.Equal(t, 15, estimateRemaining(StageSynthesis, 50))
	// Floors at one second even when virtually done.
	assert.Equal(t, 1, estimateRemaining(StageStorage, 99.9))
	// Unknown stage has no estimate.
	assert.Equal(t, 0, estimateRemaining(StageIdle, 0))
}

func TestGradeForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{95, "excellent"},
		{90, "excellent"},
		{89.9, "good"},
		{80, "good"},
		{79.9, "fair"},
		{70, "fair"},
		{69.9, "needs improvement"},
		{0, "needs improvement"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GradeForScore(tt.score), "score %.1f", tt.score)
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}
