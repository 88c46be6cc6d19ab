package service

import (
	"context"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pkg/errors"

	"github.com/voicelab/callcheck/pkg/pipeline"
)

// RunOnce executes a single test for the given script file, prints a
// per-stage summary table and returns an error if the run failed. Used
// by the --script CLI mode; no HTTP servers are started.
func (s *Service) RunOnce(ctx context.Context, scriptPath string) error {
	contents, err := os.ReadFile(scriptPath)
	if err != nil {
		return errors.Wrap(err, "reading script file")
	}

	res := pipeline.NewResult(string(contents))
	if err := s.Registry.Insert(res); err != nil {
		return errors.Wrap(err, "registering run")
	}

	start := time.Now()
	s.Orchestrator.Run(ctx, res)
	snap := res.Snapshot()

	printRunTable(snap, time.Since(start))

	if snap.Status == pipeline.StatusFailed {
		return errors.Errorf("test run failed at stage %s: %s", snap.CurrentStage, snap.ErrorMessage)
	}
	return nil
}

func printRunTable(snap pipeline.Snapshot, elapsed time.Duration) {
	completed := make(map[pipeline.Stage]bool, len(snap.CompletedStages))
	for _, st := range snap.CompletedStages {
		completed[st] = true
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Stage", "Status", "Details"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight},
		{Name: "Details", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})

	for i, stage := range pipeline.StageOrder {
		status := "skipped"
		switch {
		case completed[stage]:
			status = "pass"
		case stage == snap.CurrentStage && snap.Status == pipeline.StatusFailed:
			status = "fail"
		}
		t.AppendRow(table.Row{i + 1, stage.DisplayName(), status, stageDetail(snap, stage)})
	}

	var score float64
	if snap.Analysis != nil {
		score = snap.Analysis.AccuracyScore
	}
	t.AppendFooter(table.Row{"", "Result", snap.Status,
		grade(snap, score) + " / " + elapsed.Round(time.Millisecond).String()})

	if snap.Status == pipeline.StatusFailed {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}
	t.Render()
}

func grade(snap pipeline.Snapshot, score float64) string {
	if snap.Status != pipeline.StatusCompleted {
		return "no score"
	}
	return pipeline.GradeForScore(score)
}

func stageDetail(snap pipeline.Snapshot, stage pipeline.Stage) string {
	if stage == snap.CurrentStage && snap.Status == pipeline.StatusFailed {
		return snap.ErrorMessage
	}
	return stage.Description()
}
