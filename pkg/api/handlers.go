package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/voicelab/callcheck/pkg/metrics"
	"github.com/voicelab/callcheck/pkg/pipeline"
	"github.com/voicelab/callcheck/pkg/registry"
)

type startRequest struct {
	Script string `json:"script"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Script) == "" {
		writeError(w, http.StatusBadRequest, "script must not be empty")
		return
	}

	res := pipeline.NewResult(req.Script)
	if err := s.reg.Insert(res); err != nil {
		s.log.Error("failed to register run", "err", err)
		metrics.RecordError("register_run")
		writeError(w, http.StatusInternalServerError, "failed to register run")
		return
	}
	s.launch(res)

	s.log.Info("test run accepted", "run", res.ID())
	writeJSON(w, http.StatusOK, map[string]any{
		"test_id": res.ID(),
		"status":  pipeline.StatusRunning,
		"message": "test started",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	res, ok := s.reg.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "test not found")
		return
	}
	writeJSON(w, http.StatusOK, res.StatusSnapshot())
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	res, ok := s.reg.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "test not found")
		return
	}
	writeJSON(w, http.StatusOK, res.Snapshot())
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	res, ok := s.reg.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "test not found")
		return
	}
	snap := res.Snapshot()

	if !snap.Status.Terminal() {
		writeJSON(w, http.StatusOK, map[string]any{
			"test_id":          snap.ID,
			"status":           snap.Status,
			"current_stage":    snap.CurrentStage,
			"overall_progress": snap.OverallProgress,
			"message":          "test still in progress, report not available yet",
		})
		return
	}

	if snap.Status == pipeline.StatusFailed {
		writeJSON(w, http.StatusOK, map[string]any{
			"test_id":          snap.ID,
			"status":           snap.Status,
			"message":          "test run failed",
			"error":            snap.ErrorMessage,
			"failed_at_stage":  snap.CurrentStage,
			"completed_stages": snap.CompletedStages,
		})
		return
	}

	var score float64
	var summary, reasoning string
	var differences, suggestions []string
	if snap.Analysis != nil {
		score = snap.Analysis.AccuracyScore
		summary = snap.Analysis.Summary
		reasoning = snap.Analysis.Reasoning
		differences = snap.Analysis.KeyDifferences
		suggestions = snap.Analysis.Suggestions
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"test_id":         snap.ID,
		"status":          snap.Status,
		"accuracy_score":  score,
		"grade":           pipeline.GradeForScore(score),
		"summary":         summary,
		"reasoning":       reasoning,
		"key_differences": differences,
		"suggestions":     suggestions,
		"execution_summary": map[string]any{
			"total_stages":     len(pipeline.StageOrder),
			"completed_stages": len(snap.CompletedStages),
			"final_stage":      snap.CurrentStage,
			"overall_progress": snap.OverallProgress,
		},
		"stage_details":    snap.StageInfo,
		"original_script":  snap.OriginalScript,
		"transcribed_text": snap.TranscribedText,
		"stt_confidence":   snap.STTConfidence,
		"audio_files": map[string]any{
			"tts_audio":      snap.TTSAudio,
			"recorded_audio": snap.RecordedAudio,
		},
		"final_report": snap.FinalReport,
		"timestamp":    snap.CreatedAt,
	})
}

func (s *Server) handleSteps(w http.ResponseWriter, r *http.Request) {
	res, ok := s.reg.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "test not found")
		return
	}
	snap := res.StatusSnapshot()

	completed := make(map[pipeline.Stage]bool, len(snap.CompletedStages))
	for _, st := range snap.CompletedStages {
		completed[st] = true
	}

	steps := make([]map[string]any, 0, len(pipeline.StageOrder))
	for i, stage := range pipeline.StageOrder {
		state := "pending"
		progress := 0.0
		switch {
		case completed[stage]:
			state = "completed"
			progress = 100
		case stage == snap.CurrentStage:
			state = "active"
			progress = snap.StageProgress
		}
		steps = append(steps, map[string]any{
			"step_number": i + 1,
			"stage":       stage,
			"name":        stage.DisplayName(),
			"description": stage.Description(),
			"state":       state,
			"progress":    progress,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"test_id":          snap.ID,
		"status":           snap.Status,
		"current_stage":    snap.CurrentStage,
		"overall_progress": snap.OverallProgress,
		"steps":            steps,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs := s.reg.List(limit)
	items := make([]map[string]any, 0, len(runs))
	for _, res := range runs {
		snap := res.Snapshot()
		var score float64
		if snap.Analysis != nil {
			score = snap.Analysis.AccuracyScore
		}
		items = append(items, map[string]any{
			"test_id":                snap.ID,
			"status":                 snap.Status,
			"current_stage":          snap.CurrentStage,
			"current_stage_name":     snap.CurrentStage.DisplayName(),
			"overall_progress":       snap.OverallProgress,
			"accuracy_score":         score,
			"created_at":             snap.CreatedAt,
			"script_preview":         scriptPreview(snap.OriginalScript),
			"completed_stages_count": len(snap.CompletedStages),
			"total_stages":           len(pipeline.StageOrder),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total": len(items),
		"tests": items,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	err := s.reg.Delete(id)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, "test not found")
	case errors.Is(err, registry.ErrRunActive):
		writeError(w, http.StatusBadRequest, "cannot delete a running test")
	case err != nil:
		s.log.Error("failed to delete run", "run", id, "err", err)
		metrics.RecordError("delete_run")
		writeError(w, http.StatusInternalServerError, "failed to delete test")
	default:
		s.log.Info("test run deleted", "run", id)
		writeJSON(w, http.StatusOK, map[string]any{
			"test_id": id,
			"message": "test deleted",
		})
	}
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "days must be a non-negative integer")
			return
		}
		days = n
	}

	removed := s.reg.Cleanup(time.Duration(days) * 24 * time.Hour)
	s.log.Info("run cleanup finished", "removed", removed, "days", days)
	writeJSON(w, http.StatusOK, map[string]any{
		"cleaned_count":  removed,
		"remaining":      s.reg.Len(),
		"retention_days": days,
	})
}

func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	services := s.runner.ServiceStatus(r.Context())
	healthy := true
	for _, ok := range services {
		healthy = healthy && ok
	}
	status := "healthy"
	if !healthy {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       status,
		"services":     services,
		"active_tests": s.reg.Len(),
		"checked_at":   time.Now(),
	})
}

func scriptPreview(script string) string {
	const max = 50
	runes := []rune(strings.TrimSpace(script))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max]) + "..."
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
