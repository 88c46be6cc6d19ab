package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/voicelab/callcheck/pkg/collab"
	"github.com/voicelab/callcheck/pkg/script"
)

// Stage executors. Each one advances the record into its stage,
// validates preconditions before touching any collaborator, writes its
// result fields and info-map keys, then completes the stage. Failures
// come back as stage-scoped errors and nothing downstream of the
// failure point runs.

// runPreprocessing validates and parses the script.
// Info keys: total_lines, dialogue_lines, customer_lines, agent_lines,
// script_hash, validated_at.
func (o *Orchestrator) runPreprocessing(ctx context.Context, res *Result) error {
	res.AdvanceStage(StagePreprocessing, 0)

	content := res.OriginalScript()
	if strings.TrimSpace(content) == "" {
		return newValidationError(StagePreprocessing, "test script is empty")
	}
	res.AdvanceStage(StagePreprocessing, 20)

	lines := script.Parse(content)
	if len(lines) == 0 {
		return newValidationError(StagePreprocessing, "script contains no recognizable dialogue lines")
	}
	res.AdvanceStage(StagePreprocessing, 60)

	res.setDialogueCount(len(lines))
	res.MergeStageInfo(StagePreprocessing, map[string]any{
		"total_lines":    len(strings.Split(strings.TrimSpace(content), "\n")),
		"dialogue_lines": len(lines),
		"customer_lines": script.CountByRole(lines, script.RoleCustomer),
		"agent_lines":    script.CountByRole(lines, script.RoleAgent),
		"script_hash":    script.Hash(content),
		"validated_at":   time.Now().Format(time.RFC3339),
	})

	res.AdvanceStage(StagePreprocessing, 100)
	res.CompleteStage()
	o.log.Info("preprocessing finished", "run", res.ID(), "dialogue_lines", len(lines))
	return nil
}

// runStartup probes the three remote engines before any of them is
// asked to do real work. Info keys: apis_verified_at, test_environment,
// services_status.
func (o *Orchestrator) runStartup(ctx context.Context, res *Result) error {
	res.AdvanceStage(StageStartup, 0)

	probes := []struct {
		name     string
		progress float64
		probe    func(context.Context) bool
	}{
		{"synthesis", 25, o.synth.Probe},
		{"transcription", 50, o.stt.Probe},
		{"analysis", 75, o.llm.Probe},
	}
	services := make(map[string]string, len(probes))
	for _, p := range probes {
		ok := p.probe(ctx)
		res.setAPIVerified(p.name, ok)
		res.AdvanceStage(StageStartup, p.progress)
		if !ok {
			return newCollaboratorError(StageStartup, &probeError{service: p.name})
		}
		services[p.name] = "connected"
	}

	res.MergeStageInfo(StageStartup, map[string]any{
		"apis_verified_at": time.Now().Format(time.RFC3339),
		"test_environment": "ready",
		"services_status":  services,
	})

	res.AdvanceStage(StageStartup, 100)
	res.CompleteStage()
	o.log.Info("startup finished, all collaborators reachable", "run", res.ID())
	return nil
}

type probeError struct {
	service string
}

func (e *probeError) Error() string {
	return e.service + " connectivity probe failed"
}

// runSynthesis renders the parsed script into one audio artifact.
// Info keys: duration, file_size, format, generated_at, dialogue_count.
func (o *Orchestrator) runSynthesis(ctx context.Context, res *Result) error {
	res.AdvanceStage(StageSynthesis, 0)

	lines := script.Parse(res.OriginalScript())
	if len(lines) == 0 {
		return newValidationError(StageSynthesis, "script contains no dialogue to synthesize")
	}
	res.AdvanceStage(StageSynthesis, 20)

	artifact, err := o.synth.Synthesize(ctx, lines)
	if err != nil {
		return newCollaboratorError(StageSynthesis, err)
	}
	res.setTTSAudio(artifact)
	res.MergeStageInfo(StageSynthesis, map[string]any{
		"duration":       artifact.Duration,
		"file_size":      artifact.Size,
		"format":         artifact.Format,
		"generated_at":   time.Now().Format(time.RFC3339),
		"dialogue_count": len(lines),
	})

	res.AdvanceStage(StageSynthesis, 100)
	res.CompleteStage()
	o.log.Info("synthesis finished", "run", res.ID(), "duration", artifact.Duration)
	return nil
}

// runRecording feeds the synthesized audio through the call simulator.
// Info keys: source_audio_duration, recorded_audio_duration, file_size,
// recording_quality, recorded_at.
func (o *Orchestrator) runRecording(ctx context.Context, res *Result) error {
	res.AdvanceStage(StageRecording, 0)

	tts := res.TTSAudio()
	if tts == nil {
		return newPreconditionError(StageRecording, "no synthesized audio to record")
	}
	res.AdvanceStage(StageRecording, 20)

	recorded, err := o.call.Simulate(ctx, tts)
	if err != nil {
		return newCollaboratorError(StageRecording, err)
	}
	res.setRecordedAudio(recorded)
	res.MergeStageInfo(StageRecording, map[string]any{
		"source_audio_duration":   tts.Duration,
		"recorded_audio_duration": recorded.Duration,
		"file_size":               recorded.Size,
		"recording_quality":       "high_fidelity",
		"recorded_at":             time.Now().Format(time.RFC3339),
	})

	res.AdvanceStage(StageRecording, 100)
	res.CompleteStage()
	o.log.Info("recording finished", "run", res.ID(), "duration", recorded.Duration)
	return nil
}

// runStorage archives the recording in the audio store.
// Info keys: file_id, stored_at, storage_path.
func (o *Orchestrator) runStorage(ctx context.Context, res *Result) error {
	res.AdvanceStage(StageStorage, 0)

	recorded := res.RecordedAudio()
	if recorded == nil {
		return newPreconditionError(StageStorage, "no recorded audio to archive")
	}
	res.AdvanceStage(StageStorage, 20)

	scriptHash, _ := res.stageInfoValue(StagePreprocessing, "script_hash").(string)
	metadata := map[string]any{
		"test_id":              res.ID(),
		"type":                 "recorded_call",
		"duration":             recorded.Duration,
		"created_at":           time.Now().Format(time.RFC3339),
		"original_script_hash": scriptHash,
	}
	if tts := res.TTSAudio(); tts != nil {
		metadata["tts_duration"] = tts.Duration
	}
	res.AdvanceStage(StageStorage, 50)

	id, err := o.store.Put(ctx, recorded, metadata)
	if err != nil {
		return newCollaboratorError(StageStorage, err)
	}
	res.setStorageID(id)
	res.MergeStageInfo(StageStorage, map[string]any{
		"file_id":      id,
		"stored_at":    time.Now().Format(time.RFC3339),
		"storage_path": recorded.Path,
	})

	res.AdvanceStage(StageStorage, 100)
	res.CompleteStage()
	o.log.Info("storage finished", "run", res.ID(), "file_id", id)
	return nil
}

// runAnalysis transcribes the recording, then scores the transcript
// against the original script. An empty transcript short-circuits to
// the fixed zero-score verdict without consulting the analyzer.
// Info keys: transcribed_at, confidence_score, text_length.
func (o *Orchestrator) runAnalysis(ctx context.Context, res *Result) error {
	res.AdvanceStage(StageAnalysis, 0)

	recorded := res.RecordedAudio()
	if recorded == nil {
		return newPreconditionError(StageAnalysis, "no recorded audio to analyze")
	}

	res.setAnalysisPhase("transcribing")
	res.AdvanceStage(StageAnalysis, 10)
	text, confidence, err := o.stt.Transcribe(ctx, recorded)
	if err != nil {
		return newCollaboratorError(StageAnalysis, err)
	}
	res.setTranscription(text, confidence)
	res.MergeStageInfo(StageAnalysis, map[string]any{
		"transcribed_at":   time.Now().Format(time.RFC3339),
		"confidence_score": confidence,
		"text_length":      len(text),
	})
	res.AdvanceStage(StageAnalysis, 50)

	res.setAnalysisPhase("comparing")
	res.AdvanceStage(StageAnalysis, 60)
	if strings.TrimSpace(text) == "" {
		o.log.Warn("transcript is empty, recording zero-score verdict", "run", res.ID())
		res.setAnalysis(collab.EmptyTranscriptResult())
	} else {
		verdict, err := o.llm.Compare(ctx, res.OriginalScript(), text)
		if err != nil {
			return newCollaboratorError(StageAnalysis, err)
		}
		res.setAnalysis(verdict)
	}
	res.setAnalysisPhase("")

	res.AdvanceStage(StageAnalysis, 100)
	res.CompleteStage()
	return nil
}

// runCompletion assembles the final report. Pure aggregation, no
// collaborators. Info keys: cleaned_files, cleanup_at, retention_policy.
func (o *Orchestrator) runCompletion(ctx context.Context, res *Result) error {
	res.AdvanceStage(StageCompletion, 0)

	snap := res.Snapshot()
	var accuracy float64
	if snap.Analysis != nil {
		accuracy = snap.Analysis.AccuracyScore
	}
	fileInfo := map[string]any{
		"storage_file_id": snap.StorageID,
	}
	if snap.TTSAudio != nil {
		fileInfo["tts_audio_path"] = snap.TTSAudio.Path
	}
	if snap.RecordedAudio != nil {
		fileInfo["recorded_audio_path"] = snap.RecordedAudio.Path
	}
	res.setFinalReport(map[string]any{
		"test_summary": map[string]any{
			"test_id":                res.ID(),
			"total_duration_seconds": time.Since(res.CreatedAt()).Seconds(),
			"accuracy_score":         accuracy,
			"completed_at":           time.Now().Format(time.RFC3339),
		},
		"steps_completed": len(snap.CompletedStages),
		"file_info":       fileInfo,
		"analysis_results": map[string]any{
			"original_script_length":  len(snap.OriginalScript),
			"transcribed_text_length": len(snap.TranscribedText),
			"dialogue_count":          snap.ParsedDialogueCount,
			"stt_confidence":          snap.STTConfidence,
			"final_accuracy":          accuracy,
		},
	})
	res.AdvanceStage(StageCompletion, 40)

	// Intermediate artifacts are kept so the UI can replay them; only
	// the archive's own retention window prunes them later.
	res.MergeStageInfo(StageCompletion, map[string]any{
		"cleaned_files":    0,
		"cleanup_at":       time.Now().Format(time.RFC3339),
		"retention_policy": "keep_final_results",
	})
	res.AdvanceStage(StageCompletion, 70)

	res.AdvanceStage(StageCompletion, 100)
	res.CompleteStage()
	o.log.Info("completion finished", "run", res.ID(), "accuracy", accuracy)
	return nil
}
