package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/voicelab/callcheck/pkg/collab"
	"github.com/voicelab/callcheck/pkg/metrics"
)

// Config carries the orchestrator's collaborators.
type Config struct {
	Log           log.Logger
	Synthesizer   collab.Synthesizer
	Transcriber   collab.Transcriber
	Analyzer      collab.Analyzer
	CallSimulator collab.CallSimulator
	Store         collab.Store
}

// Orchestrator drives one Result through the seven stages in order. It
// is the error boundary for a run: every stage failure, recognized or
// not, ends up in the record's error message and never escapes Run.
type Orchestrator struct {
	log    log.Logger
	synth  collab.Synthesizer
	stt    collab.Transcriber
	llm    collab.Analyzer
	call   collab.CallSimulator
	store  collab.Store
	tracer trace.Tracer
}

func New(cfg Config) (*Orchestrator, error) {
	if cfg.Log == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.Synthesizer == nil || cfg.Transcriber == nil || cfg.Analyzer == nil {
		return nil, errors.New("synthesis, transcription and analysis collaborators are required")
	}
	if cfg.CallSimulator == nil {
		return nil, errors.New("call simulator is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("audio store is required")
	}
	return &Orchestrator{
		log:    cfg.Log,
		synth:  cfg.Synthesizer,
		stt:    cfg.Transcriber,
		llm:    cfg.Analyzer,
		call:   cfg.CallSimulator,
		store:  cfg.Store,
		tracer: otel.Tracer("pipeline orchestrator"),
	}, nil
}

type stageExecutor struct {
	stage Stage
	run   func(context.Context, *Result) error
}

func (o *Orchestrator) sequence() []stageExecutor {
	return []stageExecutor{
		{StagePreprocessing, o.runPreprocessing},
		{StageStartup, o.runStartup},
		{StageSynthesis, o.runSynthesis},
		{StageRecording, o.runRecording},
		{StageStorage, o.runStorage},
		{StageAnalysis, o.runAnalysis},
		{StageCompletion, o.runCompletion},
	}
}

// Run executes the full pipeline against a pending record. On return
// the record is always terminal: Completed after all seven stages, or
// Failed with the first stage failure recorded. Run never panics and
// never returns an error; it is the sole writer of terminal status.
func (o *Orchestrator) Run(ctx context.Context, res *Result) {
	if res.Status().Terminal() {
		o.log.Warn("refusing to run a terminal record", "run", res.ID(), "status", res.Status())
		return
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("pipeline panicked", "run", res.ID(), "panic", r)
			res.seal(StatusFailed, fmt.Sprintf("unexpected failure: %v", r))
			metrics.RecordError("pipeline_panic")
			metrics.RecordRun(res.ID(), string(StatusFailed), 0, time.Since(start))
		}
	}()

	res.begin()
	metrics.RecordRunStarted()
	o.log.Info("pipeline run starting", "run", res.ID())

	for _, exec := range o.sequence() {
		stageCtx, span := o.tracer.Start(ctx, fmt.Sprintf("stage %s", exec.stage))
		err := exec.run(stageCtx, res)
		span.End()

		if err != nil {
			stageErr := intoStageError(exec.stage, err)
			o.log.Error("pipeline run failed",
				"run", res.ID(),
				"stage", stageErr.Stage,
				"kind", stageErr.Kind,
				"err", stageErr.Err)
			res.seal(StatusFailed, stageErr.Error())
			metrics.RecordStageFailure(string(stageErr.Stage), string(stageErr.Kind))
			metrics.RecordRun(res.ID(), string(StatusFailed), 0, time.Since(start))
			return
		}
	}

	res.seal(StatusCompleted, "")
	var accuracy float64
	if snap := res.Snapshot(); snap.Analysis != nil {
		accuracy = snap.Analysis.AccuracyScore
	}
	metrics.RecordRun(res.ID(), string(StatusCompleted), accuracy, time.Since(start))
	o.log.Info("pipeline run completed",
		"run", res.ID(),
		"accuracy", accuracy,
		"duration", time.Since(start))
}

// ServiceStatus probes every remote collaborator, for the system-status
// endpoint.
func (o *Orchestrator) ServiceStatus(ctx context.Context) map[string]bool {
	return map[string]bool{
		"synthesis":     o.synth.Probe(ctx),
		"transcription": o.stt.Probe(ctx),
		"analysis":      o.llm.Probe(ctx),
	}
}
