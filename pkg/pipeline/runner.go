package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/gridlock/pkg/detect"
	"github.com/matzehuels/gridlock/pkg/errors"
	"github.com/matzehuels/gridlock/pkg/observability"
	"github.com/matzehuels/gridlock/pkg/resolve"
	"github.com/matzehuels/gridlock/pkg/scenario"
	"github.com/matzehuels/gridlock/pkg/sim"
)

// Runner executes scenario runs. A single Runner can execute many runs;
// each run builds its own fresh model.
type Runner struct {
	logger *log.Logger
}

// NewRunner creates a runner. A nil logger falls back to a discard logger.
func NewRunner(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{logger: logger}
}

// Execute replays the scenario and returns the collected reports. On a
// resolution failure the partial result is returned along with the error;
// callers can still inspect the log of actions taken.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := r.logger
	if opts.Logger != nil {
		logger = opts.Logger
	}

	sys, err := opts.Scenario.Build()
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:    uuid.NewString(),
		Scenario: opts.Scenario.Name,
	}
	logger.Debug("run started", "run_id", result.RunID, "scenario", result.Scenario, "events", len(opts.Scenario.Events))

	replayStart := time.Now()
	for i, ev := range opts.Scenario.Events {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := r.apply(ctx, sys, ev, logger); err != nil {
			code := errors.GetCode(err)
			if code == "" {
				code = errors.ErrCodeInternal
			}
			return result, errors.Wrap(code, err, "event %d (%s %s)", i, ev.Op, ev.Process)
		}
		result.Stats.Events++

		if !opts.StepDetect() {
			continue
		}
		report := r.detectPass(ctx, sys, result)
		result.Steps = append(result.Steps, StepReport{Event: i, Report: report})

		if report.Disagreement {
			logger.Warn("detection algorithms disagree",
				"event", i, "knot", report.Knot, "unfinished", report.Unfinished)
		}
		if !report.Deadlock() {
			continue
		}
		logger.Info("deadlock detected", "event", i, "processes", report.Deadlocked)
		if !opts.Resolve {
			continue
		}
		if err := r.resolvePass(ctx, sys, report, opts, result); err != nil {
			result.Stats.ReplayTime = time.Since(replayStart)
			r.finish(ctx, sys, result)
			return result, err
		}
	}
	result.Stats.ReplayTime = time.Since(replayStart)

	r.finish(ctx, sys, result)
	logger.Debug("run finished", "run_id", result.RunID,
		"deadlocked", len(result.Final.Deadlocked), "safe", result.Final.Safe, "actions", result.Stats.Actions)
	return result, nil
}

// apply executes one scripted event against the model.
func (r *Runner) apply(ctx context.Context, sys *sim.System, ev scenario.Event, logger *log.Logger) error {
	switch ev.Op {
	case scenario.OpRequest:
		granted, err := sys.Request(ev.Process, ev.Resource, ev.Count)
		if err != nil {
			return err
		}
		observability.Model().OnRequest(ctx, ev.Process, ev.Resource, ev.Count, granted)
		if granted {
			logger.Debug("request granted", "process", ev.Process, "resource", ev.Resource, "count", ev.Count)
		} else {
			logger.Debug("request pending", "process", ev.Process, "resource", ev.Resource, "count", ev.Count)
		}
		return nil
	case scenario.OpRelease:
		woken, err := sys.Release(ev.Process, ev.Resource, ev.Count)
		if err != nil {
			return err
		}
		observability.Model().OnRelease(ctx, ev.Process, ev.Resource, ev.Count, len(woken))
		logger.Debug("released", "process", ev.Process, "resource", ev.Resource, "count", ev.Count, "woken", woken)
		return nil
	case scenario.OpCheckpoint:
		return sys.Checkpoint(ev.Process)
	default:
		return errors.New(errors.ErrCodeInvalidScenario, "unknown event op %q", ev.Op)
	}
}

// detectPass runs one detection pass and records its timing.
func (r *Runner) detectPass(ctx context.Context, sys *sim.System, result *Result) detect.Report {
	snap := sys.Snapshot()
	observability.Detection().OnDetectStart(ctx, len(snap.Processes))
	start := time.Now()
	report := detect.Detect(snap)
	elapsed := time.Since(start)
	observability.Detection().OnDetectComplete(ctx, len(report.Deadlocked), report.Safe, elapsed)
	result.Stats.Detections++
	result.Stats.DetectTime += elapsed
	return report
}

// resolvePass runs the resolver on a confirmed deadlock and records the log.
func (r *Runner) resolvePass(ctx context.Context, sys *sim.System, report detect.Report, opts Options, result *Result) error {
	cfg := resolve.Config{Strategy: opts.Strategy, InvertPriority: opts.InvertPriority}
	observability.Resolution().OnResolveStart(ctx, len(report.Deadlocked), cfg.Strategy.String())

	start := time.Now()
	rlog, err := resolve.Resolve(sys, report, cfg)
	elapsed := time.Since(start)

	actions := 0
	if rlog != nil {
		for _, a := range rlog.Actions {
			observability.Resolution().OnActionApplied(ctx, string(a.Kind), a.Victim)
		}
		result.Resolutions = append(result.Resolutions, *rlog)
		actions = len(rlog.Actions)
		result.Stats.Actions += actions
	}
	result.Stats.ResolveTime += elapsed
	observability.Resolution().OnResolveComplete(ctx, actions, elapsed, err)
	return err
}

// finish takes the final detection pass and snapshot.
func (r *Runner) finish(ctx context.Context, sys *sim.System, result *Result) {
	result.Final = r.detectPass(ctx, sys, result)
	result.Snapshot = sys.Snapshot()
}
