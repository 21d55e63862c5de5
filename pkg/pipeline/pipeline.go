// Package pipeline provides the driving loop for Gridlock simulations.
//
// This package implements the complete replay → detect → resolve loop that
// can be used by the CLI and by library consumers. By centralizing this
// logic, we ensure consistent behavior across all entry points.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Replay: apply a scenario's event script to a fresh allocation model
//  2. Detect: run both detection algorithms after each event
//  3. Resolve: on a confirmed deadlock, apply the configured strategy
//     until the deadlock clears or resolution explicitly fails
//
// Detection runs against a snapshot taken between events, so a pass never
// observes a partially-mutated model. Resolution failures halt the scenario
// run and are surfaced to the caller; the process does not crash.
//
// # Usage
//
//	runner := pipeline.NewRunner(logger)
//	opts := pipeline.Options{
//	    Scenario: scenario.Simple(),
//	    Resolve:  true,
//	    Strategy: resolve.StrategyTermination,
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Final.Deadlocked)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gridlock/pkg/detect"
	"github.com/matzehuels/gridlock/pkg/errors"
	"github.com/matzehuels/gridlock/pkg/resolve"
	"github.com/matzehuels/gridlock/pkg/scenario"
	"github.com/matzehuels/gridlock/pkg/sim"
)

// Options contains all configuration for one scenario run.
type Options struct {
	// Scenario is the workload to replay. Required.
	Scenario *scenario.Scenario `json:"-"`

	// Resolve enables automatic resolution when a detection pass confirms
	// a deadlock mid-replay.
	Resolve bool `json:"resolve,omitempty"`

	// Strategy is the resolution strategy applied when Resolve is set.
	Strategy resolve.Strategy `json:"strategy,omitempty"`

	// InvertPriority flips victim selection to prefer high priorities.
	InvertPriority bool `json:"invert_priority,omitempty"`

	// SkipStepDetect disables the detection pass after every event; a
	// single final pass still runs after the replay completes.
	SkipStepDetect bool `json:"skip_step_detect,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Scenario == nil {
		return errors.New(errors.ErrCodeInvalidScenario, "scenario is required")
	}
	if err := o.Scenario.Validate(); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// StepDetect reports whether detection runs after every event.
func (o *Options) StepDetect() bool {
	return !o.SkipStepDetect
}

// Result contains the outputs of one scenario run.
type Result struct {
	// RunID uniquely identifies this run.
	RunID string `json:"run_id"`

	// Scenario is the name of the replayed scenario.
	Scenario string `json:"scenario"`

	// Steps holds the detection report taken after each event, when
	// step detection is enabled.
	Steps []StepReport `json:"steps,omitempty"`

	// Resolutions holds one log per resolution run triggered mid-replay.
	Resolutions []resolve.Log `json:"resolutions,omitempty"`

	// Final is the detection report after the full replay.
	Final detect.Report `json:"final"`

	// Snapshot is the final model state.
	Snapshot sim.Snapshot `json:"snapshot"`

	// Stats contains timing and size information.
	Stats Stats `json:"stats"`
}

// StepReport pairs an event index with the detection report that followed it.
type StepReport struct {
	Event  int           `json:"event"`
	Report detect.Report `json:"report"`
}

// Stats contains run execution statistics.
type Stats struct {
	Events      int           `json:"events"`
	Detections  int           `json:"detections"`
	Actions     int           `json:"actions"`
	ReplayTime  time.Duration `json:"replay_time"`
	DetectTime  time.Duration `json:"detect_time"`
	ResolveTime time.Duration `json:"resolve_time"`
}
