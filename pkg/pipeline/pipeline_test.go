package pipeline

import (
	"context"
	"slices"
	"testing"

	"github.com/matzehuels/gridlock/pkg/errors"
	"github.com/matzehuels/gridlock/pkg/resolve"
	"github.com/matzehuels/gridlock/pkg/scenario"
)

func TestExecuteDetectOnly(t *testing.T) {
	runner := NewRunner(nil)
	result, err := runner.Execute(context.Background(), Options{Scenario: scenario.Simple()})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if result.RunID == "" {
		t.Error("RunID is empty")
	}
	if result.Scenario != "simple" {
		t.Errorf("Scenario = %q, want %q", result.Scenario, "simple")
	}
	if result.Stats.Events != len(scenario.Simple().Events) {
		t.Errorf("Stats.Events = %d, want %d", result.Stats.Events, len(scenario.Simple().Events))
	}
	if len(result.Steps) != result.Stats.Events {
		t.Errorf("Steps = %d, want one per event", len(result.Steps))
	}

	// Without resolution the deadlock survives to the final report.
	if !slices.Equal(result.Final.Deadlocked, []string{"P1", "P2"}) {
		t.Errorf("Final.Deadlocked = %v, want [P1 P2]", result.Final.Deadlocked)
	}
	if len(result.Resolutions) != 0 {
		t.Errorf("Resolutions = %v, want none", result.Resolutions)
	}
}

func TestExecuteWithResolution(t *testing.T) {
	runner := NewRunner(nil)
	opts := Options{
		Scenario: scenario.Simple(),
		Resolve:  true,
		Strategy: resolve.StrategyTermination,
	}
	result, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if len(result.Resolutions) != 1 {
		t.Fatalf("Resolutions = %d, want 1", len(result.Resolutions))
	}
	if result.Stats.Actions != 1 {
		t.Errorf("Stats.Actions = %d, want 1", result.Stats.Actions)
	}
	if result.Final.Deadlock() {
		t.Errorf("Final.Deadlocked = %v, want empty", result.Final.Deadlocked)
	}

	victim, _ := result.Snapshot.Process("P1")
	if victim.State.String() != "terminated" {
		t.Errorf("P1 state = %v, want terminated", victim.State)
	}
}

func TestExecuteNoDeadlock(t *testing.T) {
	runner := NewRunner(nil)
	opts := Options{Scenario: scenario.NoDeadlock(), Resolve: true}
	result, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if !result.Final.Safe {
		t.Errorf("Final.Safe = false, want true")
	}
	if result.Final.Deadlock() {
		t.Errorf("Final.Deadlocked = %v, want empty", result.Final.Deadlocked)
	}
	if len(result.Resolutions) != 0 {
		t.Errorf("Resolutions = %v, want none", result.Resolutions)
	}
}

func TestExecuteResolutionFailure(t *testing.T) {
	// Without checkpoints the rollback strategy has nothing to restore, so
	// the first resolution attempt fails and the run halts.
	s := scenario.Simple()
	s.Events = []scenario.Event{
		{Op: scenario.OpRequest, Process: "P1", Resource: "R1", Count: 1},
		{Op: scenario.OpRequest, Process: "P2", Resource: "R2", Count: 1},
		{Op: scenario.OpRequest, Process: "P1", Resource: "R2", Count: 1},
		{Op: scenario.OpRequest, Process: "P2", Resource: "R1", Count: 1},
	}

	runner := NewRunner(nil)
	opts := Options{Scenario: s, Resolve: true, Strategy: resolve.StrategyRollback}
	result, err := runner.Execute(context.Background(), opts)

	if !errors.Is(err, errors.ErrCodeResolutionFailed) {
		t.Fatalf("Execute() error = %v, want RESOLUTION_FAILED", err)
	}
	if result == nil {
		t.Fatal("Execute() result = nil, want partial result on failure")
	}
	if len(result.Resolutions) != 1 {
		t.Errorf("Resolutions = %d, want the failed attempt's log", len(result.Resolutions))
	}
	if !result.Final.Deadlock() {
		t.Errorf("Final.Deadlocked = %v, want the surviving deadlock", result.Final.Deadlocked)
	}
}

func TestExecuteSkipStepDetect(t *testing.T) {
	runner := NewRunner(nil)
	opts := Options{Scenario: scenario.Simple(), SkipStepDetect: true}
	result, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if len(result.Steps) != 0 {
		t.Errorf("Steps = %d, want none with step detection disabled", len(result.Steps))
	}
	// The final pass still runs.
	if result.Stats.Detections != 1 {
		t.Errorf("Stats.Detections = %d, want 1", result.Stats.Detections)
	}
	if !slices.Equal(result.Final.Deadlocked, []string{"P1", "P2"}) {
		t.Errorf("Final.Deadlocked = %v, want [P1 P2]", result.Final.Deadlocked)
	}
}

func TestExecuteInvalidEvent(t *testing.T) {
	s := scenario.Simple()
	// Releasing something never held passes validation but fails at replay.
	s.Events = []scenario.Event{
		{Op: scenario.OpRelease, Process: "P1", Resource: "R1", Count: 1},
	}

	runner := NewRunner(nil)
	_, err := runner.Execute(context.Background(), Options{Scenario: s})
	if !errors.Is(err, errors.ErrCodeInvalidRelease) {
		t.Errorf("Execute() error = %v, want INVALID_RELEASE", err)
	}
}

func TestOptionsValidate(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidScenario) {
		t.Errorf("ValidateAndSetDefaults() error = %v, want INVALID_SCENARIO", err)
	}

	opts = Options{Scenario: scenario.Simple()}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error: %v", err)
	}
	if opts.Logger == nil {
		t.Error("Logger not defaulted")
	}
	// Idempotent.
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Errorf("second ValidateAndSetDefaults() error: %v", err)
	}
}

func TestExecuteCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(nil)
	result, err := runner.Execute(ctx, Options{Scenario: scenario.Simple()})
	if err != context.Canceled {
		t.Fatalf("Execute() error = %v, want context.Canceled", err)
	}
	if result == nil || result.Stats.Events != 0 {
		t.Errorf("result = %+v, want zero events applied", result)
	}
}
