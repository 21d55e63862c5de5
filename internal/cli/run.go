package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gridlock/pkg/errors"
	"github.com/matzehuels/gridlock/pkg/pipeline"
	"github.com/matzehuels/gridlock/pkg/resolve"
	"github.com/matzehuels/gridlock/pkg/scenario"
)

// runOpts holds the command-line flags shared by run and detect.
type runOpts struct {
	strategy string // resolution strategy name
	invert   bool   // prefer high-priority victims
	jsonOut  bool   // emit the full result as JSON
	output   string // output file path (stdout if empty)
}

// newRunCmd creates the run command: replay a scenario, detect after each
// event, and resolve confirmed deadlocks with the configured strategy.
func newRunCmd() *cobra.Command {
	opts := runOpts{strategy: "termination"}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Replay a scenario and resolve detected deadlocks",
		Long: `Replay a scenario with deadlock detection after every event and
automatic resolution when both algorithms confirm a deadlock.

The scenario is a built-in name or a path to a TOML file.

Examples:
  gridlock run simple
  gridlock run dining-5 --strategy preemption
  gridlock run chain --strategy rollback --json
  gridlock run ./workload.toml -o result.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeScenario(cmd.Context(), args[0], opts, true)
		},
	}

	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", opts.strategy, "resolution strategy (termination, preemption, rollback)")
	cmd.Flags().BoolVar(&opts.invert, "invert-priority", false, "prefer high-priority victims")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "emit the full result as JSON")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write JSON result to file")

	return cmd
}

// newDetectCmd creates the detect command: replay a scenario and report
// what the detector sees, without mutating resolution.
func newDetectCmd() *cobra.Command {
	var opts runOpts

	cmd := &cobra.Command{
		Use:   "detect <scenario>",
		Short: "Replay a scenario and report detection results",
		Long: `Replay a scenario with deadlock detection after every event but no
resolution, then print the final detection report.

Examples:
  gridlock detect simple
  gridlock detect ./workload.toml --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeScenario(cmd.Context(), args[0], opts, false)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "emit the full result as JSON")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write JSON result to file")

	return cmd
}

// newScenariosCmd creates the scenarios command listing the built-in catalog.
func newScenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List the built-in scenario catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(StyleTitle.Render("Built-in scenarios"))
			for _, name := range scenario.Names() {
				s, _ := scenario.Builtin(name)
				printKeyValue(name, s.Description)
			}
			return nil
		},
	}
}

// loadScenario resolves a scenario argument: built-in names win, anything
// else is treated as a path to a TOML file.
func loadScenario(arg string) (*scenario.Scenario, error) {
	if s, ok := scenario.Builtin(arg); ok {
		return s, nil
	}
	return scenario.Load(arg)
}

// executeScenario is the shared driver behind run and detect.
func executeScenario(ctx context.Context, arg string, opts runOpts, withResolve bool) error {
	logger := loggerFromContext(ctx)

	s, err := loadScenario(arg)
	if err != nil {
		return err
	}

	popts := pipeline.Options{
		Scenario:       s,
		Resolve:        withResolve,
		InvertPriority: opts.invert,
		Logger:         logger,
	}
	if withResolve {
		strategy, err := resolve.ParseStrategy(opts.strategy)
		if err != nil {
			return err
		}
		popts.Strategy = strategy
	}

	prog := newProgress(logger)
	runner := pipeline.NewRunner(logger)
	result, runErr := runner.Execute(ctx, popts)
	if result == nil {
		return runErr
	}
	prog.done(fmt.Sprintf("Replayed %d events", result.Stats.Events))

	if runErr != nil && errors.Is(runErr, errors.ErrCodeResolutionFailed) {
		printError("resolution failed: %s", errors.UserMessage(runErr))
	}

	if opts.jsonOut || opts.output != "" {
		if err := writeResultJSON(result, opts.output); err != nil {
			return err
		}
		return runErr
	}

	printResult(result)
	return runErr
}
