package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/matzehuels/gridlock/pkg/detect"
	"github.com/matzehuels/gridlock/pkg/errors"
	"github.com/matzehuels/gridlock/pkg/pipeline"
	"github.com/matzehuels/gridlock/pkg/resolve"
	"github.com/matzehuels/gridlock/pkg/sim"
)

// writeResultJSON marshals the result and writes it to path, or stdout
// when path is empty.
func writeResultJSON(result *pipeline.Result, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "marshal result")
	}
	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write result to %s", path)
	}
	printSuccess("Result written")
	printFile(path)
	return nil
}

// printResult renders a styled run summary to stdout.
func printResult(result *pipeline.Result) {
	printNewline()
	fmt.Println(StyleTitle.Render("Run " + result.Scenario))
	printKeyValue("run id", result.RunID)
	printKeyValue("events", fmt.Sprintf("%d", result.Stats.Events))
	printKeyValue("detections", fmt.Sprintf("%d", result.Stats.Detections))

	deadlocks := 0
	for _, step := range result.Steps {
		if step.Report.Deadlock() {
			deadlocks++
		}
	}
	if deadlocks > 0 {
		printKeyValue("deadlocks", fmt.Sprintf("%d", deadlocks))
	}

	for _, rlog := range result.Resolutions {
		printResolution(rlog)
	}

	printNewline()
	printReport(result.Final)
	printSnapshot(result.Snapshot)

	printNewline()
	printDetail("replay %s, detect %s, resolve %s",
		result.Stats.ReplayTime.Round(time.Microsecond),
		result.Stats.DetectTime.Round(time.Microsecond),
		result.Stats.ResolveTime.Round(time.Microsecond))
}

// printReport renders one detection report.
func printReport(report detect.Report) {
	switch {
	case report.Deadlock():
		printError("deadlock: %s", strings.Join(report.Deadlocked, ", "))
	case report.Disagreement:
		printWarning("algorithms disagree: knot={%s} unfinished={%s}",
			strings.Join(report.Knot, ", "), strings.Join(report.Unfinished, ", "))
	case report.Safe:
		printSuccess("no deadlock, state is safe")
		if len(report.SafeSequence) > 0 {
			printDetail("safe sequence: %s", strings.Join(report.SafeSequence, " "+iconArrow+" "))
		}
	default:
		printSuccess("no deadlock")
	}
}

// printResolution renders the action log of one resolution run.
func printResolution(rlog resolve.Log) {
	printNewline()
	printInfo("resolution: %d action(s)", len(rlog.Actions))
	for _, a := range rlog.Actions {
		printDetail("%s %s %s", a.Kind, a.Victim, formatCounts(a.Resources))
	}
}

// printSnapshot renders the final per-process state.
func printSnapshot(snap sim.Snapshot) {
	for _, p := range snap.Processes {
		line := fmt.Sprintf("%-6s %-11s held=%s", p.ID, p.State, formatCounts(p.Held))
		if len(p.Requested) > 0 {
			line += " waiting=" + formatCounts(p.Requested)
		}
		printDetail("%s", line)
	}
}

// formatCounts renders a resource count map as "R1:1 R2:2" in ascending
// resource order, or "-" when empty.
func formatCounts(m map[string]int) string {
	if len(m) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s:%d", k, m[k])
	}
	return strings.Join(parts, " ")
}
