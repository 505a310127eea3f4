// Package provision prepares a host to run this plugin: it waits for the
// addon services, verifies the pinned bioinformatics tools, stages the
// reference databases, and records the outcome.
package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/qiita-spots/qp-shogun/internal/shell"
)

// Tool pins one external tool to the version this plugin was tested with.
type Tool struct {
	Name    string `json:"tool"`
	Command string `json:"command"` // probe invocation, run through sh -c
	Want    string `json:"want"`    // substring that must appear in the probe output
}

// PinnedTools are the version contracts for the wrapped aligners. The probes
// match on output substrings, not exit codes: utree prints its banner and
// exits nonzero when invoked without arguments.
var PinnedTools = []Tool{
	{Name: "shogun", Command: "shogun --version", Want: "1.0.8"},
	{Name: "bowtie2", Command: "bowtie2 --version", Want: "2.4.1"},
	{Name: "burst15", Command: "burst15 -h", Want: "0.99.8"},
	{Name: "utree", Command: "utree-search_gg", Want: "2.0RF"},
}

// ToolResult is the outcome of one tool probe.
type ToolResult struct {
	Tool   Tool   `json:"tool"`
	Output string `json:"output"`
	OK     bool   `json:"ok"`
}

// Verify probes every tool and reports each result. All tools are checked
// before the error is assembled, so one report covers the whole environment;
// a non-nil error means at least one tool did not match its pin.
func Verify(ctx context.Context, sh shell.Runner, tools []Tool) ([]ToolResult, error) {
	results := make([]ToolResult, 0, len(tools))
	var mismatches []string

	for _, tool := range tools {
		res := sh.Check(ctx, tool.Command)
		out := res.Output()
		ok := strings.Contains(out, tool.Want)
		results = append(results, ToolResult{Tool: tool, Output: out, OK: ok})
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf(
				"%s: wanted %q in output of %q, got: %s",
				tool.Name, tool.Want, tool.Command, summarize(out)))
		}
	}

	if len(mismatches) > 0 {
		return results, fmt.Errorf("tool version mismatch:\n  %s",
			strings.Join(mismatches, "\n  "))
	}
	return results, nil
}

// summarize trims probe output to its first line for the error message; the
// full output stays in the ToolResult.
func summarize(out string) string {
	if out == "" {
		return "(no output)"
	}
	if i := strings.IndexByte(out, '\n'); i >= 0 {
		return out[:i] + " ..."
	}
	return out
}
