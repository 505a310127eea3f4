package provision

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qiita-spots/qp-shogun/internal/shell"
)

// stubTools writes executable scripts into a fresh bin dir and returns a
// shell runner whose PATH starts with it.
func stubTools(t *testing.T, scripts map[string]string) shell.Runner {
	t.Helper()
	binDir := t.TempDir()
	for name, script := range scripts {
		path := filepath.Join(binDir, name)
		if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
			t.Fatalf("writing stub %s: %v", name, err)
		}
	}
	return shell.Runner{Env: map[string]string{
		"PATH": binDir + string(os.PathListSeparator) + os.Getenv("PATH"),
	}}
}

func TestVerify_AllMatch(t *testing.T) {
	sh := stubTools(t, map[string]string{
		"shogun":          `echo "shogun, version 1.0.8"`,
		"bowtie2":         `echo "bowtie2-align-s version 2.4.1"`,
		"burst15":         `echo "BURST aligner v0.99.8"`,
		"utree-search_gg": `echo "UTree v2.0RF" >&2; exit 1`,
	})

	results, err := Verify(context.Background(), sh, PinnedTools)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(results) != len(PinnedTools) {
		t.Fatalf("got %d results, want %d", len(results), len(PinnedTools))
	}
	for _, r := range results {
		if !r.OK {
			t.Errorf("%s: OK=false, output=%q", r.Tool.Name, r.Output)
		}
	}
}

// utree prints its banner to stderr and exits nonzero; the probe must still
// pass on the output substring.
func TestVerify_NonzeroExitStillChecked(t *testing.T) {
	sh := stubTools(t, map[string]string{
		"utree-search_gg": `echo "UTree v2.0RF compiled" >&2; exit 2`,
	})
	tools := []Tool{{Name: "utree", Command: "utree-search_gg", Want: "2.0RF"}}

	results, err := Verify(context.Background(), sh, tools)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !results[0].OK {
		t.Errorf("result = %+v", results[0])
	}
}

func TestVerify_MismatchAggregates(t *testing.T) {
	sh := stubTools(t, map[string]string{
		"shogun":  `echo "shogun, version 1.0.7"`,
		"bowtie2": `echo "bowtie2-align-s version 2.4.1"`,
		"burst15": `echo "BURST aligner v0.98"`,
	})
	tools := []Tool{
		{Name: "shogun", Command: "shogun --version", Want: "1.0.8"},
		{Name: "bowtie2", Command: "bowtie2 --version", Want: "2.4.1"},
		{Name: "burst15", Command: "burst15 -h", Want: "0.99.8"},
	}

	results, err := Verify(context.Background(), sh, tools)
	if err == nil {
		t.Fatal("Verify should fail on mismatched versions")
	}
	// Every tool was probed despite the first failure.
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[1].OK != true {
		t.Errorf("bowtie2 result = %+v", results[1])
	}
	for _, frag := range []string{"shogun", `"1.0.8"`, "burst15", `"0.99.8"`} {
		if !strings.Contains(err.Error(), frag) {
			t.Errorf("error missing %q:\n%s", frag, err)
		}
	}
	if strings.Contains(err.Error(), "bowtie2:") {
		t.Errorf("matching tool reported as mismatch:\n%s", err)
	}
}

func TestVerify_MissingTool(t *testing.T) {
	sh := stubTools(t, nil)
	tools := []Tool{{Name: "shogun", Command: "definitely-not-installed-tool --version", Want: "1.0.8"}}

	results, err := Verify(context.Background(), sh, tools)
	if err == nil {
		t.Fatal("Verify should fail when the tool is missing")
	}
	if results[0].OK {
		t.Errorf("result = %+v", results[0])
	}
}

func TestSummarize(t *testing.T) {
	if got := summarize(""); got != "(no output)" {
		t.Errorf("summarize(\"\") = %q", got)
	}
	if got := summarize("line one\nline two"); got != "line one ..." {
		t.Errorf("summarize multiline = %q", got)
	}
	if got := summarize("single"); got != "single" {
		t.Errorf("summarize single = %q", got)
	}
}
