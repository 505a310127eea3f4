package task

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/qiita-spots/qp-shogun/internal/model"
)

// atroposParams maps atropos long options to the parameter names registered
// with Qiita.
var atroposParams = map[string]string{
	"adapter":        "Fwd read adapter",
	"A":              "Rev read adapter",
	"quality-cutoff": "Trim low-quality bases",
	"minimum-length": "Minimum trimmed read length",
	"pair-filter":    "Pair-end read required to match",
	"max-n":          "Maximum number of N bases in a read to keep it",
	"trim-n":         "Trim Ns on ends of reads",
	"threads":        "Number of threads used",
	"nextseq-trim":   "NextSeq-specific quality trimming",
}

// formatTrimParams renders the atropos option string. "True"/"False" values
// toggle bare flags; empty and "default" values are dropped.
func formatTrimParams(params model.Parameters) string {
	opts := make([]string, 0, len(atroposParams))

	keys := make([]string, 0, len(atroposParams))
	for k := range atroposParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, opt := range keys {
		value := params[atroposParams[opt]]
		dash := "--"
		if len(opt) == 1 {
			dash = "-"
		}
		switch value {
		case "True":
			opts = append(opts, dash+opt)
		case "False", "", "default":
			continue
		default:
			opts = append(opts, fmt.Sprintf("%s%s %s", dash, opt, value))
		}
	}
	return strings.Join(opts, " ")
}

// generateTrimCommands builds one atropos invocation per sample pair,
// writing gzipped trimmed reads into outDir.
func generateTrimCommands(samples []model.SamplePair, outDir string, params model.Parameters) []string {
	paramString := formatTrimParams(params)

	cmds := make([]string, 0, len(samples))
	for _, s := range samples {
		r1 := filepath.Join(outDir, s.SampleName+".R1.fastq.gz")
		if s.Paired() {
			r2 := filepath.Join(outDir, s.SampleName+".R2.fastq.gz")
			cmds = append(cmds, fmt.Sprintf(
				"atropos trim %s -o %s -p %s -pe1 %s -pe2 %s",
				paramString, r1, r2, s.Forward, s.Reverse))
		} else {
			cmds = append(cmds, fmt.Sprintf(
				"atropos trim %s -o %s -se %s",
				paramString, r1, s.Forward))
		}
	}
	return cmds
}

// atroposTrim removes adapters and low-quality ends from the raw reads.
func (r *Runner) atroposTrim(ctx context.Context, jobID string, params model.Parameters, outDir string) ([]model.ArtifactInfo, error) {
	if err := r.step(ctx, jobID, "Step 1 of 4: Collecting information"); err != nil {
		return nil, err
	}
	samples, err := r.collectInfo(ctx, jobID, params)
	if err != nil {
		return nil, err
	}

	if err := r.step(ctx, jobID, "Step 2 of 4: Generating Atropos commands"); err != nil {
		return nil, err
	}
	cmds := generateTrimCommands(samples, outDir, params)

	msg := fmt.Sprintf("Step 3 of 4: Executing Atropos job (%%d/%d)", len(cmds))
	if err := r.runCommands(ctx, jobID, cmds, msg, "Atropos"); err != nil {
		return nil, err
	}

	if err := r.step(ctx, jobID, "Step 4 of 4: Generating new artifacts"); err != nil {
		return nil, err
	}
	return perSampleFastqArtifacts(outDir, samples, "Adapter trimmed files", ".fastq.gz")
}
