package task

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/qiita-spots/qp-shogun/internal/model"
)

// formatKneaddataParams renders the kneaddata option string. KneadData
// parameters are registered under their long option names, so no flag table
// is needed: "True" toggles the bare flag, "False" and empty values are
// dropped, everything else is passed through.
func formatKneaddataParams(params model.Parameters) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	opts := make([]string, 0, len(keys))
	for _, opt := range keys {
		switch value := params[opt]; value {
		case "True":
			opts = append(opts, "--"+opt)
		case "False", "":
			continue
		default:
			opts = append(opts, fmt.Sprintf("--%s %s", opt, value))
		}
	}
	return strings.Join(opts, " ")
}

// generateKneaddataCommands builds one kneaddata invocation per sample,
// writing each sample's outputs into a run-prefix subdirectory of outDir.
func generateKneaddataCommands(samples []model.SamplePair, outDir string, params model.Parameters) []string {
	paramString := formatKneaddataParams(params)

	cmds := make([]string, 0, len(samples))
	for _, s := range samples {
		sampleOut := filepath.Join(outDir, s.RunPrefix)
		if s.Paired() {
			cmds = append(cmds, fmt.Sprintf(
				`kneaddata --input "%s" --input "%s" --output "%s" --output-prefix "%s" %s`,
				s.Forward, s.Reverse, sampleOut, s.RunPrefix, paramString))
		} else {
			cmds = append(cmds, fmt.Sprintf(
				`kneaddata --input "%s" --output "%s" --output-prefix "%s" %s`,
				s.Forward, sampleOut, s.RunPrefix, paramString))
		}
	}
	return cmds
}

// kneaddata trims reads and removes host contamination in one pass
// (Trimmomatic plus bowtie2 against the reference database).
func (r *Runner) kneaddata(ctx context.Context, jobID string, params model.Parameters, outDir string) ([]model.ArtifactInfo, error) {
	if err := r.step(ctx, jobID, "Step 1 of 4: Collecting information"); err != nil {
		return nil, err
	}
	samples, err := r.collectInfo(ctx, jobID, params)
	if err != nil {
		return nil, err
	}

	if err := r.step(ctx, jobID, "Step 2 of 4: Generating KneadData commands"); err != nil {
		return nil, err
	}
	cmds := generateKneaddataCommands(samples, outDir, params)

	msg := fmt.Sprintf("Step 3 of 4: Executing KneadData job (%%d/%d)", len(cmds))
	if err := r.runCommands(ctx, jobID, cmds, msg, "KneadData"); err != nil {
		return nil, err
	}

	if err := r.step(ctx, jobID, "Step 4 of 4: Generating new artifacts"); err != nil {
		return nil, err
	}
	return kneaddataArtifacts(outDir, samples)
}

// kneaddataArtifacts collects each sample's cleaned reads from its
// run-prefix subdirectory: "{prefix}_paired_1/2.fastq" for paired runs,
// "{prefix}.fastq" for single-end. A run that cleaned away every read is an
// error.
func kneaddataArtifacts(outDir string, samples []model.SamplePair) ([]model.ArtifactInfo, error) {
	var files []model.ArtifactFile
	for _, s := range samples {
		sampleOut := filepath.Join(outDir, s.RunPrefix)
		if s.Paired() {
			for _, part := range []struct {
				name string
				kind model.FileKind
			}{
				{s.RunPrefix + "_paired_1.fastq", model.KindForwardSeqs},
				{s.RunPrefix + "_paired_2.fastq", model.KindReverseSeqs},
			} {
				path := filepath.Join(sampleOut, part.name)
				if _, err := os.Stat(path); err == nil {
					files = append(files, model.ArtifactFile{Path: path, Kind: part.kind})
				}
			}
		} else {
			path := filepath.Join(sampleOut, s.RunPrefix+".fastq")
			if _, err := os.Stat(path); err == nil {
				files = append(files, model.ArtifactFile{Path: path, Kind: model.KindForwardSeqs})
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no sequences left after host removal")
	}
	return []model.ArtifactInfo{{Name: "KneadData files", Type: model.ArtifactPerSampleFASTQ, Files: files}}, nil
}
