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

// bowtie2Params maps bowtie2 flags to the human-readable parameter names
// registered with Qiita.
var bowtie2Params = map[string]string{
	"x": "Bowtie2 database to filter",
	"p": "Number of threads to be used",
}

// filterDBPrefix resolves a database choice to its path inside
// QC_FILTER_DB_DP.
var filterDBPrefix = map[string]string{
	"Human": "Human/phix",
}

// formatFilterParams renders the bowtie2 flag string for a filtering job.
// Flag values of "True"/"False" toggle bare flags; "default" and empty
// values are dropped; the database choice resolves through the filter DB
// directory.
func (r *Runner) formatFilterParams(params model.Parameters) (string, error) {
	flags := make([]string, 0, len(bowtie2Params))

	keys := make([]string, 0, len(bowtie2Params))
	for k := range bowtie2Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, flag := range keys {
		value := params[bowtie2Params[flag]]
		dash := "--"
		if len(flag) == 1 {
			dash = "-"
		}
		switch {
		case value == "True":
			flags = append(flags, dash+flag)
		case value == "False", value == "", value == "default":
			continue
		default:
			if flag == "x" {
				if r.DBs.Filter == "" {
					return "", fmt.Errorf("QC_FILTER_DB_DP is not configured")
				}
				prefix, ok := filterDBPrefix[value]
				if !ok {
					return "", fmt.Errorf("unknown filter database %q", value)
				}
				value = filepath.Join(r.DBs.Filter, prefix)
			}
			flags = append(flags, fmt.Sprintf("%s%s %s", dash, flag, value))
		}
	}
	return strings.Join(flags, " "), nil
}

// generateFilterCommands builds the per-sample filtering pipelines: bowtie2
// host alignment, samtools extraction of unmapped pairs, bedtools back to
// FASTQ, and pigz compression into outDir.
func (r *Runner) generateFilterCommands(samples []model.SamplePair, outDir, tempDir string, params model.Parameters) ([]string, error) {
	paramString, err := r.formatFilterParams(params)
	if err != nil {
		return nil, err
	}
	threads := params.String("Number of threads to be used", "1")

	cmds := make([]string, 0, len(samples))
	for _, s := range samples {
		sample := s.SampleName
		unsorted := filepath.Join(tempDir, sample+".unsorted.bam")
		sorted := filepath.Join(tempDir, sample+".bam")
		r1 := filepath.Join(tempDir, sample+".R1.trimmed.filtered.fastq")
		r2 := filepath.Join(tempDir, sample+".R2.trimmed.filtered.fastq")

		cmds = append(cmds, fmt.Sprintf(
			"bowtie2 %s --very-sensitive -1 %s -2 %s | "+
				"samtools view -f 12 -F 256 -b -o %s; "+
				"samtools sort -T %s -@ %s -n -o %s %s; "+
				"bedtools bamtofastq -i %s -fq %s -fq2 %s; "+
				"pigz -p %s -c %s > %s; "+
				"pigz -p %s -c %s > %s",
			paramString, s.Forward, s.Reverse,
			unsorted,
			filepath.Join(tempDir, sample), threads, sorted, unsorted,
			sorted, r1, r2,
			threads, r1, filepath.Join(outDir, sample+".R1.trimmed.filtered.fastq.gz"),
			threads, r2, filepath.Join(outDir, sample+".R2.trimmed.filtered.fastq.gz"),
		))
	}
	return cmds, nil
}

// qcFilter removes host (and PhiX) reads by aligning against the configured
// bowtie2 database and keeping only pairs where neither read mapped.
func (r *Runner) qcFilter(ctx context.Context, jobID string, params model.Parameters, outDir string) ([]model.ArtifactInfo, error) {
	if err := r.step(ctx, jobID, "Step 1 of 4: Collecting information"); err != nil {
		return nil, err
	}
	samples, err := r.collectInfo(ctx, jobID, params)
	if err != nil {
		return nil, err
	}

	if err := r.step(ctx, jobID, "Step 2 of 4: Generating QC_Filter commands"); err != nil {
		return nil, err
	}
	tempDir, err := os.MkdirTemp(outDir, "qc_filter_")
	if err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	cmds, err := r.generateFilterCommands(samples, outDir, tempDir, params)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Step 3 of 4: Executing QC_Filter job (%%d/%d)", len(cmds))
	if err := r.runCommands(ctx, jobID, cmds, msg, "QC_Filter"); err != nil {
		return nil, err
	}

	if err := r.step(ctx, jobID, "Step 4 of 4: Generating new artifacts"); err != nil {
		return nil, err
	}
	return perSampleFastqArtifacts(outDir, samples, "QC_Filter files", ".trimmed.filtered.fastq.gz")
}

// perSampleFastqArtifacts collects the per-sample gzipped FASTQ outputs with
// the given suffix into one per_sample_FASTQ artifact. Filtering that leaves
// no sequences at all is an error.
func perSampleFastqArtifacts(outDir string, samples []model.SamplePair, name, suffix string) ([]model.ArtifactInfo, error) {
	var files []model.ArtifactFile
	for _, s := range samples {
		for _, part := range []struct {
			tag  string
			kind model.FileKind
		}{
			{".R1", model.KindForwardSeqs},
			{".R2", model.KindReverseSeqs},
		} {
			path := filepath.Join(outDir, s.SampleName+part.tag+suffix)
			if _, err := os.Stat(path); err == nil {
				files = append(files, model.ArtifactFile{Path: path, Kind: part.kind})
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no sequences left after filtering")
	}
	return []model.ArtifactInfo{{Name: name, Type: model.ArtifactPerSampleFASTQ, Files: files}}, nil
}
