package task

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/qiita-spots/qp-shogun/internal/model"
)

// sortmernaRefs lists the reference FASTA/index basenames shipped with
// the SortMeRNA database bundle, relative to QC_SORTMERNA_DB_DP.
var sortmernaRefs = []string{
	"silva-bac-16s-id90",
	"silva-bac-23s-id98",
	"silva-arc-16s-id95",
	"silva-arc-23s-id98",
	"silva-euk-18s-id95",
	"silva-euk-28s-id98",
	"rfam-5s-database-id98",
	"rfam-5.8s-database-id98",
}

// sortmernaRefString renders the --ref argument: comma-separated
// "fasta,index" pairs rooted at the database directory.
func sortmernaRefString(dbDir string) string {
	pairs := make([]string, 0, len(sortmernaRefs))
	for _, ref := range sortmernaRefs {
		pairs = append(pairs, fmt.Sprintf("%s.fasta,%s.idx",
			filepath.Join(dbDir, ref), filepath.Join(dbDir, ref)))
	}
	return strings.Join(pairs, ":")
}

// generateSortMeRNACommands builds the per-sample rRNA filtering pipelines.
// Paired reads are interleaved before sortmerna and split again afterwards,
// with both the ribosomal and non-ribosomal fractions recompressed into
// outDir.
func (r *Runner) generateSortMeRNACommands(samples []model.SamplePair, outDir, tempDir string, params model.Parameters) ([]string, error) {
	if r.DBs.SortMeRNA == "" {
		return nil, fmt.Errorf("QC_SORTMERNA_DB_DP is not configured")
	}
	threads := params.String("Number of threads", "1")
	refs := sortmernaRefString(r.DBs.SortMeRNA)

	cmds := make([]string, 0, len(samples))
	for _, s := range samples {
		sample := s.SampleName
		merged := filepath.Join(tempDir, sample+".merged.fastq")
		ribo := filepath.Join(tempDir, sample+".ribosomal")
		nonRibo := filepath.Join(tempDir, sample+".nonribosomal")

		if s.Paired() {
			rawR1 := filepath.Join(tempDir, sample+".R1.fastq")
			rawR2 := filepath.Join(tempDir, sample+".R2.fastq")
			cmds = append(cmds, fmt.Sprintf(
				"unpigz -p %s -c %s > %s; "+
					"unpigz -p %s -c %s > %s; "+
					"merge-paired-reads.sh %s %s %s; "+
					"sortmerna --ref %s --reads %s --aligned %s --other %s --paired_in --fastx -a %s; "+
					"unmerge-paired-reads.sh %s.fastq %s.R1.fastq %s.R2.fastq; "+
					"unmerge-paired-reads.sh %s.fastq %s.R1.fastq %s.R2.fastq; "+
					"pigz -p %s -c %s.R1.fastq > %s; "+
					"pigz -p %s -c %s.R2.fastq > %s; "+
					"pigz -p %s -c %s.R1.fastq > %s; "+
					"pigz -p %s -c %s.R2.fastq > %s",
				threads, s.Forward, rawR1,
				threads, s.Reverse, rawR2,
				rawR1, rawR2, merged,
				refs, merged, ribo, nonRibo, threads,
				nonRibo, nonRibo, nonRibo,
				ribo, ribo, ribo,
				threads, nonRibo, filepath.Join(outDir, sample+".nonribosomal.R1.fastq.gz"),
				threads, nonRibo, filepath.Join(outDir, sample+".nonribosomal.R2.fastq.gz"),
				threads, ribo, filepath.Join(outDir, sample+".ribosomal.R1.fastq.gz"),
				threads, ribo, filepath.Join(outDir, sample+".ribosomal.R2.fastq.gz"),
			))
		} else {
			raw := filepath.Join(tempDir, sample+".fastq")
			cmds = append(cmds, fmt.Sprintf(
				"unpigz -p %s -c %s > %s; "+
					"sortmerna --ref %s --reads %s --aligned %s --other %s --fastx -a %s; "+
					"pigz -p %s -c %s.fastq > %s; "+
					"pigz -p %s -c %s.fastq > %s",
				threads, s.Forward, raw,
				refs, raw, ribo, nonRibo, threads,
				threads, nonRibo, filepath.Join(outDir, sample+".nonribosomal.R1.fastq.gz"),
				threads, ribo, filepath.Join(outDir, sample+".ribosomal.R1.fastq.gz"),
			))
		}
	}
	return cmds, nil
}

// sortMeRNA splits reads into ribosomal and non-ribosomal fractions against
// the SILVA/Rfam references.
func (r *Runner) sortMeRNA(ctx context.Context, jobID string, params model.Parameters, outDir string) ([]model.ArtifactInfo, error) {
	if err := r.step(ctx, jobID, "Step 1 of 4: Collecting information"); err != nil {
		return nil, err
	}
	samples, err := r.collectInfo(ctx, jobID, params)
	if err != nil {
		return nil, err
	}

	if err := r.step(ctx, jobID, "Step 2 of 4: Generating Sortmerna commands"); err != nil {
		return nil, err
	}
	tempDir, err := os.MkdirTemp(outDir, "sortmerna_")
	if err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	cmds, err := r.generateSortMeRNACommands(samples, outDir, tempDir, params)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Step 3 of 4: Executing Sortmerna job (%%d/%d)", len(cmds))
	if err := r.runCommands(ctx, jobID, cmds, msg, "Sortmerna"); err != nil {
		return nil, err
	}

	if err := r.step(ctx, jobID, "Step 4 of 4: Generating new artifacts"); err != nil {
		return nil, err
	}
	return sortmernaArtifacts(outDir, samples)
}

// sortmernaArtifacts collects both fractions into two per_sample_FASTQ
// artifacts. A job where no sample produced a non-ribosomal file failed to
// keep any sequences and is an error.
func sortmernaArtifacts(outDir string, samples []model.SamplePair) ([]model.ArtifactInfo, error) {
	collect := func(fraction string) []model.ArtifactFile {
		var files []model.ArtifactFile
		for _, s := range samples {
			for _, part := range []struct {
				tag  string
				kind model.FileKind
			}{
				{".R1", model.KindForwardSeqs},
				{".R2", model.KindReverseSeqs},
			} {
				path := filepath.Join(outDir, s.SampleName+"."+fraction+part.tag+".fastq.gz")
				if _, err := os.Stat(path); err == nil {
					files = append(files, model.ArtifactFile{Path: path, Kind: part.kind})
				}
			}
		}
		return files
	}

	nonRibo := collect("nonribosomal")
	if len(nonRibo) == 0 {
		return nil, fmt.Errorf("no sequences left after rRNA filtering")
	}
	artifacts := []model.ArtifactInfo{
		{Name: "Non-ribosomal reads", Type: model.ArtifactPerSampleFASTQ, Files: nonRibo},
	}
	if ribo := collect("ribosomal"); len(ribo) > 0 {
		artifacts = append(artifacts, model.ArtifactInfo{
			Name: "Ribosomal reads", Type: model.ArtifactPerSampleFASTQ, Files: ribo,
		})
	}
	return artifacts, nil
}
