package task

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qiita-spots/qp-shogun/internal/model"
)

// alignerExtensions gives the alignment file extension each aligner writes.
var alignerExtensions = map[string]string{
	"utree":   "tsv",
	"burst":   "b6",
	"bowtie2": "sam",
}

// taxonomicLevels are the redistribution levels reported back to Qiita.
var taxonomicLevels = []string{"phylum", "genus", "species"}

type shogunConfig struct {
	database string
	aligner  string
	threads  string
}

// shogunConfigFromParams validates the job parameters and resolves the
// database path against QC_SHOGUN_DB_DP.
func (r *Runner) shogunConfigFromParams(params model.Parameters) (shogunConfig, error) {
	vals, err := params.Require("Database", "Aligner tool", "Number of threads")
	if err != nil {
		return shogunConfig{}, err
	}
	cfg := shogunConfig{database: vals[0], aligner: vals[1], threads: vals[2]}

	if _, ok := alignerExtensions[cfg.aligner]; !ok {
		return shogunConfig{}, fmt.Errorf("unknown aligner %q", cfg.aligner)
	}
	if r.DBs.Shogun != "" && !filepath.IsAbs(cfg.database) {
		cfg.database = filepath.Join(r.DBs.Shogun, cfg.database)
	}
	return cfg, nil
}

func generateShogunAlignCommand(inputFP, tempDir string, cfg shogunConfig) string {
	return fmt.Sprintf(
		"shogun align --aligner %s --threads %s --database %s --input %s --output %s",
		cfg.aligner, cfg.threads, cfg.database, inputFP, tempDir)
}

// generateShogunAssignTaxonomyCommand builds the assign-taxonomy invocation
// and returns it with the profile path it will write.
func generateShogunAssignTaxonomyCommand(tempDir string, cfg shogunConfig) (string, string) {
	ext := alignerExtensions[cfg.aligner]
	alignmentFP := filepath.Join(tempDir, fmt.Sprintf("alignment.%s.%s", cfg.aligner, ext))
	profileFP := filepath.Join(tempDir, "profile.tsv")
	cmd := fmt.Sprintf(
		"shogun assign-taxonomy --aligner %s --database %s --input %s --output %s",
		cfg.aligner, cfg.database, alignmentFP, profileFP)
	return cmd, profileFP
}

// generateShogunRedistCommand builds the redistribute invocation for one
// taxonomic level and returns it with its output path.
func generateShogunRedistCommand(profileFP, tempDir string, cfg shogunConfig, level string) (string, string) {
	outputFP := filepath.Join(tempDir, fmt.Sprintf("profile.redist.%s.tsv", level))
	cmd := fmt.Sprintf(
		"shogun redistribute --database %s --level %s --input %s --output %s",
		cfg.database, level, profileFP, outputFP)
	return cmd, outputFP
}

// shogun profiles the combined reads taxonomically: align, assign taxonomy,
// then redistribute the profile at phylum, genus, and species level. Every
// profile is converted to a BIOM OTU table for Qiita.
func (r *Runner) shogun(ctx context.Context, jobID string, params model.Parameters, outDir string) ([]model.ArtifactInfo, error) {
	if err := r.step(ctx, jobID, "Step 1 of 6: Collecting information"); err != nil {
		return nil, err
	}
	samples, err := r.collectInfo(ctx, jobID, params)
	if err != nil {
		return nil, err
	}

	cfg, err := r.shogunConfigFromParams(params)
	if err != nil {
		return nil, err
	}

	if err := r.step(ctx, jobID, "Step 2 of 6: Converting to FNA for Shogun"); err != nil {
		return nil, err
	}
	tempDir, err := os.MkdirTemp(outDir, "shogun_")
	if err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	combinedFP, err := CombineFNA(samples, tempDir)
	if err != nil {
		return nil, err
	}

	alignCmd := generateShogunAlignCommand(combinedFP, tempDir, cfg)
	if err := r.runCommands(ctx, jobID, []string{alignCmd},
		"Step 3 of 6: Aligning FNA with Shogun (%d/1)", "Shogun Align"); err != nil {
		return nil, err
	}

	assignCmd, profileFP := generateShogunAssignTaxonomyCommand(tempDir, cfg)
	if err := r.runCommands(ctx, jobID, []string{assignCmd},
		"Step 4 of 6: Taxonomic profile with Shogun (%d/1)", "Shogun taxonomy assignment"); err != nil {
		return nil, err
	}

	if err := r.step(ctx, jobID, "Step 5 of 6: Converting output to BIOM"); err != nil {
		return nil, err
	}
	profileBiom := filepath.Join(outDir, "otu_table.alignment.profile.biom")
	if err := WriteBIOM(profileFP, profileBiom, true); err != nil {
		return nil, err
	}
	artifacts := []model.ArtifactInfo{
		model.NewArtifactInfo("Shogun Alignment Profile", model.ArtifactBIOM, model.KindBiom, profileBiom),
	}

	redistMsg := fmt.Sprintf("Step 6 of 6: Redistributed profile with Shogun (%%d/%d)", len(taxonomicLevels))
	for _, level := range taxonomicLevels {
		redistCmd, redistFP := generateShogunRedistCommand(profileFP, tempDir, cfg, level)
		if err := r.runCommands(ctx, jobID, []string{redistCmd}, redistMsg, "Shogun redistribute"); err != nil {
			return nil, err
		}
		redistBiom := filepath.Join(outDir, fmt.Sprintf("otu_table.redist.%s.biom", level))
		if err := WriteBIOM(redistFP, redistBiom, true); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, model.NewArtifactInfo(
			"Taxonomic Predictions - "+level, model.ArtifactBIOM, model.KindBiom, redistBiom))
	}

	return artifacts, nil
}
