package main

import (
	"context"
	"fmt"

	"github.com/qiita-spots/qp-shogun/internal/config"
	"github.com/qiita-spots/qp-shogun/internal/model"
	"github.com/qiita-spots/qp-shogun/internal/qiita"
	"github.com/qiita-spots/qp-shogun/internal/task"
)

const (
	pluginName        = "qp-shogun"
	pluginVersion     = "012020"
	pluginDescription = "Shotgun sequencing analysis tools for Qiita"
)

// pluginDefinition describes this plugin and its commands as registered with
// Qiita and mirrored into the deployment registry.
func pluginDefinition() model.Plugin {
	return model.Plugin{
		Name:        pluginName,
		Version:     pluginVersion,
		Description: pluginDescription,
		Commands: []model.Command{
			{
				Name:        task.CmdQCFilter,
				Description: "Sequence QC - Filtering",
				Parameters: map[string]model.ParameterSpec{
					"input": {Type: "artifact", Required: true},
					"Bowtie2 database to filter": {
						Type: "choice", Default: "Human", Choices: []string{"Human"},
					},
					"Number of threads to be used": {Type: "integer", Default: "4"},
				},
				DefaultSets: []model.ParameterSet{
					{Name: "Defaults", Values: model.Parameters{
						"Bowtie2 database to filter":   "Human",
						"Number of threads to be used": "4",
					}},
				},
			},
			{
				Name:        task.CmdAtropos,
				Description: "Sequence QC - Adapter and quality trimming",
				Parameters: map[string]model.ParameterSpec{
					"input":            {Type: "artifact", Required: true},
					"Fwd read adapter": {Type: "string", Default: "GATCGGAAGAGCACACGTCTGAACTCCAGTCAC"},
					"Rev read adapter": {Type: "string", Default: "GATCGGAAGAGCGTCGTGTAGGGAAAGGAGTGT"},
					"Trim low-quality bases":      {Type: "integer", Default: "15"},
					"Minimum trimmed read length": {Type: "integer", Default: "80"},
					"Pair-end read required to match": {
						Type: "choice", Default: "any", Choices: []string{"any", "both"},
					},
					"Maximum number of N bases in a read to keep it": {Type: "integer", Default: "80"},
					"Trim Ns on ends of reads":                       {Type: "boolean", Default: "True"},
					"NextSeq-specific quality trimming":              {Type: "boolean", Default: "False"},
					"Number of threads used":                         {Type: "integer", Default: "4"},
				},
				DefaultSets: []model.ParameterSet{
					{Name: "KAPA HyperPlus with iTru", Values: model.Parameters{
						"Fwd read adapter":            "GATCGGAAGAGCACACGTCTGAACTCCAGTCAC",
						"Rev read adapter":            "GATCGGAAGAGCGTCGTGTAGGGAAAGGAGTGT",
						"Trim low-quality bases":      "15",
						"Minimum trimmed read length": "80",
						"Pair-end read required to match":                "any",
						"Maximum number of N bases in a read to keep it": "80",
						"Trim Ns on ends of reads":                       "True",
						"NextSeq-specific quality trimming":              "False",
						"Number of threads used":                         "4",
					}},
				},
			},
			{
				Name:        task.CmdShogun,
				Description: "Shallow shotgun taxonomic profiling with Shogun",
				Parameters: map[string]model.ParameterSpec{
					"input":    {Type: "artifact", Required: true},
					"Database": {Type: "choice", Default: "rep82", Choices: []string{"rep82", "wol"}},
					"Aligner tool": {
						Type: "choice", Default: "utree", Choices: []string{"utree", "burst", "bowtie2"},
					},
					"Number of threads": {Type: "integer", Default: "5"},
				},
				DefaultSets: []model.ParameterSet{
					{Name: "rep82 utree", Values: model.Parameters{
						"Database":          "rep82",
						"Aligner tool":      "utree",
						"Number of threads": "5",
					}},
					{Name: "rep82 bowtie2", Values: model.Parameters{
						"Database":          "rep82",
						"Aligner tool":      "bowtie2",
						"Number of threads": "5",
					}},
				},
			},
			{
				Name:        task.CmdKneadData,
				Description: "Sequence QC - Trimming and host filtering with KneadData",
				Parameters: map[string]model.ParameterSpec{
					"input": {Type: "artifact", Required: true},
					"reference-db": {
						Type: "choice", Default: "human_genome", Choices: []string{"human_genome"},
					},
					"bypass-trim":       {Type: "boolean", Default: "False"},
					"threads":           {Type: "integer", Default: "1"},
					"processes":         {Type: "integer", Default: "1"},
					"quality-scores":    {Type: "choice", Default: "phred33", Choices: []string{"phred33", "phred64"}},
					"run-bmtagger":      {Type: "boolean", Default: "False"},
					"run-trf":           {Type: "boolean", Default: "False"},
					"run-fastqc-start":  {Type: "boolean", Default: "True"},
					"run-fastqc-end":    {Type: "boolean", Default: "True"},
					"store-temp-output": {Type: "boolean", Default: "False"},
					"log-level":         {Type: "string", Default: "DEBUG"},
					"max-memory":        {Type: "integer", Default: "500"},
					"trimmomatic-options": {Type: "string", Default: `"ILLUMINACLIP:$trimmomatic/adapters/TruSeq3-PE-2.fa:2:30:10 ` +
						`LEADING:3 TRAILING:3 SLIDINGWINDOW:4:15 MINLEN:36"`},
					"bowtie2-options": {Type: "string", Default: `"--very-sensitive"`},
				},
				DefaultSets: []model.ParameterSet{
					{Name: "Defaults", Values: model.Parameters{
						"reference-db":      "human_genome",
						"bypass-trim":       "False",
						"threads":           "1",
						"processes":         "1",
						"quality-scores":    "phred33",
						"run-bmtagger":      "False",
						"run-trf":           "False",
						"run-fastqc-start":  "True",
						"run-fastqc-end":    "True",
						"store-temp-output": "False",
						"log-level":         "DEBUG",
						"max-memory":        "500",
						"trimmomatic-options": `"ILLUMINACLIP:$trimmomatic/adapters/TruSeq3-PE-2.fa:2:30:10 ` +
							`LEADING:3 TRAILING:3 SLIDINGWINDOW:4:15 MINLEN:36"`,
						"bowtie2-options": `"--very-sensitive"`,
					}},
				},
			},
			{
				Name:        task.CmdSortMeRNA,
				Description: "rRNA read filtering with SortMeRNA",
				Parameters: map[string]model.ParameterSpec{
					"input":             {Type: "artifact", Required: true},
					"Number of threads": {Type: "integer", Default: "4"},
				},
				DefaultSets: []model.ParameterSet{
					{Name: "Defaults", Values: model.Parameters{
						"Number of threads": "4",
					}},
				},
			},
		},
	}
}

// newAuthenticatedClient builds a Qiita client from stored credentials and
// authenticates it.
func newAuthenticatedClient(ctx context.Context, serverURL string) (*qiita.Client, error) {
	creds, err := config.LoadCredentials(cfg.ConfigFP)
	if err != nil {
		return nil, err
	}
	if serverURL == "" {
		serverURL = creds.ServerURL
	}
	if serverURL == "" {
		return nil, fmt.Errorf("no Qiita server URL configured")
	}

	opts := []qiita.Option{qiita.WithCredentials(creds.ClientID, creds.ClientSecret)}
	if cfg.ServerCert != "" {
		opts = append(opts, qiita.WithServerCert(cfg.ServerCert))
	}
	client := qiita.NewClient(serverURL, opts...)
	if err := client.Authenticate(ctx); err != nil {
		return nil, fmt.Errorf("authenticating with %s: %w", serverURL, err)
	}
	return client, nil
}
