package task

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/qiita-spots/qp-shogun/internal/model"
)

func TestFormatFilterParams(t *testing.T) {
	r := &Runner{DBs: Databases{Filter: "/dbs/filter"}}
	params := model.Parameters{
		"Bowtie2 database to filter":   "Human",
		"Number of threads to be used": "4",
	}
	got, err := r.formatFilterParams(params)
	if err != nil {
		t.Fatalf("formatFilterParams: %v", err)
	}
	want := "-p 4 -x /dbs/filter/Human/phix"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatFilterParams_DefaultDropped(t *testing.T) {
	r := &Runner{DBs: Databases{Filter: "/dbs/filter"}}
	got, err := r.formatFilterParams(model.Parameters{
		"Bowtie2 database to filter":   "Human",
		"Number of threads to be used": "default",
	})
	if err != nil {
		t.Fatalf("formatFilterParams: %v", err)
	}
	if got != "-x /dbs/filter/Human/phix" {
		t.Errorf("got %q", got)
	}
}

func TestFormatFilterParams_UnknownDB(t *testing.T) {
	r := &Runner{DBs: Databases{Filter: "/dbs/filter"}}
	_, err := r.formatFilterParams(model.Parameters{"Bowtie2 database to filter": "Mouse"})
	if err == nil || !strings.Contains(err.Error(), "unknown filter database") {
		t.Fatalf("err = %v", err)
	}
}

func TestFormatFilterParams_NoDBDir(t *testing.T) {
	r := &Runner{}
	_, err := r.formatFilterParams(model.Parameters{"Bowtie2 database to filter": "Human"})
	if err == nil || !strings.Contains(err.Error(), "QC_FILTER_DB_DP") {
		t.Fatalf("err = %v", err)
	}
}

func TestGenerateFilterCommands(t *testing.T) {
	r := &Runner{DBs: Databases{Filter: "/dbs/filter"}}
	samples := []model.SamplePair{
		{RunPrefix: "s1", SampleName: "1.S1", Forward: "/in/s1_R1.fastq.gz", Reverse: "/in/s1_R2.fastq.gz"},
	}
	params := model.Parameters{
		"Bowtie2 database to filter":   "Human",
		"Number of threads to be used": "2",
	}
	cmds, err := r.generateFilterCommands(samples, "/out", "/tmp/work", params)
	if err != nil {
		t.Fatalf("generateFilterCommands: %v", err)
	}
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds))
	}
	want := "bowtie2 -p 2 -x /dbs/filter/Human/phix --very-sensitive " +
		"-1 /in/s1_R1.fastq.gz -2 /in/s1_R2.fastq.gz | " +
		"samtools view -f 12 -F 256 -b -o /tmp/work/1.S1.unsorted.bam; " +
		"samtools sort -T /tmp/work/1.S1 -@ 2 -n -o /tmp/work/1.S1.bam /tmp/work/1.S1.unsorted.bam; " +
		"bedtools bamtofastq -i /tmp/work/1.S1.bam -fq /tmp/work/1.S1.R1.trimmed.filtered.fastq " +
		"-fq2 /tmp/work/1.S1.R2.trimmed.filtered.fastq; " +
		"pigz -p 2 -c /tmp/work/1.S1.R1.trimmed.filtered.fastq > /out/1.S1.R1.trimmed.filtered.fastq.gz; " +
		"pigz -p 2 -c /tmp/work/1.S1.R2.trimmed.filtered.fastq > /out/1.S1.R2.trimmed.filtered.fastq.gz"
	if cmds[0] != want {
		t.Errorf("command mismatch:\ngot:  %s\nwant: %s", cmds[0], want)
	}
}

func TestFormatTrimParams(t *testing.T) {
	params := model.Parameters{
		"Fwd read adapter":            "GATCGGAAGAGCACACGTCTGAACTCCAGTCAC",
		"Rev read adapter":            "GATCGGAAGAGCGTCGTGTAGGGAAAGGAGTGT",
		"Trim low-quality bases":      "15",
		"Minimum trimmed read length": "80",
		"Trim Ns on ends of reads":    "True",
		"NextSeq-specific quality trimming": "False",
		"Number of threads used":            "default",
	}
	got := formatTrimParams(params)
	want := "-A GATCGGAAGAGCGTCGTGTAGGGAAAGGAGTGT " +
		"--adapter GATCGGAAGAGCACACGTCTGAACTCCAGTCAC " +
		"--minimum-length 80 --quality-cutoff 15 --trim-n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestGenerateTrimCommands(t *testing.T) {
	samples := []model.SamplePair{
		{SampleName: "1.S1", Forward: "/in/s1_R1.fastq.gz", Reverse: "/in/s1_R2.fastq.gz"},
		{SampleName: "1.S2", Forward: "/in/s2_R1.fastq.gz"},
	}
	params := model.Parameters{"Trim low-quality bases": "15"}
	cmds := generateTrimCommands(samples, "/out", params)
	if len(cmds) != 2 {
		t.Fatalf("got %d commands, want 2", len(cmds))
	}
	wantPaired := "atropos trim --quality-cutoff 15 -o /out/1.S1.R1.fastq.gz " +
		"-p /out/1.S1.R2.fastq.gz -pe1 /in/s1_R1.fastq.gz -pe2 /in/s1_R2.fastq.gz"
	if cmds[0] != wantPaired {
		t.Errorf("paired command:\ngot:  %s\nwant: %s", cmds[0], wantPaired)
	}
	wantSingle := "atropos trim --quality-cutoff 15 -o /out/1.S2.R1.fastq.gz -se /in/s2_R1.fastq.gz"
	if cmds[1] != wantSingle {
		t.Errorf("single command:\ngot:  %s\nwant: %s", cmds[1], wantSingle)
	}
}

func TestShogunConfigFromParams(t *testing.T) {
	r := &Runner{DBs: Databases{Shogun: "/dbs/shogun"}}
	cfg, err := r.shogunConfigFromParams(model.Parameters{
		"Database":          "rep82",
		"Aligner tool":      "utree",
		"Number of threads": "4",
	})
	if err != nil {
		t.Fatalf("shogunConfigFromParams: %v", err)
	}
	if cfg.database != filepath.Join("/dbs/shogun", "rep82") {
		t.Errorf("database = %q", cfg.database)
	}
	if cfg.aligner != "utree" || cfg.threads != "4" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestShogunConfigFromParams_UnknownAligner(t *testing.T) {
	r := &Runner{}
	_, err := r.shogunConfigFromParams(model.Parameters{
		"Database":          "rep82",
		"Aligner tool":      "blast",
		"Number of threads": "1",
	})
	if err == nil || !strings.Contains(err.Error(), "unknown aligner") {
		t.Fatalf("err = %v", err)
	}
}

func TestShogunConfigFromParams_MissingParam(t *testing.T) {
	r := &Runner{}
	_, err := r.shogunConfigFromParams(model.Parameters{"Database": "rep82"})
	if err == nil {
		t.Fatal("missing parameters should error")
	}
}

func TestGenerateShogunCommands(t *testing.T) {
	cfg := shogunConfig{database: "/dbs/shogun/rep82", aligner: "bowtie2", threads: "2"}

	align := generateShogunAlignCommand("/work/combined.fna", "/work", cfg)
	wantAlign := "shogun align --aligner bowtie2 --threads 2 " +
		"--database /dbs/shogun/rep82 --input /work/combined.fna --output /work"
	if align != wantAlign {
		t.Errorf("align:\ngot:  %s\nwant: %s", align, wantAlign)
	}

	assign, profileFP := generateShogunAssignTaxonomyCommand("/work", cfg)
	wantAssign := "shogun assign-taxonomy --aligner bowtie2 --database /dbs/shogun/rep82 " +
		"--input /work/alignment.bowtie2.sam --output /work/profile.tsv"
	if assign != wantAssign {
		t.Errorf("assign:\ngot:  %s\nwant: %s", assign, wantAssign)
	}
	if profileFP != "/work/profile.tsv" {
		t.Errorf("profileFP = %q", profileFP)
	}

	redist, redistFP := generateShogunRedistCommand(profileFP, "/work", cfg, "genus")
	wantRedist := "shogun redistribute --database /dbs/shogun/rep82 --level genus " +
		"--input /work/profile.tsv --output /work/profile.redist.genus.tsv"
	if redist != wantRedist {
		t.Errorf("redist:\ngot:  %s\nwant: %s", redist, wantRedist)
	}
	if redistFP != "/work/profile.redist.genus.tsv" {
		t.Errorf("redistFP = %q", redistFP)
	}
}

func TestAlignerExtensions(t *testing.T) {
	for aligner, ext := range map[string]string{"utree": "tsv", "burst": "b6", "bowtie2": "sam"} {
		cfg := shogunConfig{database: "db", aligner: aligner}
		_, profileFP := generateShogunAssignTaxonomyCommand("/w", cfg)
		if profileFP != "/w/profile.tsv" {
			t.Errorf("%s: profileFP = %q", aligner, profileFP)
		}
		if alignerExtensions[aligner] != ext {
			t.Errorf("%s: extension = %q, want %q", aligner, alignerExtensions[aligner], ext)
		}
	}
}

func TestSortmernaRefString(t *testing.T) {
	got := sortmernaRefString("/dbs/rna")
	if !strings.HasPrefix(got, "/dbs/rna/silva-bac-16s-id90.fasta,/dbs/rna/silva-bac-16s-id90.idx:") {
		t.Errorf("ref string prefix = %q", got)
	}
	if strings.Count(got, ":") != len(sortmernaRefs)-1 {
		t.Errorf("ref string has %d separators, want %d", strings.Count(got, ":"), len(sortmernaRefs)-1)
	}
	if !strings.Contains(got, "/dbs/rna/rfam-5.8s-database-id98.fasta,/dbs/rna/rfam-5.8s-database-id98.idx") {
		t.Errorf("ref string missing rfam entry: %q", got)
	}
}

func TestGenerateSortMeRNACommands_Paired(t *testing.T) {
	r := &Runner{DBs: Databases{SortMeRNA: "/dbs/rna"}}
	samples := []model.SamplePair{
		{SampleName: "1.S1", Forward: "/in/s1_R1.fastq.gz", Reverse: "/in/s1_R2.fastq.gz"},
	}
	cmds, err := r.generateSortMeRNACommands(samples, "/out", "/work", model.Parameters{"Number of threads": "2"})
	if err != nil {
		t.Fatalf("generateSortMeRNACommands: %v", err)
	}
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds))
	}
	for _, frag := range []string{
		"unpigz -p 2 -c /in/s1_R1.fastq.gz > /work/1.S1.R1.fastq",
		"merge-paired-reads.sh /work/1.S1.R1.fastq /work/1.S1.R2.fastq /work/1.S1.merged.fastq",
		"sortmerna --ref ", " --reads /work/1.S1.merged.fastq --aligned /work/1.S1.ribosomal " +
			"--other /work/1.S1.nonribosomal --paired_in --fastx -a 2",
		"unmerge-paired-reads.sh /work/1.S1.nonribosomal.fastq /work/1.S1.nonribosomal.R1.fastq /work/1.S1.nonribosomal.R2.fastq",
		"pigz -p 2 -c /work/1.S1.nonribosomal.R1.fastq > /out/1.S1.nonribosomal.R1.fastq.gz",
		"pigz -p 2 -c /work/1.S1.ribosomal.R2.fastq > /out/1.S1.ribosomal.R2.fastq.gz",
	} {
		if !strings.Contains(cmds[0], frag) {
			t.Errorf("command missing %q:\n%s", frag, cmds[0])
		}
	}
}

func TestGenerateSortMeRNACommands_SingleEnd(t *testing.T) {
	r := &Runner{DBs: Databases{SortMeRNA: "/dbs/rna"}}
	samples := []model.SamplePair{{SampleName: "1.S1", Forward: "/in/s1_R1.fastq.gz"}}
	cmds, err := r.generateSortMeRNACommands(samples, "/out", "/work", model.Parameters{})
	if err != nil {
		t.Fatalf("generateSortMeRNACommands: %v", err)
	}
	if strings.Contains(cmds[0], "merge-paired-reads.sh") {
		t.Errorf("single-end command should not merge reads:\n%s", cmds[0])
	}
	if !strings.Contains(cmds[0], "--reads /work/1.S1.fastq") {
		t.Errorf("command = %s", cmds[0])
	}
}

func TestGenerateSortMeRNACommands_NoDBDir(t *testing.T) {
	r := &Runner{}
	_, err := r.generateSortMeRNACommands(nil, "/out", "/work", model.Parameters{})
	if err == nil || !strings.Contains(err.Error(), "QC_SORTMERNA_DB_DP") {
		t.Fatalf("err = %v", err)
	}
}
