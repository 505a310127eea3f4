package task

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qiita-spots/qp-shogun/internal/model"
)

func writeGzip(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	if _, err := gz.Write([]byte(content)); err != nil {
		t.Fatalf("writing gzip: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip: %v", err)
	}
}

func TestReadSeqs_FastqGz(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reads.fastq.gz")
	writeGzip(t, path, "@r1\nACGT\n+\nIIII\n@r2\nGGCC\n+\nIIII\n")

	var seqs []string
	err := readSeqs(path, func(s string) error {
		seqs = append(seqs, s)
		return nil
	})
	if err != nil {
		t.Fatalf("readSeqs: %v", err)
	}
	if len(seqs) != 2 || seqs[0] != "ACGT" || seqs[1] != "GGCC" {
		t.Errorf("seqs = %v", seqs)
	}
}

func TestReadSeqs_FastaMultiline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seqs.fna")
	if err := os.WriteFile(path, []byte(">a\nACGT\nACGT\n>b\nTTTT\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var seqs []string
	err := readSeqs(path, func(s string) error {
		seqs = append(seqs, s)
		return nil
	})
	if err != nil {
		t.Fatalf("readSeqs: %v", err)
	}
	if len(seqs) != 2 || seqs[0] != "ACGTACGT" || seqs[1] != "TTTT" {
		t.Errorf("seqs = %v", seqs)
	}
}

func TestCombineFNA(t *testing.T) {
	dir := t.TempDir()
	fwd := filepath.Join(dir, "s1_R1.fastq.gz")
	rev := filepath.Join(dir, "s1_R2.fastq.gz")
	writeGzip(t, fwd, "@r1\nACGT\n+\nIIII\n")
	writeGzip(t, rev, "@r1\nTGCA\n+\nIIII\n")

	samples := []model.SamplePair{
		{RunPrefix: "s1", SampleName: "1.S1", Forward: fwd, Reverse: rev},
	}
	out, err := CombineFNA(samples, dir)
	if err != nil {
		t.Fatalf("CombineFNA: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	want := ">1.S1_0\nACGT\n>1.S1_1\nTGCA\n"
	if string(data) != want {
		t.Errorf("combined = %q, want %q", data, want)
	}
}

func TestCombineFNA_CountsAcrossSamples(t *testing.T) {
	dir := t.TempDir()
	f1 := filepath.Join(dir, "s1_R1.fastq.gz")
	f2 := filepath.Join(dir, "s2_R1.fastq.gz")
	writeGzip(t, f1, "@a\nAAAA\n+\nIIII\n@b\nCCCC\n+\nIIII\n")
	writeGzip(t, f2, "@c\nGGGG\n+\nIIII\n")

	samples := []model.SamplePair{
		{SampleName: "1.S1", Forward: f1},
		{SampleName: "1.S2", Forward: f2},
	}
	out, err := CombineFNA(samples, dir)
	if err != nil {
		t.Fatalf("CombineFNA: %v", err)
	}
	data, _ := os.ReadFile(out)
	// The record counter runs across samples, not per sample.
	for _, want := range []string{">1.S1_0", ">1.S1_1", ">1.S2_2"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("combined output missing %q:\n%s", want, data)
		}
	}
}
