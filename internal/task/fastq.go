package task

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/qiita-spots/qp-shogun/internal/model"
)

// readSeqs streams the sequences of a FASTA or FASTQ file (gzipped or not),
// calling fn for each record's sequence. Record type is detected from the
// first header byte ('>' FASTA, '@' FASTQ).
func readSeqs(path string, fn func(seq string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("gunzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var (
		mode    byte // '>' or '@'
		seq     strings.Builder
		pending bool
	)
	flush := func() error {
		if !pending {
			return nil
		}
		pending = false
		s := seq.String()
		seq.Reset()
		return fn(s)
	}

	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		switch {
		case mode == 0 && (line[0] == '>' || line[0] == '@'):
			mode = line[0]
			pending = true
		case mode == '>' && line[0] == '>':
			if err := flush(); err != nil {
				return err
			}
			pending = true
		case mode == '>':
			seq.WriteString(line)
		case mode == '@':
			// FASTQ records are strictly 4 lines; read seq, skip +, skip qual.
			seq.WriteString(line)
			if err := flush(); err != nil {
				return err
			}
			sc.Scan() // separator
			sc.Scan() // quality
			if sc.Scan() {
				if len(sc.Text()) == 0 || sc.Text()[0] != '@' {
					return fmt.Errorf("%s: malformed FASTQ record near %q", path, sc.Text())
				}
				pending = true
			}
		default:
			return fmt.Errorf("%s: unrecognized sequence format", path)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return flush()
}

// CombineFNA merges the forward and reverse reads of every sample into a
// single FASTA file for Shogun, renaming records to "{sample}_{n}". Returns
// the path of the combined file.
func CombineFNA(samples []model.SamplePair, dir string) (string, error) {
	outPath := filepath.Join(dir, "combined.fna")
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	count := 0
	for _, s := range samples {
		inputs := []string{s.Forward}
		if s.Paired() {
			inputs = append(inputs, s.Reverse)
		}
		for _, in := range inputs {
			err := readSeqs(in, func(seq string) error {
				if _, err := fmt.Fprintf(w, ">%s_%d\n%s\n", s.SampleName, count, seq); err != nil {
					return err
				}
				count++
				return nil
			})
			if err != nil {
				return "", err
			}
		}
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("writing %s: %w", outPath, err)
	}
	return outPath, nil
}
