package task

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/qiita-spots/qp-shogun/internal/model"
)

// SampleNamesByRunPrefix parses a QIIME mapping file and returns the sample
// name keyed by run prefix. The mapping file is tab-separated with a header
// row; the first column is the sample name and a "run_prefix" column is
// required. Duplicate run prefixes are an error.
func SampleNamesByRunPrefix(mapFile string) (map[string]string, error) {
	f, err := os.Open(mapFile)
	if err != nil {
		return nil, fmt.Errorf("opening mapping file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !sc.Scan() {
		return nil, fmt.Errorf("mapping file %s is empty", mapFile)
	}
	header := strings.Split(strings.TrimPrefix(sc.Text(), "#"), "\t")
	prefixCol := -1
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), "run_prefix") {
			prefixCol = i
			break
		}
	}
	if prefixCol < 0 {
		return nil, fmt.Errorf("mapping file %s has no run_prefix column", mapFile)
	}

	out := map[string]string{}
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) <= prefixCol {
			return nil, fmt.Errorf("mapping file %s: row %q is missing the run_prefix column", mapFile, line)
		}
		sample := strings.TrimSpace(fields[0])
		prefix := strings.TrimSpace(fields[prefixCol])
		if _, dup := out[prefix]; dup {
			return nil, fmt.Errorf("mapping file %s: run prefix %q is assigned to multiple samples", mapFile, prefix)
		}
		out[prefix] = sample
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading mapping file: %w", err)
	}
	return out, nil
}

// MatchReadPairs recovers per-sample read pairing. Forward read filenames
// are matched against the run prefixes from the mapping file; each prefix
// must match exactly one forward read, and a present reverse read must share
// its pair's prefix. When reverseSeqs is non-empty it must be the same
// length as forwardSeqs.
func MatchReadPairs(forwardSeqs, reverseSeqs []string, mapFile string) ([]model.SamplePair, error) {
	forward := append([]string(nil), forwardSeqs...)
	sort.Strings(forward)

	reverse := append([]string(nil), reverseSeqs...)
	if len(reverse) > 0 {
		if len(forward) != len(reverse) {
			return nil, fmt.Errorf(
				"your reverse and forward files are of different length. Forward: %s. Reverse: %s",
				strings.Join(forward, ", "), strings.Join(reverse, ", "))
		}
		sort.Strings(reverse)
	}

	samplesByPrefix, err := SampleNamesByRunPrefix(mapFile)
	if err != nil {
		return nil, err
	}

	var samples []model.SamplePair
	used := map[string]bool{}
	for i, fwd := range forward {
		fwdName := filepath.Base(fwd)

		runPrefix := ""
		for rp := range samplesByPrefix {
			if !strings.HasPrefix(fwdName, rp) {
				continue
			}
			if runPrefix != "" {
				return nil, fmt.Errorf("multiple run prefixes match this fwd read: %s", fwdName)
			}
			runPrefix = rp
		}
		if runPrefix == "" {
			return nil, fmt.Errorf("no run prefix matching this fwd read: %s", fwdName)
		}
		if used[runPrefix] {
			return nil, fmt.Errorf("this run prefix matches multiple fwd reads: %s", runPrefix)
		}
		used[runPrefix] = true

		pair := model.SamplePair{
			RunPrefix:  runPrefix,
			SampleName: samplesByPrefix[runPrefix],
			Forward:    fwd,
		}
		if len(reverse) > 0 {
			revName := filepath.Base(reverse[i])
			if !strings.HasPrefix(revName, runPrefix) {
				return nil, fmt.Errorf(
					"reverse read does not match this run prefix. Run prefix: %s\nForward read: %s\nReverse read: %s",
					runPrefix, fwdName, revName)
			}
			pair.Reverse = reverse[i]
		}
		samples = append(samples, pair)
	}

	return samples, nil
}
