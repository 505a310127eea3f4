package task

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// biomTable is a Biological Observation Matrix in the 1.0.0 JSON encoding.
// Shogun profiles are converted into this form before being handed back to
// Qiita as BIOM artifacts.
type biomTable struct {
	ID                string       `json:"id"`
	Format            string       `json:"format"`
	FormatURL         string       `json:"format_url"`
	Type              string       `json:"type"`
	GeneratedBy       string       `json:"generated_by"`
	Date              string       `json:"date"`
	MatrixType        string       `json:"matrix_type"`
	MatrixElementType string       `json:"matrix_element_type"`
	Shape             [2]int       `json:"shape"`
	Rows              []biomEntry  `json:"rows"`
	Columns           []biomEntry  `json:"columns"`
	Data              [][3]float64 `json:"data"`
}

type biomEntry struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata"`
}

// ParseProfile reads a Shogun profile: a tab-separated matrix whose header
// row names the samples and whose first column holds taxon lineages.
func ParseProfile(path string) (taxa []string, sampleIDs []string, counts [][]float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening profile %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !sc.Scan() {
		return nil, nil, nil, fmt.Errorf("profile %s is empty", path)
	}
	header := strings.Split(sc.Text(), "\t")
	if len(header) < 2 {
		return nil, nil, nil, fmt.Errorf("profile %s has no sample columns", path)
	}
	sampleIDs = header[1:]

	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != len(header) {
			return nil, nil, nil, fmt.Errorf("profile %s: row %q has %d columns, want %d",
				path, fields[0], len(fields), len(header))
		}
		row := make([]float64, len(sampleIDs))
		for i, v := range fields[1:] {
			n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("profile %s: bad count %q for %s: %w", path, v, fields[0], err)
			}
			row[i] = n
		}
		taxa = append(taxa, fields[0])
		counts = append(counts, row)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("reading profile: %w", err)
	}
	return taxa, sampleIDs, counts, nil
}

// WriteBIOM converts a Shogun profile into a BIOM 1.0.0 OTU table at
// outPath. When taxonomyMetadata is set, each taxon lineage is split on ";"
// into the row's taxonomy metadata, as downstream Qiita analyses expect.
func WriteBIOM(profilePath, outPath string, taxonomyMetadata bool) error {
	taxa, sampleIDs, counts, err := ParseProfile(profilePath)
	if err != nil {
		return err
	}

	t := biomTable{
		Format:            "Biological Observation Matrix 1.0.0",
		FormatURL:         "http://biom-format.org",
		Type:              "OTU table",
		GeneratedBy:       "qp-shogun",
		Date:              time.Now().UTC().Format(time.RFC3339),
		MatrixType:        "sparse",
		MatrixElementType: "float",
		Shape:             [2]int{len(taxa), len(sampleIDs)},
	}
	for _, taxon := range taxa {
		entry := biomEntry{ID: taxon}
		if taxonomyMetadata {
			levels := strings.Split(taxon, ";")
			for i := range levels {
				levels[i] = strings.TrimSpace(levels[i])
			}
			entry.Metadata = map[string]any{"taxonomy": levels}
		}
		t.Rows = append(t.Rows, entry)
	}
	for _, id := range sampleIDs {
		t.Columns = append(t.Columns, biomEntry{ID: id})
	}
	for r, row := range counts {
		for c, v := range row {
			if v == 0 {
				continue
			}
			t.Data = append(t.Data, [3]float64{float64(r), float64(c), v})
		}
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer out.Close()
	enc := json.NewEncoder(out)
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	return nil
}
