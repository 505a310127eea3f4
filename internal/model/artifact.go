package model

// ArtifactType categorizes the Qiita artifact produced by a command.
type ArtifactType string

const (
	ArtifactBIOM           ArtifactType = "BIOM"
	ArtifactPerSampleFASTQ ArtifactType = "per_sample_FASTQ"
)

// String returns the string representation of the artifact type.
func (t ArtifactType) String() string {
	return string(t)
}

// FileKind tags an artifact file with its role within the artifact.
type FileKind string

const (
	KindBiom        FileKind = "biom"
	KindForwardSeqs FileKind = "raw_forward_seqs"
	KindReverseSeqs FileKind = "raw_reverse_seqs"
	KindPlainText   FileKind = "plain_text"
)

// ArtifactFile is a single file belonging to an artifact.
type ArtifactFile struct {
	Path string   `json:"path"`
	Kind FileKind `json:"kind"`
}

// ArtifactInfo describes one output artifact of a finished job, in the shape
// the Qiita server expects when completing a job.
type ArtifactInfo struct {
	Name  string         `json:"name"`
	Type  ArtifactType   `json:"type"`
	Files []ArtifactFile `json:"files"`
}

// NewArtifactInfo builds an ArtifactInfo where every file shares one kind.
func NewArtifactInfo(name string, typ ArtifactType, kind FileKind, paths ...string) ArtifactInfo {
	files := make([]ArtifactFile, 0, len(paths))
	for _, p := range paths {
		files = append(files, ArtifactFile{Path: p, Kind: kind})
	}
	return ArtifactInfo{Name: name, Type: typ, Files: files}
}
