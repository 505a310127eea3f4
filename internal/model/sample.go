package model

// SamplePair holds the read files belonging to one sample, matched to its
// run prefix from the prep-template mapping. Reverse is empty for
// single-end runs.
type SamplePair struct {
	RunPrefix  string
	SampleName string
	Forward    string
	Reverse    string
}

// Paired reports whether the sample has a reverse read file.
func (s SamplePair) Paired() bool {
	return s.Reverse != ""
}
