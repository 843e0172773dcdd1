package domain

import "time"

// Artifact is a retrievable chunk of a source file. The text is the artifact's
// identity: two chunks with identical text are the same logical artifact.
type Artifact struct {
	Text         string    `json:"text"`
	Filepath     string    `json:"filepath"`
	Tokens       int       `json:"tokens"`
	LastModified time.Time `json:"last_modified"`
}

// ID returns the artifact identifier used by history and prefix keys.
func (a Artifact) ID() string {
	return a.Text
}

// Candidate pairs an artifact with its semantic distance to the query.
// Lower distance means more relevant.
type Candidate struct {
	Artifact Artifact
	Distance float64
}

// Neighbor is a raw vector index hit. Ref addresses a slot in the artifact store.
type Neighbor struct {
	Ref      int
	Distance float64
}

// ArtifactMetadata is the per-artifact usage summary derived from prompt history.
// Zero value means "never seen": frequency 0, no positions, unknown modification time.
type ArtifactMetadata struct {
	Frequency    int
	Positions    []int
	LastModified time.Time
}

// AveragePosition returns the mean recorded position, or 0 when there are none.
func (m ArtifactMetadata) AveragePosition() float64 {
	if len(m.Positions) == 0 {
		return 0
	}
	sum := 0
	for _, p := range m.Positions {
		sum += p
	}
	return float64(sum) / float64(len(m.Positions))
}
