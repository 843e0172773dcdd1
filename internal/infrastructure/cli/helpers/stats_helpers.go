package helpers

import (
	"regexp"
	"sort"

	"github.com/doeshing/dirctx/internal/domain"
)

// ArtifactStatistic represents usage statistics for one artifact.
type ArtifactStatistic struct {
	ID              string
	Count           int
	AveragePosition float64
}

// CalculateTopArtifacts returns the most frequently emitted artifacts.
// If limit is 0 or negative, returns all artifacts
func CalculateTopArtifacts(metadata map[string]domain.ArtifactMetadata, limit int) []ArtifactStatistic {
	stats := make([]ArtifactStatistic, 0, len(metadata))
	for id, meta := range metadata {
		stats = append(stats, ArtifactStatistic{
			ID:              id,
			Count:           meta.Frequency,
			AveragePosition: meta.AveragePosition(),
		})
	}
	sortStatisticsByFrequency(stats)

	if shouldLimitResults(limit, len(stats)) {
		return stats[:limit]
	}
	return stats
}

// sortStatisticsByFrequency sorts statistics by count (descending) then by id (ascending)
func sortStatisticsByFrequency(stats []ArtifactStatistic) {
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count == stats[j].Count {
			return stats[i].ID < stats[j].ID
		}
		return stats[i].Count > stats[j].Count
	})
}

// shouldLimitResults checks if we should limit the results based on the limit and actual length
func shouldLimitResults(limit int, actualLength int) bool {
	return limit > 0 && actualLength > limit
}

var chunkHeader = regexp.MustCompile(`User file '([^']*)' lines (\d+)-(\d+):`)

// ArtifactLabel names an artifact by its source file and line range when it
// carries a chunk header, and by a preview of its text otherwise.
func ArtifactLabel(id string) string {
	if m := chunkHeader.FindStringSubmatch(id); m != nil {
		return m[1] + ":" + m[2] + "-" + m[3]
	}
	return Preview(id, 60)
}

// PrefixLabels labels every artifact of a prefix key.
func PrefixLabels(key domain.PrefixKey) []string {
	ids := key.Artifacts()
	labels := make([]string, len(ids))
	for i, id := range ids {
		labels[i] = ArtifactLabel(id)
	}
	return labels
}
