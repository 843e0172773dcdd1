package optimizer

import (
	"time"

	"github.com/doeshing/dirctx/internal/domain"
)

// Score rates an artifact by its usage history. Artifacts without metadata are
// neutral (0). An unknown modification time contributes no stability.
func Score(weights domain.OptimizerWeights, meta domain.ArtifactMetadata, ok bool, now time.Time) float64 {
	if !ok {
		return 0
	}
	stability := 0.0
	if !meta.LastModified.IsZero() {
		stability = now.Sub(meta.LastModified).Seconds()
	}
	return weights.Frequency*float64(meta.Frequency) -
		weights.Position*meta.AveragePosition() +
		weights.Stability*stability
}
