package agents

import "github.com/crisis-labs/crisisflow/core"

// DefaultConsensusThreshold is the acceptance bar for the averaged vote.
const DefaultConsensusThreshold = 0.75

// ConsensusScore averages the supplied votes and accepts when the mean
// reaches the threshold. An empty vote list scores zero and is rejected.
func ConsensusScore(votes []float64, threshold float64) core.ConsensusResult {
	if len(votes) == 0 {
		return core.ConsensusResult{Score: 0, Accepted: false}
	}
	sum := 0.0
	for _, v := range votes {
		sum += v
	}
	score := sum / float64(len(votes))
	return core.ConsensusResult{Score: score, Accepted: score >= threshold}
}
