package chess

import (
	"errors"
	"math/rand"

	"github.com/park285/chess-coach/internal/chess/uci"
)

// SelectCandidate picks the reply among the preset's primary choices using
// its weights. Full-strength presets always return the first line.
func SelectCandidate(p DifficultyPreset, candidates []uci.Candidate, r *rand.Rand) (uci.Candidate, error) {
	if len(candidates) == 0 {
		return uci.Candidate{}, errors.New("no candidates to choose from")
	}
	if err := ValidatePreset(p); err != nil {
		return uci.Candidate{}, err
	}

	primaryLimit := p.PrimaryChoices
	if primaryLimit > len(candidates) {
		primaryLimit = len(candidates)
	}
	if primaryLimit == 1 || r == nil {
		return candidates[0], nil
	}

	// never pick a line that walks into mate when the top line does not
	best := candidates[0].Score
	totalWeight := 0.0
	for i := 0; i < primaryLimit; i++ {
		if candidates[i].Score.Mate && candidates[i].Score.MateIn <= 0 && !(best.Mate && best.MateIn <= 0) {
			primaryLimit = i
			break
		}
		totalWeight += p.CandidateWeights[i]
	}
	if primaryLimit <= 1 || totalWeight == 0 {
		return candidates[0], nil
	}

	threshold := r.Float64() * totalWeight
	index := 0
	for i := 0; i < primaryLimit; i++ {
		threshold -= p.CandidateWeights[i]
		if threshold <= 0 {
			index = i
			break
		}
	}

	return candidates[index], nil
}
