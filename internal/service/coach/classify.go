package coach

import "github.com/park285/chess-coach/internal/domain"

// Thresholds are inclusive upper bounds, in centipawns, on how much a move
// may lose before it earns the next label.
type Thresholds struct {
	Best       int
	Good       int
	Inaccuracy int
	Mistake    int
}

func DefaultThresholds() Thresholds {
	return Thresholds{Best: 10, Good: 30, Inaccuracy: 100, Mistake: 300}
}

// Valid reports whether the bounds are non-negative and ascending.
func (t Thresholds) Valid() bool {
	return t.Best >= 0 && t.Best <= t.Good && t.Good <= t.Inaccuracy && t.Inaccuracy <= t.Mistake
}

// Classify labels a move by the centipawns it gave up. Both evaluations are
// from the mover's side; mate markers count as MateScore minus distance.
// A drop on a bound gets the milder label.
func Classify(before, after domain.Evaluation, t Thresholds) domain.QualityLabel {
	if !before.Scored || !after.Scored || !t.Valid() {
		return domain.LabelUnknown
	}
	drop := before.CP - after.CP
	switch {
	case drop <= t.Best:
		return domain.LabelBest
	case drop <= t.Good:
		return domain.LabelGood
	case drop <= t.Inaccuracy:
		return domain.LabelInaccuracy
	case drop <= t.Mistake:
		return domain.LabelMistake
	default:
		return domain.LabelBlunder
	}
}

// EvalChange is the signed swing for the mover; negative means ground lost.
func EvalChange(before, after domain.Evaluation) int {
	if !before.Scored || !after.Scored {
		return 0
	}
	return after.CP - before.CP
}
