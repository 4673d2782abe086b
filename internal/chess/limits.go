package chess

import (
	"fmt"
	"strconv"
	"time"

	"github.com/park285/chess-coach/internal/chess/uci"
)

func BuildGoCommand(p DifficultyPreset) ([]string, error) {
	if err := ValidatePreset(p); err != nil {
		return nil, err
	}

	args := []string{"go"}
	if p.DepthCap > 0 {
		args = append(args, "depth", strconv.Itoa(p.DepthCap))
	}
	if p.MoveTimeMillis > 0 {
		args = append(args, "movetime", strconv.Itoa(p.MoveTimeMillis))
	}
	if p.NodeCap > 0 {
		args = append(args, "nodes", strconv.Itoa(p.NodeCap))
	}

	if len(args) == 1 {
		return nil, fmt.Errorf("preset %s does not define search limits", p.Name)
	}

	return args, nil
}

func optionsFromPreset(p DifficultyPreset) uci.Options {
	return uci.Options{
		Threads:    p.Threads,
		SkillLevel: p.SkillLevel,
		HashMB:     p.HashMB,
		MultiPV:    p.MultiPV,
		Elo:        p.Elo,
	}
}

func limitsFromPreset(p DifficultyPreset) uci.Limits {
	return uci.Limits{
		Depth:          p.DepthCap,
		MoveTimeMillis: p.MoveTimeMillis,
		NodeCap:        p.NodeCap,
	}
}

const (
	searchBudgetBuffer   = 800 * time.Millisecond
	searchBudgetFallback = 3 * time.Second
)

// SearchBudget is the wall time one search with p is expected to need.
func SearchBudget(p DifficultyPreset) time.Duration {
	if p.MoveTimeMillis > 0 {
		return time.Duration(p.MoveTimeMillis)*time.Millisecond + searchBudgetBuffer
	}
	if p.DepthCap > 0 {
		base := time.Duration(p.DepthCap) * 200 * time.Millisecond
		if base < searchBudgetFallback {
			base = searchBudgetFallback
		}
		if base > 15*time.Second {
			base = 15 * time.Second
		}
		return base
	}
	return searchBudgetFallback
}
