package chess

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DifficultyPreset describes one engine configuration. The analysis preset
// grades the player's moves; the reply preset chooses the engine's answer.
type DifficultyPreset struct {
	Name             string
	SkillLevel       int
	Elo              int
	Threads          int
	HashMB           int
	MoveTimeMillis   int
	NodeCap          int
	DepthCap         int
	MultiPV          int
	PrimaryChoices   int
	CandidateWeights []float64
}

const (
	AnalysisPreset = "analysis"
	FullPreset     = "full"

	defaultThreads = 2
)

var presetMu sync.RWMutex

var DefaultPresets = map[string]DifficultyPreset{
	AnalysisPreset: {
		Name:             AnalysisPreset,
		SkillLevel:       20,
		Threads:          defaultThreads,
		HashMB:           64,
		MoveTimeMillis:   100,
		MultiPV:          1,
		PrimaryChoices:   1,
		CandidateWeights: []float64{1.0},
	},
	FullPreset: {
		Name:             FullPreset,
		SkillLevel:       20,
		Threads:          defaultThreads,
		HashMB:           64,
		MoveTimeMillis:   500,
		MultiPV:          1,
		PrimaryChoices:   1,
		CandidateWeights: []float64{1.0},
	},
	"level1": {
		Name:             "level1",
		SkillLevel:       0,
		Elo:              1320,
		Threads:          1,
		HashMB:           16,
		MoveTimeMillis:   50,
		DepthCap:         5,
		MultiPV:          5,
		PrimaryChoices:   3,
		CandidateWeights: []float64{0.5, 0.3, 0.2},
	},
	"level2": {
		Name:             "level2",
		SkillLevel:       1,
		Elo:              1400,
		Threads:          1,
		HashMB:           16,
		MoveTimeMillis:   80,
		DepthCap:         6,
		MultiPV:          5,
		PrimaryChoices:   3,
		CandidateWeights: []float64{0.6, 0.3, 0.1},
	},
	"level3": {
		Name:             "level3",
		SkillLevel:       3,
		Elo:              1500,
		Threads:          1,
		HashMB:           24,
		MoveTimeMillis:   120,
		DepthCap:         8,
		MultiPV:          4,
		PrimaryChoices:   3,
		CandidateWeights: []float64{0.7, 0.2, 0.1},
	},
	"level4": {
		Name:             "level4",
		SkillLevel:       5,
		Elo:              1650,
		Threads:          defaultThreads,
		HashMB:           32,
		MoveTimeMillis:   160,
		DepthCap:         10,
		MultiPV:          3,
		PrimaryChoices:   3,
		CandidateWeights: []float64{0.65, 0.25, 0.1},
	},
	"level5": {
		Name:             "level5",
		SkillLevel:       8,
		Elo:              1800,
		Threads:          defaultThreads,
		HashMB:           48,
		MoveTimeMillis:   220,
		DepthCap:         12,
		MultiPV:          3,
		PrimaryChoices:   2,
		CandidateWeights: []float64{0.8, 0.2},
	},
	"level6": {
		Name:             "level6",
		SkillLevel:       11,
		Elo:              2000,
		Threads:          defaultThreads,
		HashMB:           64,
		MoveTimeMillis:   300,
		DepthCap:         16,
		MultiPV:          2,
		PrimaryChoices:   2,
		CandidateWeights: []float64{0.85, 0.15},
	},
	"level7": {
		Name:             "level7",
		SkillLevel:       16,
		Elo:              2300,
		Threads:          defaultThreads,
		HashMB:           96,
		MoveTimeMillis:   400,
		DepthCap:         20,
		MultiPV:          2,
		PrimaryChoices:   2,
		CandidateWeights: []float64{0.92, 0.08},
	},
	"level8": {
		Name:             "level8",
		SkillLevel:       20,
		Threads:          defaultThreads,
		HashMB:           128,
		MoveTimeMillis:   500,
		DepthCap:         30,
		MultiPV:          1,
		PrimaryChoices:   1,
		CandidateWeights: []float64{1.0},
	},
}

func normalizePresetName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "":
		return FullPreset
	case "beginner":
		return "level1"
	case "intermediate":
		return "level4"
	case "advanced":
		return "level6"
	case "master":
		return "level8"
	}
	return name
}

func GetPreset(name string) (DifficultyPreset, error) {
	name = normalizePresetName(name)
	presetMu.RLock()
	p, ok := DefaultPresets[name]
	presetMu.RUnlock()
	if !ok {
		return DifficultyPreset{}, fmt.Errorf("unknown chess preset: %s", name)
	}
	p.CandidateWeights = append([]float64(nil), p.CandidateWeights...)
	return p, nil
}

func PresetNames() []string {
	presetMu.RLock()
	names := make([]string, 0, len(DefaultPresets))
	for name := range DefaultPresets {
		names = append(names, name)
	}
	presetMu.RUnlock()
	sort.Strings(names)
	return names
}

// SetPresetMoveTime overrides the search time of a registered preset.
func SetPresetMoveTime(name string, millis int) error {
	if millis <= 0 {
		return fmt.Errorf("move time must be > 0: %d", millis)
	}
	name = normalizePresetName(name)
	presetMu.Lock()
	defer presetMu.Unlock()

	preset, ok := DefaultPresets[name]
	if !ok {
		return fmt.Errorf("unknown chess preset: %s", name)
	}
	preset.MoveTimeMillis = millis
	DefaultPresets[name] = preset
	return nil
}

func ValidatePreset(p DifficultyPreset) error {
	switch {
	case p.SkillLevel < 0 || p.SkillLevel > 20:
		return fmt.Errorf("skill level %d out of range 0-20", p.SkillLevel)
	case p.Elo < 0:
		return fmt.Errorf("elo must be >= 0: %d", p.Elo)
	case p.Threads <= 0:
		return fmt.Errorf("threads must be > 0: %d", p.Threads)
	case p.HashMB <= 0:
		return fmt.Errorf("hash size must be > 0: %d", p.HashMB)
	case p.MultiPV <= 0:
		return fmt.Errorf("multipv must be > 0: %d", p.MultiPV)
	case p.PrimaryChoices <= 0:
		return fmt.Errorf("primary choices must be > 0: %d", p.PrimaryChoices)
	case p.PrimaryChoices > p.MultiPV:
		return fmt.Errorf("primary choices (%d) must not exceed multipv (%d)", p.PrimaryChoices, p.MultiPV)
	case len(p.CandidateWeights) < p.PrimaryChoices:
		return fmt.Errorf("candidate weights (%d) must cover primary choices (%d)", len(p.CandidateWeights), p.PrimaryChoices)
	}

	sum := 0.0
	for i := 0; i < p.PrimaryChoices; i++ {
		w := p.CandidateWeights[i]
		if w < 0 {
			return fmt.Errorf("candidate weight at index %d is negative: %f", i, w)
		}
		sum += w
	}
	if sum == 0 {
		return fmt.Errorf("candidate weights sum to zero")
	}
	if p.MoveTimeMillis < 0 {
		return fmt.Errorf("move time must be >= 0: %d", p.MoveTimeMillis)
	}
	if p.NodeCap < 0 {
		return fmt.Errorf("node cap must be >= 0: %d", p.NodeCap)
	}
	if p.DepthCap < 0 {
		return fmt.Errorf("depth cap must be >= 0: %d", p.DepthCap)
	}
	return nil
}
