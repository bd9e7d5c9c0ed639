package pipeline

import "strings"

// Stage identifies one step of the production pipeline.
type Stage string

const (
	StageDesign        Stage = "design"
	StageCutting       Stage = "cutting"
	StageBending       Stage = "bending"
	StagePunching      Stage = "punching"
	StageFabrication   Stage = "fabrication"
	StagePowderCoating Stage = "powder_coating"
	StageAssembly      Stage = "assembly"
	StageDispatch      Stage = "dispatch"
)

// StageCompleted is the terminal marker returned by Next when the walk
// exhausts the sequence. It is a pseudo-stage, never a member of the order.
const StageCompleted Stage = "completed"

var sequence = []Stage{
	StageDesign,
	StageCutting,
	StageBending,
	StagePunching,
	StageFabrication,
	StagePowderCoating,
	StageAssembly,
	StageDispatch,
}

var stageIndex = func() map[Stage]int {
	idx := make(map[Stage]int, len(sequence))
	for i, stage := range sequence {
		idx[stage] = i
	}
	return idx
}()

// First and last stages cannot be skipped: every order needs a design and a
// dispatch. Everything in between is skip-eligible.
var skipEligible = map[Stage]struct{}{
	StageCutting:       {},
	StageBending:       {},
	StagePunching:      {},
	StageFabrication:   {},
	StagePowderCoating: {},
	StageAssembly:      {},
}

// Sequence returns the ordered list of production stages.
func Sequence() []Stage {
	cp := make([]Stage, len(sequence))
	copy(cp, sequence)
	return cp
}

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	if normalized == StageCompleted {
		return StageCompleted, true
	}
	_, ok := stageIndex[normalized]
	return normalized, ok
}

// Index returns the position of a stage in the sequence, or -1 when the
// value is unknown or the terminal marker.
func Index(stage Stage) int {
	idx, ok := stageIndex[stage]
	if !ok {
		return -1
	}
	return idx
}

// Before reports whether a precedes b in sequence order. The terminal marker
// sorts after every ordered stage.
func Before(a, b Stage) bool {
	ai, aok := stageIndex[a]
	bi, bok := stageIndex[b]
	switch {
	case aok && bok:
		return ai < bi
	case aok && b == StageCompleted:
		return true
	default:
		return false
	}
}

// CanSkip reports whether a stage may be bypassed for a job.
func CanSkip(stage Stage) bool {
	_, ok := skipEligible[stage]
	return ok
}

// Next walks the sequence starting immediately after current and returns the
// first stage not present in skipped, or StageCompleted when none remain.
// Unknown current values resolve to StageCompleted; Next is total.
func Next(current Stage, skipped []Stage) Stage {
	idx, ok := stageIndex[current]
	if !ok {
		return StageCompleted
	}
	skip := make(map[Stage]struct{}, len(skipped))
	for _, stage := range skipped {
		skip[stage] = struct{}{}
	}
	for _, stage := range sequence[idx+1:] {
		if _, skipped := skip[stage]; skipped {
			continue
		}
		return stage
	}
	return StageCompleted
}

// MostAdvanced returns the furthest stage in sequence order among the given
// stages. Unknown values are ignored; an empty or all-unknown input returns
// the empty stage.
func MostAdvanced(stages []Stage) Stage {
	best := Stage("")
	bestIdx := -1
	for _, stage := range stages {
		if idx, ok := stageIndex[stage]; ok && idx > bestIdx {
			best = stage
			bestIdx = idx
		}
	}
	return best
}
