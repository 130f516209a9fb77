package pipeline

import (
	"math"

	"github.com/callsight-team/callsight/internal/domain/entities"
)

// Aligner assigns every transcribed word to exactly one diarization turn,
// resolving overlaps by maximum intersection duration and bridging small
// diarization gaps by nearest temporal distance.
type Aligner struct {
	cfg Config
}

// NewAligner creates an aligner with the given thresholds.
func NewAligner(cfg Config) *Aligner {
	return &Aligner{cfg: cfg}
}

// Align returns one speaker id per word, index-aligned with words. Words
// with no turn within the gap-bridge threshold get SpeakerUnassigned.
// The result is deterministic for identical inputs: ties break first by the
// previous word's speaker, then by earlier turn start, then by closer
// midpoints. Malformed timing never aborts alignment.
func (a *Aligner) Align(words []entities.Word, turns []entities.DiarizationTurn) []string {
	assigned := make([]string, len(words))
	if len(turns) == 0 {
		for i := range assigned {
			assigned[i] = entities.SpeakerUnassigned
		}
		return assigned
	}

	prevSpeaker := ""
	for i, w := range words {
		best := a.bestOverlap(w, turns, prevSpeaker)
		if best < 0 {
			best = a.nearestWithinBridge(w, turns)
		}
		if best < 0 {
			assigned[i] = entities.SpeakerUnassigned
		} else {
			assigned[i] = turns[best].SpeakerID
			prevSpeaker = turns[best].SpeakerID
		}
	}
	return assigned
}

// bestOverlap returns the index of the turn with maximum intersection
// against the word, or -1 when no turn intersects it.
func (a *Aligner) bestOverlap(w entities.Word, turns []entities.DiarizationTurn, prevSpeaker string) int {
	best := -1
	bestOv := 0.0
	for j, t := range turns {
		ov := t.Overlap(w)
		if ov <= 0 {
			continue
		}
		if best < 0 || ov > bestOv+a.cfg.OverlapEpsilon {
			best, bestOv = j, ov
			continue
		}
		if ov >= bestOv-a.cfg.OverlapEpsilon && a.breaksTie(w, t, turns[best], prevSpeaker) {
			best, bestOv = j, ov
		}
	}
	return best
}

// breaksTie reports whether candidate should displace current when their
// overlaps are equal within tolerance.
func (a *Aligner) breaksTie(w entities.Word, candidate, current entities.DiarizationTurn, prevSpeaker string) bool {
	if prevSpeaker != "" && candidate.SpeakerID != current.SpeakerID {
		if candidate.SpeakerID == prevSpeaker {
			return true
		}
		if current.SpeakerID == prevSpeaker {
			return false
		}
	}
	if candidate.Start != current.Start {
		return candidate.Start < current.Start
	}
	return math.Abs(candidate.Midpoint()-w.Midpoint()) < math.Abs(current.Midpoint()-w.Midpoint())
}

// nearestWithinBridge returns the index of the turn closest in time to a
// word that intersects no turn, provided the distance stays below the
// gap-bridge threshold. Ties prefer the smaller distance, then the earlier
// turn start, then the closer midpoint.
func (a *Aligner) nearestWithinBridge(w entities.Word, turns []entities.DiarizationTurn) int {
	best := -1
	bestDist := 0.0
	for j, t := range turns {
		d := t.Distance(w)
		if d > a.cfg.GapBridge {
			continue
		}
		if best < 0 || d < bestDist {
			best, bestDist = j, d
			continue
		}
		if d == bestDist {
			if t.Start < turns[best].Start {
				best = j
			} else if t.Start == turns[best].Start &&
				math.Abs(t.Midpoint()-w.Midpoint()) < math.Abs(turns[best].Midpoint()-w.Midpoint()) {
				best = j
			}
		}
	}
	return best
}
