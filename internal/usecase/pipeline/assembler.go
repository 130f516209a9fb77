package pipeline

import (
	"math"
	"sort"

	"github.com/callsight-team/callsight/internal/domain/entities"
)

// Assembler converts the per-word speaker assignment into coherent
// utterances. Every input word lands in exactly one utterance; the output
// is sorted by start time with ties kept in original word order.
type Assembler struct {
	cfg Config
}

// NewAssembler creates an assembler with the given thresholds.
func NewAssembler(cfg Config) *Assembler {
	return &Assembler{cfg: cfg}
}

// Assemble groups words into utterances. A new utterance starts on a
// speaker change or when the silence between two same-speaker words exceeds
// the pause threshold. UNASSIGNED words within the merge window of a
// neighbouring word are folded into that neighbour's utterance; the rest
// come out as their own zero-confidence UNASSIGNED utterances.
func (a *Assembler) Assemble(words []entities.Word, speakers []string) []entities.AlignedUtterance {
	if len(words) == 0 {
		return nil
	}

	order := make([]int, len(words))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return words[order[i]].Start < words[order[j]].Start
	})

	resolved := a.bridgeUnassigned(words, speakers, order)

	var utterances []entities.AlignedUtterance
	var run []entities.Word
	runSpeaker := ""
	flush := func() {
		if len(run) > 0 {
			utterances = append(utterances, entities.NewAlignedUtterance(runSpeaker, run))
			run = nil
		}
	}

	for pos, idx := range order {
		w := words[idx]
		speaker := resolved[idx]
		if pos == 0 {
			runSpeaker = speaker
			run = append(run, w)
			continue
		}
		prev := words[order[pos-1]]
		if speaker != runSpeaker || w.Start-prev.End > a.cfg.PauseThreshold {
			flush()
			runSpeaker = speaker
		}
		run = append(run, w)
	}
	flush()

	return utterances
}

// bridgeUnassigned reassigns maximal runs of UNASSIGNED words to the
// nearest-in-time assigned neighbour when the gap is within the merge
// window. Runs farther than the window from both neighbours stay
// UNASSIGNED.
func (a *Assembler) bridgeUnassigned(words []entities.Word, speakers []string, order []int) []string {
	resolved := make([]string, len(speakers))
	copy(resolved, speakers)

	n := len(order)
	for pos := 0; pos < n; {
		if resolved[order[pos]] != entities.SpeakerUnassigned {
			pos++
			continue
		}
		runStart := pos
		for pos < n && resolved[order[pos]] == entities.SpeakerUnassigned {
			pos++
		}
		runEnd := pos // exclusive

		hasPrev, hasNext := runStart > 0, runEnd < n
		prevGap, nextGap := 0.0, 0.0
		prevSpeaker, nextSpeaker := "", ""
		if hasPrev {
			prevGap = math.Max(0, words[order[runStart]].Start-words[order[runStart-1]].End)
			prevSpeaker = resolved[order[runStart-1]]
		}
		if hasNext {
			nextGap = math.Max(0, words[order[runEnd]].Start-words[order[runEnd-1]].End)
			nextSpeaker = resolved[order[runEnd]]
		}

		speaker := ""
		switch {
		case hasPrev && (!hasNext || prevGap <= nextGap):
			if prevGap <= a.cfg.MergeWindow {
				speaker = prevSpeaker
			}
		case hasNext:
			if nextGap <= a.cfg.MergeWindow {
				speaker = nextSpeaker
			}
		}
		if speaker != "" && speaker != entities.SpeakerUnassigned {
			for i := runStart; i < runEnd; i++ {
				resolved[order[i]] = speaker
			}
		}
	}
	return resolved
}
