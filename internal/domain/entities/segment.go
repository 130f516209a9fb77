package entities

// Word is a single transcribed word with timing and model confidence,
// as produced by the transcription collaborator. Times are in seconds
// from the start of the recording.
type Word struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Duration returns the word's span in seconds.
func (w Word) Duration() float64 {
	return w.End - w.Start
}

// Midpoint returns the temporal midpoint of the word.
func (w Word) Midpoint() float64 {
	return (w.Start + w.End) / 2
}

// DiarizationTurn is a speaker-attributed time interval produced by the
// diarization collaborator. Turns for a call arrive sorted by start but
// may overlap across speakers (cross-talk) or leave gaps (silence).
type DiarizationTurn struct {
	SpeakerID string  `json:"speaker_id"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
}

// Midpoint returns the temporal midpoint of the turn.
func (t DiarizationTurn) Midpoint() float64 {
	return (t.Start + t.End) / 2
}

// Overlap returns the intersection duration between the word and the turn,
// or 0 when the intervals do not intersect.
func (t DiarizationTurn) Overlap(w Word) float64 {
	start := w.Start
	if t.Start > start {
		start = t.Start
	}
	end := w.End
	if t.End < end {
		end = t.End
	}
	if end <= start {
		return 0
	}
	return end - start
}

// Distance returns the temporal gap between the word and the turn,
// or 0 when they intersect or touch.
func (t DiarizationTurn) Distance(w Word) float64 {
	if w.Start > t.End {
		return w.Start - t.End
	}
	if t.Start > w.End {
		return t.Start - w.End
	}
	return 0
}
