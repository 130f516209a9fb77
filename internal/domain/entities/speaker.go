package entities

// SpeakerRole is the functional classification of a speaker within a call.
type SpeakerRole string

const (
	RoleAgent    SpeakerRole = "agent"
	RoleCustomer SpeakerRole = "customer"
	RoleUnknown  SpeakerRole = "unknown"
)

// SpeakerProfile is the per-call aggregate for one speaker. It is recomputed
// from the utterance set and never persisted independently of its call.
type SpeakerProfile struct {
	SpeakerID             string                 `json:"speaker_id"`
	Role                  SpeakerRole            `json:"role"`
	SentimentDistribution map[SentimentLabel]int `json:"sentiment_distribution"`
	DominantSentiment     SentimentLabel         `json:"dominant_sentiment"`
	UtteranceCount        int                    `json:"utterance_count"`
}

// DominantLabel returns the label with the maximum count in dist. Ties break
// by fixed priority: negative over positive over neutral, reflecting the
// business priority on flagging dissatisfaction.
func DominantLabel(dist map[SentimentLabel]int) SentimentLabel {
	priority := []SentimentLabel{SentimentNegative, SentimentPositive, SentimentNeutral}
	best := SentimentNeutral
	bestCount := -1
	for _, label := range priority {
		if dist[label] > bestCount {
			best = label
			bestCount = dist[label]
		}
	}
	return best
}

// DominantShare returns the fraction of the speaker's utterances carrying
// the dominant label, or 0 when the speaker has no utterances.
func (p SpeakerProfile) DominantShare() float64 {
	if p.UtteranceCount == 0 {
		return 0
	}
	return float64(p.SentimentDistribution[p.DominantSentiment]) / float64(p.UtteranceCount)
}
