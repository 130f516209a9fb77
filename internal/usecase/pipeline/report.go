package pipeline

import (
	"fmt"
	"strings"

	"github.com/callsight-team/callsight/internal/domain/entities"
)

// ReportBuilder assembles the final call report and enforces the
// cross-component invariants: a profile for every speaker, matching
// utterance counts, and duration equal to the latest utterance end.
type ReportBuilder struct {
	cfg Config
}

// NewReportBuilder creates a report builder with the given thresholds.
func NewReportBuilder(cfg Config) *ReportBuilder {
	return &ReportBuilder{cfg: cfg}
}

// Build produces the call record aggregate. Summary may be nil on a
// degraded run; reasons carries the stage-level failure codes. Role hints
// from the caller override the agent/customer heuristic.
func (b *ReportBuilder) Build(
	callID, language string,
	utterances []entities.AnnotatedUtterance,
	rollup SentimentRollup,
	summary *entities.CallSummary,
	roleHints map[string]entities.SpeakerRole,
	reasons []string,
) (*entities.CallReport, error) {
	profiles := rollup.PerSpeaker
	if profiles == nil {
		profiles = make(map[string]entities.SpeakerProfile)
	}

	if err := checkInvariants(utterances, profiles); err != nil {
		return nil, err
	}

	assignRoles(profiles, utterances, roleHints)

	duration := 0.0
	for _, au := range utterances {
		if au.Utterance.End > duration {
			duration = au.Utterance.End
		}
	}

	report := &entities.CallReport{
		CallID:           callID,
		Duration:         duration,
		Utterances:       utterances,
		Speakers:         profiles,
		OverallSentiment: b.overallSentiment(profiles, rollup.Overall),
		Summary:          summary,
		Language:         language,
		Degraded:         len(reasons) > 0,
		DegradedReasons:  reasons,
	}
	return report, nil
}

// checkInvariants verifies the aggregate before it is emitted. A violation
// means a bug upstream, not bad input.
func checkInvariants(utterances []entities.AnnotatedUtterance, profiles map[string]entities.SpeakerProfile) error {
	counts := make(map[string]int)
	for _, au := range utterances {
		if au.Utterance.SpeakerID == entities.SpeakerUnassigned {
			continue
		}
		counts[au.Utterance.SpeakerID]++
	}
	for speaker, count := range counts {
		profile, ok := profiles[speaker]
		if !ok {
			return fmt.Errorf("speaker %s has utterances but no profile", speaker)
		}
		if profile.UtteranceCount != count {
			return fmt.Errorf("speaker %s profile counts %d utterances, timeline has %d",
				speaker, profile.UtteranceCount, count)
		}
		sum := 0
		for _, n := range profile.SentimentDistribution {
			sum += n
		}
		if sum != count {
			return fmt.Errorf("speaker %s sentiment distribution sums to %d, expected %d",
				speaker, sum, count)
		}
	}
	return nil
}

// assignRoles applies caller-provided hints, then falls back to the
// two-party heuristic: the speaker with the higher question-mark ratio and
// the lower mean utterance duration is guessed to be the agent. Anything
// the heuristic cannot decide stays unknown.
func assignRoles(profiles map[string]entities.SpeakerProfile, utterances []entities.AnnotatedUtterance, hints map[string]entities.SpeakerRole) {
	hinted := 0
	for id, role := range hints {
		if profile, ok := profiles[id]; ok && role != "" {
			profile.Role = role
			profiles[id] = profile
			hinted++
		}
	}
	if hinted > 0 || len(profiles) != 2 {
		return
	}

	ids := make([]string, 0, 2)
	for id := range profiles {
		ids = append(ids, id)
	}
	if ids[0] > ids[1] {
		ids[0], ids[1] = ids[1], ids[0]
	}

	stats := make(map[string]struct {
		meanDuration  float64
		questionRatio float64
	}, 2)
	for _, id := range ids {
		total, questions, n := 0.0, 0, 0
		for _, au := range utterances {
			if au.Utterance.SpeakerID != id {
				continue
			}
			total += au.Utterance.Duration()
			questions += strings.Count(au.Utterance.Text, "?")
			n++
		}
		s := stats[id]
		if n > 0 {
			s.meanDuration = total / float64(n)
			s.questionRatio = float64(questions) / float64(n)
		}
		stats[id] = s
	}

	votes := 0 // positive favours ids[0] as agent
	if stats[ids[0]].questionRatio > stats[ids[1]].questionRatio {
		votes++
	} else if stats[ids[0]].questionRatio < stats[ids[1]].questionRatio {
		votes--
	}
	if stats[ids[0]].meanDuration < stats[ids[1]].meanDuration {
		votes++
	} else if stats[ids[0]].meanDuration > stats[ids[1]].meanDuration {
		votes--
	}
	if votes == 0 {
		return
	}

	agent, customer := ids[0], ids[1]
	if votes < 0 {
		agent, customer = ids[1], ids[0]
	}
	pa, pc := profiles[agent], profiles[customer]
	pa.Role = entities.RoleAgent
	pc.Role = entities.RoleCustomer
	profiles[agent], profiles[customer] = pa, pc
}

// overallSentiment rates the whole call: "mixed" when agent and customer
// dominants diverge with at least the cutoff share on each side, otherwise
// the dominant label of the overall distribution.
func (b *ReportBuilder) overallSentiment(profiles map[string]entities.SpeakerProfile, overall map[entities.SentimentLabel]int) entities.CallSentiment {
	var agent, customer *entities.SpeakerProfile
	for id := range profiles {
		p := profiles[id]
		switch p.Role {
		case entities.RoleAgent:
			agent = &p
		case entities.RoleCustomer:
			customer = &p
		}
	}
	if agent != nil && customer != nil &&
		agent.DominantSentiment != customer.DominantSentiment &&
		agent.DominantShare() >= b.cfg.MixedShareCutoff &&
		customer.DominantShare() >= b.cfg.MixedShareCutoff {
		return entities.CallSentimentMixed
	}
	return entities.CallSentiment(entities.DominantLabel(overall))
}
