package pipeline

import (
	"math"
	"testing"

	"github.com/callsight-team/callsight/internal/domain/entities"
)

func TestAssemble_SingleUtterance(t *testing.T) {
	asm := NewAssembler(DefaultConfig())

	words := []entities.Word{
		word("Hello", 0.0, 0.5, 0.9),
		word("there", 0.5, 0.9, 0.85),
	}
	speakers := []string{"SPEAKER_00", "SPEAKER_00"}

	got := asm.Assemble(words, speakers)
	if len(got) != 1 {
		t.Fatalf("expected 1 utterance, got %d", len(got))
	}
	u := got[0]
	if u.SpeakerID != "SPEAKER_00" {
		t.Errorf("speaker = %s, expected SPEAKER_00", u.SpeakerID)
	}
	if u.Text != "Hello there" {
		t.Errorf("text = %q, expected %q", u.Text, "Hello there")
	}
	if math.Abs(u.MeanConfidence-0.875) > 1e-9 {
		t.Errorf("mean confidence = %f, expected 0.875", u.MeanConfidence)
	}
	if u.Start != 0.0 || u.End != 0.9 {
		t.Errorf("span = [%f, %f], expected [0.0, 0.9]", u.Start, u.End)
	}
}

func TestAssemble_SplitsOnSpeakerChange(t *testing.T) {
	asm := NewAssembler(DefaultConfig())

	words := []entities.Word{
		word("Hi", 0.0, 0.3, 0.9),
		word("there", 0.4, 0.7, 0.9),
		word("hello", 0.8, 1.1, 0.9),
	}
	speakers := []string{"SPEAKER_00", "SPEAKER_00", "SPEAKER_01"}

	got := asm.Assemble(words, speakers)
	if len(got) != 2 {
		t.Fatalf("expected 2 utterances, got %d", len(got))
	}
	if got[0].SpeakerID != "SPEAKER_00" || got[1].SpeakerID != "SPEAKER_01" {
		t.Fatalf("speakers = %s, %s", got[0].SpeakerID, got[1].SpeakerID)
	}
}

func TestAssemble_SplitsOnLongPause(t *testing.T) {
	asm := NewAssembler(DefaultConfig())

	words := []entities.Word{
		word("So", 0.0, 0.3, 0.9),
		word("anyway", 3.0, 3.4, 0.9), // 2.7s pause, above threshold
	}
	speakers := []string{"SPEAKER_00", "SPEAKER_00"}

	got := asm.Assemble(words, speakers)
	if len(got) != 2 {
		t.Fatalf("expected 2 utterances after long pause, got %d", len(got))
	}
}

func TestAssemble_PauseAtThresholdDoesNotSplit(t *testing.T) {
	asm := NewAssembler(DefaultConfig())

	words := []entities.Word{
		word("So", 0.0, 0.3, 0.9),
		word("anyway", 2.3, 2.6, 0.9), // exactly 2.0s pause
	}
	speakers := []string{"SPEAKER_00", "SPEAKER_00"}

	got := asm.Assemble(words, speakers)
	if len(got) != 1 {
		t.Fatalf("expected 1 utterance at threshold pause, got %d", len(got))
	}
}

func TestAssemble_UnassignedMergedIntoNearestNeighbour(t *testing.T) {
	asm := NewAssembler(DefaultConfig())

	words := []entities.Word{
		word("I", 0.0, 0.3, 0.9),
		word("um", 0.4, 0.6, 0.5), // 0.1s from both neighbours, within window
		word("agree", 0.7, 1.0, 0.9),
	}
	speakers := []string{"SPEAKER_00", entities.SpeakerUnassigned, "SPEAKER_00"}

	got := asm.Assemble(words, speakers)
	if len(got) != 1 {
		t.Fatalf("expected 1 merged utterance, got %d", len(got))
	}
	if got[0].Text != "I um agree" {
		t.Errorf("text = %q, expected %q", got[0].Text, "I um agree")
	}
}

func TestAssemble_UnassignedBeyondWindowStandsAlone(t *testing.T) {
	asm := NewAssembler(DefaultConfig())

	words := []entities.Word{
		word("Right", 0.0, 0.3, 0.9),
		word("hmm", 1.0, 1.2, 0.5), // 0.7s from prev, 0.8s from next
		word("okay", 2.0, 2.3, 0.9),
	}
	speakers := []string{"SPEAKER_00", entities.SpeakerUnassigned, "SPEAKER_00"}

	got := asm.Assemble(words, speakers)
	if len(got) != 3 {
		t.Fatalf("expected 3 utterances, got %d", len(got))
	}
	mid := got[1]
	if mid.SpeakerID != entities.SpeakerUnassigned {
		t.Fatalf("middle speaker = %s, expected UNASSIGNED", mid.SpeakerID)
	}
	if mid.MeanConfidence != 0 {
		t.Errorf("UNASSIGNED utterance confidence = %f, expected 0", mid.MeanConfidence)
	}
}

func TestAssemble_EveryWordCoveredOnce(t *testing.T) {
	asm := NewAssembler(DefaultConfig())

	words := []entities.Word{
		word("a", 0.0, 0.2, 0.9),
		word("b", 0.3, 0.5, 0.8),
		word("c", 0.9, 1.1, 0.7),
		word("d", 4.0, 4.2, 0.6),
		word("e", 4.3, 4.5, 0.95),
	}
	speakers := []string{"SPEAKER_00", entities.SpeakerUnassigned, "SPEAKER_01", "SPEAKER_01", entities.SpeakerUnassigned}

	got := asm.Assemble(words, speakers)
	total := 0
	for _, u := range got {
		total += len(u.WordConfidences)
	}
	if total != len(words) {
		t.Fatalf("utterances cover %d words, expected %d", total, len(words))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Start < got[i-1].Start {
			t.Fatalf("utterances out of order: %f before %f", got[i].Start, got[i-1].Start)
		}
	}
}

func TestAssemble_OutOfOrderWordsSorted(t *testing.T) {
	asm := NewAssembler(DefaultConfig())

	words := []entities.Word{
		word("there", 0.5, 0.9, 0.85),
		word("Hello", 0.0, 0.5, 0.9),
	}
	speakers := []string{"SPEAKER_00", "SPEAKER_00"}

	got := asm.Assemble(words, speakers)
	if len(got) != 1 {
		t.Fatalf("expected 1 utterance, got %d", len(got))
	}
	if got[0].Text != "Hello there" {
		t.Errorf("text = %q, expected %q", got[0].Text, "Hello there")
	}
}

func TestAssemble_Empty(t *testing.T) {
	asm := NewAssembler(DefaultConfig())
	if got := asm.Assemble(nil, nil); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}
