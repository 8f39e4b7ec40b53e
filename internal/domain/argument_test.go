package domain

import (
	"testing"

	"github.com/google/uuid"
)

func ptr(v float64) *float64 { return &v }

func TestArgument_SeedConfidence(t *testing.T) {
	tests := []struct {
		name string
		arg  Argument
		want float64
	}{
		{"no signals", Argument{}, DefaultConfidence},
		{"single signal", Argument{LogicalValidity: ptr(0.8)}, 0.8},
		{"mean of three", Argument{LogicalValidity: ptr(0.9), EvidenceQuality: ptr(0.6), Coherence: ptr(0.3)}, 0.6},
		{"entropy ignored", Argument{EntropyScore: ptr(0.1)}, DefaultConfidence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.arg.SeedConfidence()
			if got < tt.want-1e-9 || got > tt.want+1e-9 {
				t.Errorf("SeedConfidence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCommunityNote_HasSingleTarget(t *testing.T) {
	post := "post-1"
	empty := ""
	fact := uuid.New()

	tests := []struct {
		name string
		note CommunityNote
		want bool
	}{
		{"post only", CommunityNote{PostID: &post}, true},
		{"fact only", CommunityNote{FactClaimID: &fact}, true},
		{"both", CommunityNote{PostID: &post, FactClaimID: &fact}, false},
		{"neither", CommunityNote{}, false},
		{"empty post id", CommunityNote{PostID: &empty}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.note.HasSingleTarget(); got != tt.want {
				t.Errorf("HasSingleTarget() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidators(t *testing.T) {
	if !ValidEntityType("argument") || !ValidEntityType("fact_claim") || ValidEntityType("post") {
		t.Error("ValidEntityType mismatch")
	}
	if !ValidNoteType("misleading") || ValidNoteType("spam") {
		t.Error("ValidNoteType mismatch")
	}
	if !ValidAppealOutcome("upheld") || !ValidAppealOutcome("rejected") || ValidAppealOutcome("pending") {
		t.Error("ValidAppealOutcome mismatch")
	}
}
