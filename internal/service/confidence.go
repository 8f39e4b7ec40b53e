package service

import (
	"math"
	"sort"

	"github.com/Harshitk-cp/epistemic/internal/domain"
)

const (
	DefaultPropagationThreshold = 0.85
	DefaultPropagationLimit     = 5
	DefaultDampening            = 0.3
	DefaultSupportDelta         = 0.05
	DefaultRefuteDelta          = 0.05
	DefaultCiteDelta            = 0.05
	DefaultChallengeDelta       = 0.1
	DefaultClusterThreshold     = 0.92
	DefaultSignificantChange    = 0.1
	DefaultNoteMinVotes         = 5

	minVoteWeight = 0.1
)

// Clamp bounds p to [0, 1]. NaN clamps to 0.
func Clamp(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// EffectiveConfidence discounts an argument's confidence by the distrust of
// every fact it depends on, weighted by dependency strength. A fact at
// confidence 1 contributes no discount.
func EffectiveConfidence(confidence float64, links []domain.DependencyLink) float64 {
	eff := Clamp(confidence)
	for _, l := range links {
		eff *= 1 - Clamp(l.DependencyStrength)*(1-Clamp(l.FactConfidence))
	}
	return Clamp(eff)
}

// NoteWeight is the voting weight of a reputation snapshot.
func NoteWeight(reputation float64) float64 {
	return math.Max(minVoteWeight, reputation/domain.MaxReputation)
}

// ComputeNoteScores recomputes a note's aggregate from its complete vote set.
// Votes are summed in voter order so the result does not depend on the order
// they were cast in.
func ComputeNoteScores(note *domain.CommunityNote, votes []domain.CommunityNoteVote, minVotes int) domain.NoteScores {
	sorted := make([]domain.CommunityNoteVote, len(votes))
	copy(sorted, votes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].VoterID < sorted[j].VoterID })

	var helpful, total float64
	for _, v := range sorted {
		w := NoteWeight(v.VoterReputation)
		total += w
		if v.IsHelpful {
			helpful += w
		}
	}

	scores := domain.NoteScores{VoteCount: len(sorted)}
	if total > 0 {
		scores.HelpfulScore = Clamp(helpful / total)
		scores.NotHelpfulScore = Clamp((total - helpful) / total)
	}
	scores.IsDisplayed = scores.VoteCount > 0 && scores.HelpfulScore >= note.DisplayThreshold

	switch {
	case note.AppealUpheld():
		scores.IsDisplayed = false
		scores.Status = domain.NoteStatusHidden
	case note.AppealPending():
		scores.Status = domain.NoteStatusAppealed
	default:
		scores.Status = noteStatus(scores.IsDisplayed, scores.VoteCount, minVotes)
	}
	return scores
}

func noteStatus(displayed bool, voteCount, minVotes int) domain.NoteStatus {
	switch {
	case voteCount == 0:
		return domain.NoteStatusDraft
	case displayed:
		return domain.NoteStatusDisplayed
	case voteCount >= minVotes:
		return domain.NoteStatusHidden
	default:
		return domain.NoteStatusVoting
	}
}

// NoteEffectiveness weights a note author's reputation reward.
func NoteEffectiveness(n *domain.CommunityNote) float64 {
	e := n.HelpfulScore * math.Sqrt(math.Max(1, float64(n.VoteCount)))
	if n.IsDisplayed {
		e *= 1.5
	}
	return e
}
