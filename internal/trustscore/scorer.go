// Package trustscore computes a creditworthiness score from the
// self-assessment questionnaire. Sections are averaged on their answer
// scale, weighted, and combined into a composite out of 100; hidden
// validity items penalize inconsistent or implausibly flattering answer
// patterns by capping the result.
package trustscore

import (
	"context"
	"fmt"
	"math"
)

const (
	likertMax     = 5
	selfRatingMax = 4

	// inconsistencyPenalty is subtracted from the composite per point of
	// disagreement across the consistency pairs.
	inconsistencyPenalty = 2.0

	// Exceeding either threshold caps the final score at cappedScore.
	inconsistencyThreshold      = 3
	socialDesirabilityThreshold = 4.5
	cappedScore                 = 50
)

// Submission is a completed questionnaire. Answers holds one value per
// visible question: 1–5 for Likert items, 1–4 for the self-rating item
// (see SelfRatingValue). Validity optionally carries answers to the hidden
// validity items, keyed by question index; pairs left unanswered echo
// their visible counterpart.
type Submission struct {
	Answers  []int       `json:"answers"`
	Validity map[int]int `json:"validity,omitempty"`
}

// Result is the outcome of scoring a submission.
type Result struct {
	// Composite is the weighted section score out of 100, before penalties.
	Composite float64 `json:"composite"`
	// Inconsistency is the summed disagreement across consistency pairs.
	Inconsistency int `json:"inconsistency"`
	// SocialDesirability is the mean visible answer, a proxy for
	// everything-is-perfect response patterns.
	SocialDesirability float64 `json:"social_desirability"`
	// Capped reports whether a validity threshold forced the cap.
	Capped bool `json:"capped"`
	// TrustScore is the final 0–100 score to write to the user.
	TrustScore int `json:"trust_score"`
}

// Scorer computes a Result from a Submission.
type Scorer interface {
	Score(ctx context.Context, sub Submission) (*Result, error)
}

// WeightedScorer is the default Scorer implementation.
type WeightedScorer struct{}

// NewWeightedScorer returns the default questionnaire scorer.
func NewWeightedScorer() *WeightedScorer {
	return &WeightedScorer{}
}

// Score implements Scorer.
func (s *WeightedScorer) Score(_ context.Context, sub Submission) (*Result, error) {
	if len(sub.Answers) != VisibleCount {
		return nil, fmt.Errorf("expected %d answers, got %d", VisibleCount, len(sub.Answers))
	}
	for i, a := range sub.Answers {
		max := likertMax
		if questions[i].SelfRating {
			max = selfRatingMax
		}
		if a < 1 || a > max {
			return nil, fmt.Errorf("answer %d out of range: got %d, want 1-%d", i, a, max)
		}
	}

	full := make([]int, len(questions))
	copy(full, sub.Answers)
	for _, p := range consistencyPairs {
		full[p[1]] = full[p[0]]
	}
	for idx, a := range sub.Validity {
		if idx < VisibleCount || idx >= len(questions) {
			return nil, fmt.Errorf("validity index %d out of range", idx)
		}
		if a < 1 || a > likertMax {
			return nil, fmt.Errorf("validity answer %d out of range: got %d", idx, a)
		}
		full[idx] = a
	}

	composite := compositeScore(full)
	inconsistency := inconsistencyIndex(full)
	desirability := meanVisible(full)

	adjusted := math.Max(composite-inconsistencyPenalty*float64(inconsistency), 0)

	capped := false
	if inconsistency > inconsistencyThreshold || desirability > socialDesirabilityThreshold {
		capped = true
		adjusted = math.Min(adjusted, cappedScore)
	}

	return &Result{
		Composite:          composite,
		Inconsistency:      inconsistency,
		SocialDesirability: desirability,
		Capped:             capped,
		TrustScore:         int(math.Round(adjusted)),
	}, nil
}

func compositeScore(full []int) float64 {
	var totalWeighted, totalWeight float64
	for _, sec := range sections {
		var score, max int
		for _, qi := range sec.Questions {
			v := full[qi]
			q := questions[qi]
			if q.SelfRating {
				max += selfRatingMax
			} else {
				max += likertMax
				if q.Reverse {
					v = likertMax + 1 - v
				}
			}
			score += v
		}
		totalWeighted += float64(score) / float64(max) * sec.Weight
		totalWeight += sec.Weight
	}
	return totalWeighted / totalWeight * 100
}

func inconsistencyIndex(full []int) int {
	total := 0
	for _, p := range consistencyPairs {
		a, b := full[p[0]], full[p[1]]
		if a > 0 && b > 0 {
			d := a - b
			if d < 0 {
				d = -d
			}
			total += d
		}
	}
	return total
}

func meanVisible(full []int) float64 {
	total := 0
	for i := 0; i < VisibleCount; i++ {
		total += full[i]
	}
	return float64(total) / float64(VisibleCount)
}
