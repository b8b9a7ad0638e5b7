package trustscore_test

import (
	"context"
	"math"
	"testing"

	"github.com/trustfund-platform/trustfund/internal/trustscore"
)

var ctx = context.Background()

// uniform builds a submission answering every visible question with v,
// clamped to the self-rating scale where needed.
func uniform(v int) trustscore.Submission {
	answers := make([]int, trustscore.VisibleCount)
	for i, q := range trustscore.VisibleQuestions() {
		a := v
		if q.SelfRating && a > 4 {
			a = 4
		}
		answers[i] = a
	}
	return trustscore.Submission{Answers: answers}
}

func TestScore_moderateAnswers(t *testing.T) {
	s := trustscore.NewWeightedScorer()

	res, err := s.Score(ctx, uniform(3))
	if err != nil {
		t.Fatal(err)
	}
	// Likert sections sit at 3/5; the self-assessment section at 9/14.
	want := (0.6*0.9 + 9.0/14.0*0.1) * 100
	if math.Abs(res.Composite-want) > 0.01 {
		t.Errorf("composite: got %.2f, want %.2f", res.Composite, want)
	}
	if res.Inconsistency != 0 {
		t.Errorf("inconsistency: got %d, want 0", res.Inconsistency)
	}
	if res.Capped {
		t.Error("moderate answers must not be capped")
	}
	if res.TrustScore != 60 {
		t.Errorf("trust score: got %d, want 60", res.TrustScore)
	}
}

func TestScore_deterministic(t *testing.T) {
	s := trustscore.NewWeightedScorer()
	sub := uniform(4)

	a, err := s.Score(ctx, sub)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Score(ctx, sub)
	if err != nil {
		t.Fatal(err)
	}
	if *a != *b {
		t.Errorf("same submission scored differently: %+v vs %+v", a, b)
	}
}

func TestScore_socialDesirabilityCap(t *testing.T) {
	s := trustscore.NewWeightedScorer()

	// Strongly agreeing with everything reads as an implausibly flattering
	// pattern and caps the score.
	res, err := s.Score(ctx, uniform(5))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Capped {
		t.Fatal("all-5 answers must trigger the cap")
	}
	if res.TrustScore != 50 {
		t.Errorf("capped score: got %d, want 50", res.TrustScore)
	}
	if res.SocialDesirability <= 4.5 {
		t.Errorf("social desirability: got %.2f, want > 4.5", res.SocialDesirability)
	}
}

func TestScore_inconsistencyPenalty(t *testing.T) {
	s := trustscore.NewWeightedScorer()

	// One pair disagreeing by 2 is penalized but below the cap threshold.
	sub := uniform(3)
	sub.Validity = map[int]int{23: 1}
	res, err := s.Score(ctx, sub)
	if err != nil {
		t.Fatal(err)
	}
	if res.Inconsistency != 2 {
		t.Errorf("inconsistency: got %d, want 2", res.Inconsistency)
	}
	if res.Capped {
		t.Error("inconsistency of 2 must not cap")
	}
	if res.TrustScore != 56 {
		t.Errorf("trust score: got %d, want 56", res.TrustScore)
	}

	// Two pairs disagreeing pushes the index past the threshold.
	sub.Validity = map[int]int{23: 1, 26: 1}
	res, err = s.Score(ctx, sub)
	if err != nil {
		t.Fatal(err)
	}
	if res.Inconsistency != 4 {
		t.Errorf("inconsistency: got %d, want 4", res.Inconsistency)
	}
	if !res.Capped {
		t.Error("inconsistency of 4 must cap")
	}
	if res.TrustScore != 50 {
		t.Errorf("trust score: got %d, want 50", res.TrustScore)
	}
}

func TestScore_validation(t *testing.T) {
	s := trustscore.NewWeightedScorer()

	cases := []struct {
		name string
		sub  trustscore.Submission
	}{
		{"too few answers", trustscore.Submission{Answers: []int{1, 2, 3}}},
		{"answer above scale", func() trustscore.Submission {
			sub := uniform(3)
			sub.Answers[0] = 6
			return sub
		}()},
		{"answer below scale", func() trustscore.Submission {
			sub := uniform(3)
			sub.Answers[5] = 0
			return sub
		}()},
		{"self rating above scale", func() trustscore.Submission {
			sub := uniform(3)
			sub.Answers[20] = 5
			return sub
		}()},
		{"validity index visible", func() trustscore.Submission {
			sub := uniform(3)
			sub.Validity = map[int]int{2: 3}
			return sub
		}()},
		{"validity index out of bank", func() trustscore.Submission {
			sub := uniform(3)
			sub.Validity = map[int]int{99: 3}
			return sub
		}()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Score(ctx, tc.sub); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSelfRatingValue(t *testing.T) {
	for label, want := range map[string]int{
		"Poor": 1, "Average": 2, "Good": 3, "Excellent": 4, "bogus": 0, "": 0,
	} {
		if got := trustscore.SelfRatingValue(label); got != want {
			t.Errorf("SelfRatingValue(%q): got %d, want %d", label, got, want)
		}
	}
}

func TestSectionWeightsSumToOne(t *testing.T) {
	var total float64
	for _, sec := range trustscore.Sections() {
		total += sec.Weight
	}
	if math.Abs(total-1.0) > 1e-9 {
		t.Errorf("section weights sum to %f, want 1.0", total)
	}
}
