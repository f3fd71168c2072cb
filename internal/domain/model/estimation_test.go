// File: internal/domain/model/estimation_test.go
package model

import (
	"reflect"
	"testing"
)

func TestNearestStoryPoint(t *testing.T) {
	cases := []struct {
		in   float64
		want StoryPoint
	}{
		{0.5, 0.5},
		{3, 3},
		{13, 13},
		{0, 0.5},
		{-1, 0.5},
		{1.4, 1},   // 1.4 is 0.4 from 1, 0.6 from 2
		{1.5, 1},   // tie resolves toward 1
		{4, 3},     // tie between 3 and 5 resolves to 3, closer to 1
		{6.5, 5},   // tie between 5 and 8
		{7, 8},     // 7 is 1 from 8, 2 from 5
		{100, 13},  // clamps onto the top of the scale
		{2.6, 3},
	}
	for _, c := range cases {
		if got := NearestStoryPoint(c.in); got != c.want {
			t.Errorf("NearestStoryPoint(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNormalizeClampsOntoScale(t *testing.T) {
	r := EstimationResult{EstimatedPoints: 4.2}
	r.Normalize()
	if !IsValidStoryPoint(float64(r.EstimatedPoints)) {
		t.Fatalf("EstimatedPoints = %v, not on the scale", r.EstimatedPoints)
	}
}

func TestNormalizeForcesSplitAtThirteen(t *testing.T) {
	r := EstimationResult{EstimatedPoints: 13, ShouldSplit: false}
	r.Normalize()
	if !r.ShouldSplit {
		t.Error("13 point estimate must set shouldSplit")
	}

	r = EstimationResult{EstimatedPoints: 20}
	r.Normalize()
	if r.EstimatedPoints != 13 || !r.ShouldSplit {
		t.Errorf("got points=%v split=%v, want 13/true", r.EstimatedPoints, r.ShouldSplit)
	}
}

func TestNormalizeBoundsAndDefaults(t *testing.T) {
	r := EstimationResult{
		EstimatedPoints: 3,
		Baseline: BaselineTicket{
			WorkloadSimilarityScore: 11.26,
			WorkloadSimilarityBreakdown: WorkloadSimilarityBreakdown{
				W1TypeMatch:          9,
				W2ScopeMatch:         -1,
				W3InvestigationMatch: 2,
				W4PRWorkloadMatch:    0.5,
				W5LexicalBonus:       3,
			},
		},
		SimilarTickets: []SimilarTicket{{
			Key:                     "LIST-1",
			WorkloadSimilarityScore: 7.449,
			Diff: TicketDiff{
				ScopeDiff: 3.7,
				FileDiff:  -5,
				LogicDiff: 0.4,
				RiskDiff:  1,
			},
		}},
	}
	r.Normalize()

	if r.Baseline.Key != "N/A" {
		t.Errorf("empty baseline key = %q, want N/A", r.Baseline.Key)
	}
	if r.Baseline.WorkloadSimilarityScore != 10 {
		t.Errorf("baseline similarity = %v, want 10", r.Baseline.WorkloadSimilarityScore)
	}
	b := r.Baseline.WorkloadSimilarityBreakdown
	if b.W1TypeMatch != 6 || b.W2ScopeMatch != 0 || b.W3InvestigationMatch != 1 || b.W4PRWorkloadMatch != 0.5 {
		t.Errorf("breakdown not clamped: %+v", b)
	}
	if b.W5LexicalBonus != 0 {
		t.Errorf("W5 = %v, retired component must be zero", b.W5LexicalBonus)
	}

	st := r.SimilarTickets[0]
	if st.WorkloadSimilarityScore != 7.4 {
		t.Errorf("similarity = %v, want 7.4 after rounding", st.WorkloadSimilarityScore)
	}
	d := st.Diff
	if d.ScopeDiff != 2 || d.FileDiff != -2 || d.LogicDiff != 0 || d.RiskDiff != 1 {
		t.Errorf("diffs not clamped to integer [-2,2]: %+v", d)
	}

	if r.Baseline.SimilarityReason == nil || r.PointCandidates == nil || st.RelatedPRs == nil {
		t.Error("nil slices must become empty slices")
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	r := EstimationResult{
		EstimatedPoints: 9.7,
		Baseline: BaselineTicket{
			WorkloadSimilarityScore:     -3,
			WorkloadSimilarityBreakdown: WorkloadSimilarityBreakdown{W1TypeMatch: 100},
		},
		SimilarTickets: []SimilarTicket{{Diff: TicketDiff{ScopeDiff: 9}}},
		AILeverage:     &AILeverage{AppliedReduction: "half"},
	}
	r.Normalize()
	first := r
	r.Normalize()
	if !reflect.DeepEqual(first, r) {
		t.Errorf("second Normalize changed the result:\nfirst:  %+v\nsecond: %+v", first, r)
	}
	if r.AILeverage.AppliedReduction != "none" {
		t.Errorf("unknown reduction = %q, want none", r.AILeverage.AppliedReduction)
	}
}
