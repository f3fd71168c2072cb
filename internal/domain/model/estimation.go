// File: internal/domain/model/estimation.go
package model

import "math"

// StoryPoint is a value on the permitted estimation scale.
type StoryPoint float64

// PointScale is the permitted story point scale, ascending.
var PointScale = []StoryPoint{0.5, 1, 2, 3, 5, 8, 13}

// IsValidStoryPoint reports whether v is exactly one of the permitted points.
func IsValidStoryPoint(v float64) bool {
	for _, p := range PointScale {
		if v == float64(p) {
			return true
		}
	}
	return false
}

// NearestStoryPoint maps an arbitrary value onto the permitted scale.
// Ties resolve to the candidate closest to 1 because the search starts there.
func NearestStoryPoint(v float64) StoryPoint {
	if IsValidStoryPoint(v) {
		return StoryPoint(v)
	}
	closest := StoryPoint(1)
	minDiff := math.Abs(v - 1)
	for _, p := range PointScale {
		if d := math.Abs(v - float64(p)); d < minDiff {
			minDiff = d
			closest = p
		}
	}
	return closest
}

// WorkloadSimilarityBreakdown decomposes a similarity score into weighted
// components. W5 is retired and always zero after normalization.
type WorkloadSimilarityBreakdown struct {
	W1TypeMatch          float64 `json:"W1_typeMatch"`
	W2ScopeMatch         float64 `json:"W2_scopeMatch"`
	W3InvestigationMatch float64 `json:"W3_investigationMatch"`
	W4PRWorkloadMatch    float64 `json:"W4_prWorkloadMatch"`
	W5LexicalBonus       float64 `json:"W5_lexicalBonus"`
}

type BaselineTicket struct {
	Key                         string                      `json:"key"`
	Summary                     string                      `json:"summary,omitempty"`
	Points                      float64                     `json:"points"`
	WorkloadSimilarityScore     float64                     `json:"workloadSimilarityScore"`
	WorkloadSimilarityBreakdown WorkloadSimilarityBreakdown `json:"workloadSimilarityBreakdown"`
	SimilarityReason            []string                    `json:"similarityReason"`
}

type WorkTypeBreakdown struct {
	T1SmallExistingChange float64 `json:"T1_small_existing_change"`
	T2PatternReuse        float64 `json:"T2_pattern_reuse"`
	T3NewLogicDesign      float64 `json:"T3_new_logic_design"`
	T4CrossSystemImpact   float64 `json:"T4_cross_system_impact"`
	T5InvestigationHeavy  float64 `json:"T5_investigation_heavy"`
	T6DataBackfillHeavy   float64 `json:"T6_data_backfill_heavy"`
}

type WorkloadFeatures struct {
	ChangedModulesEstimate string `json:"changedModulesEstimate"`
	ChangedFilesEstimate   string `json:"changedFilesEstimate"`
	NeedQueryOrBackfill    string `json:"needQueryOrBackfill"`
}

type AILeverage struct {
	Score            float64 `json:"score"`
	AppliedReduction string  `json:"appliedReduction"` // "none" | "down_one_level"
	ReductionReason  string  `json:"reductionReason"`
}

type TicketDiff struct {
	ScopeDiff  float64 `json:"scopeDiff"`
	FileDiff   float64 `json:"fileDiff"`
	LogicDiff  float64 `json:"logicDiff"`
	RiskDiff   float64 `json:"riskDiff"`
	DiffTotal  float64 `json:"diffTotal"`
	DiffReason string  `json:"diffReason"`
}

type RelatedPR struct {
	Number       string  `json:"number"`
	Summary      string  `json:"summary"`
	FilesChanged int     `json:"filesChanged"`
	Commits      int     `json:"commits"`
	LeadTimeDays float64 `json:"leadTimeDays"`
}

type SimilarTicket struct {
	Key                         string                      `json:"key"`
	Summary                     string                      `json:"summary,omitempty"`
	Points                      float64                     `json:"points"`
	WorkloadSimilarityScore     float64                     `json:"workloadSimilarityScore"`
	WorkloadSimilarityBreakdown WorkloadSimilarityBreakdown `json:"workloadSimilarityBreakdown"`
	SimilarityReason            []string                    `json:"similarityReason"`
	Diff                        TicketDiff                  `json:"diff"`
	RelatedPRs                  []RelatedPR                 `json:"relatedPRs"`
}

type PointCandidate struct {
	Points          float64 `json:"points"`
	CandidateReason string  `json:"candidateReason"`
}

type PermissionGate struct {
	Passed   bool   `json:"passed"`
	Evidence string `json:"evidence"`
}

type RaisePermissionCheck struct {
	A PermissionGate `json:"A"`
	B PermissionGate `json:"B"`
	C PermissionGate `json:"C"`
}

// EstimationResult is the normalized estimation payload returned to clients.
// Field names on the wire match the model's expected output schema.
type EstimationResult struct {
	EstimatedPoints      StoryPoint            `json:"estimatedPoints"`
	Reasoning            string                `json:"reasoning"`
	ShouldSplit          bool                  `json:"shouldSplit"`
	SplitSuggestion      string                `json:"splitSuggestion"`
	Baseline             BaselineTicket        `json:"baseline"`
	WorkTypeBreakdown    *WorkTypeBreakdown    `json:"workTypeBreakdown,omitempty"`
	WorkloadFeatures     *WorkloadFeatures     `json:"workloadFeatures,omitempty"`
	AILeverage           *AILeverage           `json:"aiLeverage,omitempty"`
	SimilarTickets       []SimilarTicket       `json:"similarTickets"`
	PointCandidates      []PointCandidate      `json:"pointCandidates"`
	RaisePermissionCheck *RaisePermissionCheck `json:"raisePermissionCheck,omitempty"`
}

// Normalize clamps every bounded field onto its permitted range. It is a
// projection: applying it to an already-normalized result changes nothing.
func (r *EstimationResult) Normalize() {
	r.EstimatedPoints = NearestStoryPoint(float64(r.EstimatedPoints))
	if r.EstimatedPoints >= 13 {
		r.ShouldSplit = true
	}

	if r.Baseline.Key == "" {
		r.Baseline.Key = "N/A"
	}
	r.Baseline.WorkloadSimilarityScore = clampSimilarity(r.Baseline.WorkloadSimilarityScore)
	r.Baseline.WorkloadSimilarityBreakdown.normalize()
	if r.Baseline.SimilarityReason == nil {
		r.Baseline.SimilarityReason = []string{}
	}

	if r.AILeverage != nil && r.AILeverage.AppliedReduction != "down_one_level" {
		r.AILeverage.AppliedReduction = "none"
	}

	if r.SimilarTickets == nil {
		r.SimilarTickets = []SimilarTicket{}
	}
	for i := range r.SimilarTickets {
		t := &r.SimilarTickets[i]
		if t.Key == "" {
			t.Key = "N/A"
		}
		t.WorkloadSimilarityScore = clampSimilarity(t.WorkloadSimilarityScore)
		t.WorkloadSimilarityBreakdown.normalize()
		if t.SimilarityReason == nil {
			t.SimilarityReason = []string{}
		}
		t.Diff.ScopeDiff = clampDiff(t.Diff.ScopeDiff)
		t.Diff.FileDiff = clampDiff(t.Diff.FileDiff)
		t.Diff.LogicDiff = clampDiff(t.Diff.LogicDiff)
		t.Diff.RiskDiff = clampDiff(t.Diff.RiskDiff)
		if t.RelatedPRs == nil {
			t.RelatedPRs = []RelatedPR{}
		}
	}
	if r.PointCandidates == nil {
		r.PointCandidates = []PointCandidate{}
	}
}

func (b *WorkloadSimilarityBreakdown) normalize() {
	b.W1TypeMatch = clampRange(b.W1TypeMatch, 0, 6)
	b.W2ScopeMatch = clampRange(b.W2ScopeMatch, 0, 2)
	b.W3InvestigationMatch = clampRange(b.W3InvestigationMatch, 0, 1)
	b.W4PRWorkloadMatch = clampRange(b.W4PRWorkloadMatch, 0, 1)
	b.W5LexicalBonus = 0 // retired component
}

// clampSimilarity restricts to [0,10] with 0.1 resolution.
func clampSimilarity(v float64) float64 {
	return math.Min(10, math.Max(0, math.Round(v*10)/10))
}

// clampDiff restricts to integer steps in [-2,2].
func clampDiff(v float64) float64 {
	return math.Min(2, math.Max(-2, math.Round(v)))
}

func clampRange(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
