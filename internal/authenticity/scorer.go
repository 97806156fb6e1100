package authenticity

import "math"

const (
	voteWeight    = 0.7
	commentWeight = 0.3

	// Caps applied before the logarithm so outlier deals cannot push a
	// component past its intended range.
	voteLogCap    = 50
	commentLogCap = 20

	neutralScore = 0.5
	// Zero comments sit slightly below neutral: no discussion means no
	// community scrutiny happened, while zero votes alone is uninformative.
	zeroCommentScore = 0.48
)

// Scorer turns community signals (votes, comments) into a bounded
// authenticity score. It is a pure computation with no dependencies.
type Scorer struct {
	minVotesThreshold    int
	minCommentsThreshold int
}

// NewScorer builds a Scorer; non-positive thresholds fall back to the
// defaults (5 votes, 2 comments).
func NewScorer(minVotesThreshold, minCommentsThreshold int) *Scorer {
	if minVotesThreshold <= 0 {
		minVotesThreshold = 5
	}
	if minCommentsThreshold <= 0 {
		minCommentsThreshold = 2
	}
	return &Scorer{
		minVotesThreshold:    minVotesThreshold,
		minCommentsThreshold: minCommentsThreshold,
	}
}

// Score combines a vote component and a comment component into a single value
// in [0,1]. With neither signal present it returns exactly 0.5. When only one
// signal is present, the absent one contributes its neutral midpoint so the
// deal is not penalized twice for a single missing field.
func (s *Scorer) Score(votes, comments *int) float64 {
	if votes == nil && comments == nil {
		return neutralScore
	}

	voteComponent := neutralScore
	if votes != nil {
		voteComponent = s.voteComponent(*votes)
	}

	commentComponent := neutralScore
	if comments != nil {
		commentComponent = s.commentComponent(*comments)
	}

	combined := voteWeight*voteComponent + commentWeight*commentComponent
	return clamp01(combined)
}

// IsQuestionable reports whether a score falls below the configured
// authenticity threshold.
func IsQuestionable(score, threshold float64) bool {
	return score < threshold
}

func (s *Scorer) voteComponent(votes int) float64 {
	switch {
	case votes < 0:
		// Each negative vote subtracts 0.1, floored at zero.
		return math.Max(0.0, neutralScore+float64(votes)*0.1)
	case votes == 0:
		return neutralScore
	case votes < s.minVotesThreshold:
		// Linear ramp toward the threshold, capped at the value the log
		// regime yields there so the component never decreases as votes grow.
		ramp := 0.6 + float64(votes)*0.05
		return math.Min(ramp, s.voteLogScore(s.minVotesThreshold))
	default:
		return s.voteLogScore(votes)
	}
}

func (s *Scorer) voteLogScore(votes int) float64 {
	capped := math.Min(float64(votes), voteLogCap)
	return math.Min(1.0, 0.6+math.Log(capped+1)*0.1)
}

func (s *Scorer) commentComponent(comments int) float64 {
	switch {
	case comments <= 0:
		return zeroCommentScore
	case comments < s.minCommentsThreshold:
		ramp := 0.52 + float64(comments)*0.02
		return math.Min(ramp, s.commentLogScore(s.minCommentsThreshold))
	default:
		return s.commentLogScore(comments)
	}
}

func (s *Scorer) commentLogScore(comments int) float64 {
	capped := math.Min(float64(comments), commentLogCap)
	return math.Min(1.0, 0.55+math.Log(capped+1)*0.08)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
