package scoring

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kalambet/fuse/internal/profile"
)

// Weights are the per-dimension multipliers for the overall score. They must
// be non-negative and sum to 1.0.
type Weights struct {
	MBTI      float64 `json:"mbti"`
	Traits    float64 `json:"personalityTraits"`
	Interests float64 `json:"interests"`
	Location  float64 `json:"location"`
	Age       float64 `json:"age"`
}

// DefaultWeights favours personality traits, then MBTI.
var DefaultWeights = Weights{
	MBTI:      0.25,
	Traits:    0.35,
	Interests: 0.20,
	Location:  0.10,
	Age:       0.10,
}

const weightTolerance = 1e-6

// ErrInvalidWeights is returned by New for negative weights or weights that
// do not sum to 1.0.
var ErrInvalidWeights = errors.New("invalid scoring weights")

// Validate checks that weights are non-negative and sum to 1.0.
func (w Weights) Validate() error {
	named := []struct {
		name string
		v    float64
	}{
		{"mbti", w.MBTI}, {"personalityTraits", w.Traits}, {"interests", w.Interests},
		{"location", w.Location}, {"age", w.Age},
	}
	for _, n := range named {
		if n.v < 0 || math.IsNaN(n.v) {
			return fmt.Errorf("%w: %s weight %v is not a non-negative number", ErrInvalidWeights, n.name, n.v)
		}
	}
	sum := w.MBTI + w.Traits + w.Interests + w.Location + w.Age
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %.4f, want 1.0", ErrInvalidWeights, sum)
	}
	return nil
}

// Clock supplies the current time for age computation.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// Config holds everything a Scorer needs. Zero fields fall back to
// DefaultWeights, DefaultMatrix and the wall clock.
type Config struct {
	Weights Weights
	Matrix  Matrix
	Clock   Clock
}

// Breakdown carries the five sub-scores, each in [0,100].
type Breakdown struct {
	MBTI      int `json:"mbti"`
	Traits    int `json:"personalityTraits"`
	Interests int `json:"interests"`
	Location  int `json:"location"`
	Age       int `json:"age"`
}

// Result is the outcome of scoring one ordered pair of profiles.
type Result struct {
	Overall   int       `json:"overall"`
	Breakdown Breakdown `json:"breakdown"`
	Reasoning []string  `json:"reasoning"`
}

// Scorer computes compatibility between two profiles. It holds no mutable
// state and is safe for concurrent use.
type Scorer struct {
	weights Weights
	matrix  Matrix
	clock   Clock
}

// New validates cfg and returns a Scorer.
func New(cfg Config) (*Scorer, error) {
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights
	}
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if cfg.Matrix == nil {
		cfg.Matrix = DefaultMatrix
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}
	return &Scorer{weights: cfg.Weights, matrix: cfg.Matrix, clock: cfg.Clock}, nil
}

// Weights returns the weights in use.
func (s *Scorer) Weights() Weights { return s.weights }

// Compute scores candidate b against subject a. The MBTI component is looked
// up in the a->b direction, so Compute(a, b) and Compute(b, a) may differ.
func (s *Scorer) Compute(a, b profile.Profile) Result {
	bd := Breakdown{
		MBTI:      s.matrix.MBTIScore(a.MBTI, b.MBTI),
		Traits:    TraitScore(a.Traits, b.Traits),
		Interests: InterestScore(a.Bio, b.Bio),
		Location:  LocationScore(a.Location, b.Location),
		Age:       AgeScore(a.Birthdate, b.Birthdate, s.clock.Now()),
	}

	w := s.weights
	overall := float64(bd.MBTI)*w.MBTI +
		float64(bd.Traits)*w.Traits +
		float64(bd.Interests)*w.Interests +
		float64(bd.Location)*w.Location +
		float64(bd.Age)*w.Age

	return Result{
		Overall:   clamp(int(math.Round(overall))),
		Breakdown: bd,
		Reasoning: Reasons(bd),
	}
}

// FallbackReason is emitted when no dimension crosses a reasoning threshold.
const FallbackReason = "Basic compatibility found"

// Reasons describes the strong dimensions of bd, in dimension order.
func Reasons(bd Breakdown) []string {
	var out []string

	switch {
	case bd.MBTI >= 80:
		out = append(out, "Excellent MBTI compatibility")
	case bd.MBTI >= 60:
		out = append(out, "Good MBTI compatibility")
	}

	switch {
	case bd.Traits >= 80:
		out = append(out, "Highly compatible personality traits")
	case bd.Traits >= 60:
		out = append(out, "Compatible personality traits")
	}

	if bd.Interests >= 70 {
		out = append(out, "Strong shared interests")
	}

	switch {
	case bd.Location >= 80:
		out = append(out, "Same location")
	case bd.Location >= 60:
		out = append(out, "Close locations")
	}

	if bd.Age >= 80 {
		out = append(out, "Similar ages")
	}

	if len(out) == 0 {
		out = append(out, FallbackReason)
	}
	return out
}

// Now reports the scorer's clock, so callers filtering by age agree with the
// age sub-score.
func (s *Scorer) Now() time.Time { return s.clock.Now() }
