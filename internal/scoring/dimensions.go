package scoring

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kalambet/fuse/internal/profile"
)

// TraitScore averages per-dimension similarity (100 minus the absolute
// difference) over the trait dimensions both maps carry.
func TraitScore(a, b map[string]float64) int {
	if a == nil || b == nil {
		return neutralScore
	}

	var sum float64
	var n int
	for _, dim := range profile.TraitNames {
		va, okA := a[dim]
		vb, okB := b[dim]
		if !okA || !okB {
			continue
		}
		sum += math.Max(0, 100-math.Abs(va-vb))
		n++
	}
	if n == 0 {
		return neutralScore
	}
	return clamp(int(math.Round(sum / float64(n))))
}

// InterestScore measures bio keyword overlap. Words of A longer than three
// characters that also occur in B count once per occurrence in A.
func InterestScore(bioA, bioB string) int {
	if bioA == "" || bioB == "" {
		return neutralScore
	}

	wordsA := strings.Fields(strings.ToLower(bioA))
	wordsB := strings.Fields(strings.ToLower(bioB))

	inB := make(map[string]struct{}, len(wordsB))
	for _, w := range wordsB {
		inB[w] = struct{}{}
	}

	common := 0
	for _, w := range wordsA {
		if utf8.RuneCountInString(w) <= 3 {
			continue
		}
		if _, ok := inB[w]; ok {
			common++
		}
	}

	denom := max(len(wordsA), len(wordsB), 1)
	similarity := float64(common) / float64(denom) * 100
	return clamp(min(100, int(math.Round(similarity*2))))
}

// LocationScore compares free-text locations: exact match, containment, then
// a shared comma-separated component.
func LocationScore(locA, locB string) int {
	if locA == "" || locB == "" {
		return neutralScore
	}

	a, b := strings.ToLower(locA), strings.ToLower(locB)
	if a == b {
		return 100
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 80
	}

	partsB := make(map[string]struct{})
	for _, p := range strings.Split(b, ",") {
		p = strings.TrimSpace(p)
		if utf8.RuneCountInString(p) > 2 {
			partsB[p] = struct{}{}
		}
	}
	for _, p := range strings.Split(a, ",") {
		p = strings.TrimSpace(p)
		if utf8.RuneCountInString(p) <= 2 {
			continue
		}
		if _, ok := partsB[p]; ok {
			return 70
		}
	}
	return 30
}

// AgeScore decays with the year-only age gap. Missing or unparseable
// birthdates yield the neutral score.
func AgeScore(birthdateA, birthdateB string, now time.Time) int {
	ageA, okA := profile.AgeAt(birthdateA, now)
	ageB, okB := profile.AgeAt(birthdateB, now)
	if !okA || !okB {
		return neutralScore
	}

	diff := ageA - ageB
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= 2:
		return 100
	case diff <= 5:
		return 90
	case diff <= 10:
		return 75
	case diff <= 15:
		return 60
	case diff <= 20:
		return 40
	default:
		return 20
	}
}

func clamp(v int) int {
	return max(0, min(100, v))
}
