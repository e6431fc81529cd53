package scoring

import "github.com/kalambet/fuse/internal/profile"

const (
	neutralScore     = 50
	unknownPairScore = 30
)

// Matrix maps a subject MBTI type to candidate types and their compatibility
// score. Lookups are directional: m[a][b] need not equal m[b][a].
type Matrix map[string]map[string]int

// DefaultMatrix is the hand-authored compatibility table. Complementary
// intuitive pairings score highest and identical types score 50. The sensing
// rows list only their sensing counterparts (plus a few bridging types), so
// pairs missing from a row fall back to the unknown-pair score.
var DefaultMatrix = Matrix{
	"INTJ": {
		"INTJ": 50, "INTP": 70, "ENTJ": 75, "ENTP": 90,
		"INFJ": 80, "INFP": 75, "ENFJ": 70, "ENFP": 95,
		"ISTJ": 60, "ISFJ": 45, "ESTJ": 55, "ESFJ": 40,
		"ISTP": 60, "ISFP": 45, "ESTP": 50, "ESFP": 35,
	},
	"INTP": {
		"INTJ": 70, "INTP": 50, "ENTJ": 90, "ENTP": 75,
		"INFJ": 75, "INFP": 70, "ENFJ": 80, "ENFP": 85,
		"ISTJ": 55, "ISFJ": 40, "ESTJ": 85, "ESFJ": 45,
		"ISTP": 65, "ISFP": 50, "ESTP": 55, "ESFP": 40,
	},
	"ENTJ": {
		"INTJ": 75, "INTP": 95, "ENTJ": 50, "ENTP": 70,
		"INFJ": 70, "INFP": 90, "ENFJ": 65, "ENFP": 75,
		"ISTJ": 65, "ISFJ": 50, "ESTJ": 60, "ESFJ": 45,
		"ISTP": 70, "ISFP": 55, "ESTP": 55, "ESFP": 45,
	},
	"ENTP": {
		"INTJ": 95, "INTP": 75, "ENTJ": 70, "ENTP": 50,
		"INFJ": 95, "INFP": 80, "ENFJ": 75, "ENFP": 70,
		"ISTJ": 45, "ISFJ": 40, "ESTJ": 50, "ESFJ": 45,
		"ISTP": 65, "ISFP": 55, "ESTP": 60, "ESFP": 50,
	},
	"INFJ": {
		"INTJ": 80, "INTP": 75, "ENTJ": 70, "ENTP": 95,
		"INFJ": 50, "INFP": 75, "ENFJ": 70, "ENFP": 95,
		"ISTJ": 45, "ISFJ": 55, "ESTJ": 40, "ESFJ": 50,
		"ISTP": 45, "ISFP": 60, "ESTP": 40, "ESFP": 50,
	},
	"INFP": {
		"INTJ": 75, "INTP": 70, "ENTJ": 95, "ENTP": 80,
		"INFJ": 75, "INFP": 50, "ENFJ": 95, "ENFP": 75,
		"ISTJ": 40, "ISFJ": 55, "ESTJ": 35, "ESFJ": 50,
		"ISTP": 45, "ISFP": 65, "ESTP": 40, "ESFP": 55,
	},
	"ENFJ": {
		"INTJ": 70, "INTP": 80, "ENTJ": 65, "ENTP": 75,
		"INFJ": 70, "INFP": 95, "ENFJ": 50, "ENFP": 75,
		"ISTJ": 50, "ISFJ": 65, "ESTJ": 50, "ESFJ": 60,
		"ISTP": 45, "ISFP": 90, "ESTP": 45, "ESFP": 60,
	},
	"ENFP": {
		"INTJ": 90, "INTP": 85, "ENTJ": 75, "ENTP": 70,
		"INFJ": 95, "INFP": 75, "ENFJ": 75, "ENFP": 50,
		"ISTJ": 40, "ISFJ": 50, "ESTJ": 40, "ESFJ": 50,
		"ISTP": 50, "ISFP": 60, "ESTP": 50, "ESFP": 55,
	},
	"ISTJ": {
		"ISTJ": 50, "ISFJ": 65, "ESTJ": 70, "ESFJ": 65,
		"ISTP": 60, "ISFP": 55, "ESTP": 90, "ESFP": 95,
	},
	"ISFJ": {
		"ISTJ": 65, "ISFJ": 50, "ESTJ": 70, "ESFJ": 65,
		"ISTP": 55, "ISFP": 60, "ESTP": 90, "ESFP": 95,
	},
	"ESTJ": {
		"INTP": 85,
		"ISTJ": 70, "ISFJ": 70, "ESTJ": 50, "ESFJ": 65,
		"ISTP": 90, "ISFP": 95, "ESTP": 65, "ESFP": 60,
	},
	"ESFJ": {
		"ISTJ": 65, "ISFJ": 65, "ESTJ": 65, "ESFJ": 50,
		"ISTP": 95, "ISFP": 90, "ESTP": 60, "ESFP": 65,
	},
	"ISTP": {
		"ISTJ": 60, "ISFJ": 55, "ESTJ": 95, "ESFJ": 90,
		"ISTP": 50, "ISFP": 60, "ESTP": 70, "ESFP": 65,
	},
	"ISFP": {
		"ENFJ": 95,
		"ISTJ": 55, "ISFJ": 60, "ESTJ": 90, "ESFJ": 95,
		"ISTP": 60, "ISFP": 50, "ESTP": 65, "ESFP": 70,
	},
	"ESTP": {
		"ISTJ": 95, "ISFJ": 90, "ESTJ": 65, "ESFJ": 60,
		"ISTP": 70, "ISFP": 65, "ESTP": 50, "ESFP": 70,
	},
	"ESFP": {
		"ISTJ": 90, "ISFJ": 95, "ESTJ": 60, "ESFJ": 65,
		"ISTP": 65, "ISFP": 70, "ESTP": 70, "ESFP": 50,
	},
}

// Lookup returns the tabulated score for the directed pair (a, b).
func (m Matrix) Lookup(a, b string) (int, bool) {
	row, ok := m[a]
	if !ok {
		return 0, false
	}
	v, ok := row[b]
	return v, ok
}

// MBTIScore scores two type codes. Either code missing yields 50; two codes
// whose directed pair is not tabulated yield 30.
func (m Matrix) MBTIScore(a, b string) int {
	a, b = profile.NormalizeMBTI(a), profile.NormalizeMBTI(b)
	if a == "" || b == "" {
		return neutralScore
	}
	if v, ok := m.Lookup(a, b); ok {
		return clamp(v)
	}
	return unknownPairScore
}
