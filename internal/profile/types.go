package profile

import (
	"strconv"
	"strings"
	"time"
)

// Trait dimensions scored by the compatibility engine.
const (
	TraitExtroversion      = "extroversion"
	TraitOpenness          = "openness"
	TraitConscientiousness = "conscientiousness"
	TraitAgreeableness     = "agreeableness"
	TraitNeuroticism       = "neuroticism"
)

// TraitNames lists the trait dimensions in scoring order.
var TraitNames = []string{
	TraitExtroversion,
	TraitOpenness,
	TraitConscientiousness,
	TraitAgreeableness,
	TraitNeuroticism,
}

// MBTITypes lists the 16 Myers-Briggs type codes.
var MBTITypes = []string{
	"INTJ", "INTP", "ENTJ", "ENTP",
	"INFJ", "INFP", "ENFJ", "ENFP",
	"ISTJ", "ISFJ", "ESTJ", "ESFJ",
	"ISTP", "ISFP", "ESTP", "ESFP",
}

// Profile is the subset of a user's attributes relevant to matching.
// Empty strings and a nil Traits map mean the field is absent.
type Profile struct {
	ID        string             `json:"id"`
	Name      string             `json:"name,omitempty" validate:"max=120"`
	MBTI      string             `json:"mbti,omitempty" validate:"omitempty,mbti"`
	Traits    map[string]float64 `json:"personality_traits,omitempty" validate:"omitempty,dive,keys,trait,endkeys,gte=0,lte=100"`
	Bio       string             `json:"bio,omitempty" validate:"max=2000"`
	Location  string             `json:"location,omitempty" validate:"max=200"`
	Birthdate string             `json:"birthdate,omitempty" validate:"omitempty,birthdate"`
	CreatedAt time.Time          `json:"created_at,omitempty"`
	UpdatedAt time.Time          `json:"updated_at,omitempty"`
}

// birthdateLayouts are tried in order when parsing a birthdate.
var birthdateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-1-2",
	"2006/1/2",
	"2006-1",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// BirthYear extracts the calendar year from a birthdate string.
// ok is false for empty or unparseable input.
func BirthYear(birthdate string) (year int, ok bool) {
	s := strings.TrimSpace(birthdate)
	if s == "" {
		return 0, false
	}
	for _, layout := range birthdateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Year(), true
		}
	}
	// A bare four-digit year.
	if len(s) == 4 {
		if y, err := strconv.Atoi(s); err == nil && y > 0 {
			return y, true
		}
	}
	return 0, false
}

// AgeAt returns the year-only age (now's year minus birth year). Month and
// day are ignored.
func AgeAt(birthdate string, now time.Time) (int, bool) {
	year, ok := BirthYear(birthdate)
	if !ok {
		return 0, false
	}
	return now.Year() - year, true
}

// NormalizeMBTI trims and upper-cases a type code.
func NormalizeMBTI(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsMBTIType reports whether code is one of the 16 type codes.
func IsMBTIType(code string) bool {
	code = NormalizeMBTI(code)
	for _, t := range MBTITypes {
		if t == code {
			return true
		}
	}
	return false
}

// IsTraitName reports whether name is one of the scored trait dimensions.
func IsTraitName(name string) bool {
	for _, t := range TraitNames {
		if t == name {
			return true
		}
	}
	return false
}
