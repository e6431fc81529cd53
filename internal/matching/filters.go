package matching

import (
	"strings"
	"time"

	"github.com/kalambet/fuse/internal/profile"
)

// Step records what a filter did to the candidate pool.
type Step struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Reason  string `json:"reason,omitempty"`
	Initial int    `json:"initial"`
	Dropped int    `json:"dropped"`
	Left    int    `json:"left"`
}

// Filter is one named pre-filter over the candidate pool. A disabled filter
// stays in the chain and passes candidates through unchanged.
type Filter interface {
	Name() string
	IsEnabled() bool
	// DisabledReason explains a disabled filter; empty when enabled.
	DisabledReason() string
	Apply(c Criteria, now time.Time, candidates []profile.Profile) []profile.Profile
}

// runFilters applies each enabled filter in order and reports every step,
// including the disabled ones.
func runFilters(filters []Filter, c Criteria, now time.Time, candidates []profile.Profile) ([]profile.Profile, []Step) {
	steps := make([]Step, 0, len(filters))
	for _, f := range filters {
		initial := len(candidates)
		if !f.IsEnabled() {
			steps = append(steps, Step{Name: f.Name(), Reason: f.DisabledReason(), Initial: initial, Left: initial})
			continue
		}
		candidates = f.Apply(c, now, candidates)
		steps = append(steps, Step{
			Name:    f.Name(),
			Enabled: true,
			Initial: initial,
			Dropped: initial - len(candidates),
			Left:    len(candidates),
		})
	}
	return candidates, steps
}

type ageFilter struct{}

// NewAgeFilter drops candidates whose year-only age falls outside
// [MinAge, MaxAge]. Bounds left at zero are not applied, and candidates
// without a usable birthdate are kept.
func NewAgeFilter() Filter {
	return &ageFilter{}
}

func (f *ageFilter) Name() string { return "age" }

func (f *ageFilter) IsEnabled() bool { return true }

func (f *ageFilter) DisabledReason() string { return "" }

func (f *ageFilter) Apply(c Criteria, now time.Time, candidates []profile.Profile) []profile.Profile {
	if c.MinAge == 0 && c.MaxAge == 0 {
		return candidates
	}
	kept := make([]profile.Profile, 0, len(candidates))
	for _, p := range candidates {
		age, ok := profile.AgeAt(p.Birthdate, now)
		if ok {
			if c.MinAge > 0 && age < c.MinAge {
				continue
			}
			if c.MaxAge > 0 && age > c.MaxAge {
				continue
			}
		}
		kept = append(kept, p)
	}
	return kept
}

type locationFilter struct {
	enabled bool
	why     string
}

// NewLocationFilter keeps candidates whose location contains the requested
// location, case-insensitively. It is disabled unless enabled is true.
func NewLocationFilter(enabled bool) Filter {
	f := &locationFilter{enabled: enabled}
	if !enabled {
		f.why = "location filtering is off (matching.location_filter)"
	}
	return f
}

func (f *locationFilter) Name() string { return "location" }

func (f *locationFilter) IsEnabled() bool { return f.enabled }

func (f *locationFilter) DisabledReason() string { return f.why }

func (f *locationFilter) Apply(c Criteria, _ time.Time, candidates []profile.Profile) []profile.Profile {
	want := strings.ToLower(strings.TrimSpace(c.Location))
	if want == "" {
		return candidates
	}
	kept := make([]profile.Profile, 0, len(candidates))
	for _, p := range candidates {
		if strings.Contains(strings.ToLower(p.Location), want) {
			kept = append(kept, p)
		}
	}
	return kept
}
