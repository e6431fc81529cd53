package profile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrNotFound is returned by a Store when the requested profile does not exist.
var ErrNotFound = errors.New("profile not found")

// Store is the read-only view of the profile collection used by matching.
// Implemented by storage.Store and storage.PGStore.
type Store interface {
	Get(ctx context.Context, id string) (Profile, error)
	ListAll(ctx context.Context) ([]Profile, error)
}

// Directory is implemented by stores that can list profile IDs without
// loading the profiles themselves.
type Directory interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// maxSummaryChars caps summaries for terminal and tool output.
const maxSummaryChars = 280

// Summarize returns a one-line description of p suitable for CLI listings and
// MCP tool output.
func Summarize(p Profile, now time.Time) string {
	var parts []string

	if p.Name != "" {
		parts = append(parts, p.Name)
	}
	if p.MBTI != "" {
		parts = append(parts, NormalizeMBTI(p.MBTI))
	}
	if age, ok := AgeAt(p.Birthdate, now); ok {
		parts = append(parts, fmt.Sprintf("%d", age))
	}
	if p.Location != "" {
		parts = append(parts, p.Location)
	}

	// Traits in sorted order for deterministic output.
	if len(p.Traits) > 0 {
		names := make([]string, 0, len(p.Traits))
		for name := range p.Traits {
			names = append(names, name)
		}
		sort.Strings(names)
		var traits []string
		for _, name := range names {
			traits = append(traits, fmt.Sprintf("%s %.0f", name, p.Traits[name]))
		}
		parts = append(parts, strings.Join(traits, ", "))
	}

	if p.Bio != "" {
		parts = append(parts, fmt.Sprintf("%q", p.Bio))
	}

	if len(parts) == 0 {
		return "Profile: not yet filled in."
	}

	summary := strings.Join(parts, " · ")
	if len(summary) > maxSummaryChars {
		// Ensure we don't split a multi-byte UTF-8 character.
		end := maxSummaryChars
		for end > 0 && !utf8.RuneStart(summary[end]) {
			end--
		}
		summary = summary[:end] + "..."
	}
	return summary
}
