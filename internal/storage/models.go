package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kalambet/fuse/internal/profile"
)

// ErrNotFound is returned when a requested profile does not exist.
var ErrNotFound = profile.ErrNotFound

// encodeTraits stores a nil map as SQL NULL so absence survives a round trip.
func encodeTraits(traits map[string]float64) (*string, error) {
	if traits == nil {
		return nil, nil
	}
	b, err := json.Marshal(traits)
	if err != nil {
		return nil, fmt.Errorf("encoding traits: %w", err)
	}
	s := string(b)
	return &s, nil
}

func decodeTraits(raw *string) (map[string]float64, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	traits := map[string]float64{}
	if err := json.Unmarshal([]byte(*raw), &traits); err != nil {
		return nil, fmt.Errorf("decoding traits: %w", err)
	}
	return traits, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(field, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", field, err)
	}
	return t, nil
}

// Repository is the full profile store used by the server and CLI. Both the
// SQLite Store and the PostgreSQL PGStore implement it.
type Repository interface {
	profile.Store
	profile.Directory
	Save(ctx context.Context, p profile.Profile) (profile.Profile, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	Close() error
}

var (
	_ Repository = (*Store)(nil)
	_ Repository = (*PGStore)(nil)
)
