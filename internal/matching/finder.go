package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/fuse/internal/profile"
	"github.com/kalambet/fuse/internal/scoring"
)

const defaultConcurrency = 4

var (
	// ErrProfileNotFound is returned when the subject of a search does not exist.
	ErrProfileNotFound = errors.New("subject profile not found")
	// ErrInvalidCriteria wraps every criteria validation failure.
	ErrInvalidCriteria = errors.New("invalid criteria")
)

// Criteria narrows the candidate pool. Zero values mean the criterion was
// not supplied.
type Criteria struct {
	MinAge   int    `json:"min_age,omitempty" validate:"gte=0,lte=150"`
	MaxAge   int    `json:"max_age,omitempty" validate:"gte=0,lte=150"`
	Location string `json:"location,omitempty" validate:"max=200"`
	// MBTI is accepted and validated but does not narrow the pool.
	MBTI string `json:"mbti,omitempty" validate:"omitempty,mbti"`
}

var validate = profile.NewValidator()

// Validate checks field bounds and that MaxAge is not below MinAge when both
// are set.
func (c Criteria) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q", ErrInvalidCriteria, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidCriteria, err)
	}
	if c.MinAge > 0 && c.MaxAge > 0 && c.MaxAge < c.MinAge {
		return fmt.Errorf("%w: max_age %d is below min_age %d", ErrInvalidCriteria, c.MaxAge, c.MinAge)
	}
	return nil
}

// Match is one ranked candidate.
type Match struct {
	CandidateID string          `json:"candidate_id"`
	Name        string          `json:"name,omitempty"`
	Result      scoring.Result  `json:"result"`
	Profile     profile.Profile `json:"-"`
}

// Options tune how the candidate pool is loaded and filtered.
type Options struct {
	// Concurrency bounds parallel per-candidate fetches in lazy mode.
	Concurrency int
	// LazyFetch lists candidate IDs and fetches each profile separately when
	// the store supports it.
	LazyFetch bool
	// LocationFilter enables the location pre-filter.
	LocationFilter bool
}

// Finder ranks candidates for a subject profile.
type Finder struct {
	store   profile.Store
	scorer  *scoring.Scorer
	opts    Options
	filters []Filter
}

// NewFinder returns a Finder backed by store. The location filter stays in
// the chain but is disabled unless opts.LocationFilter is set.
func NewFinder(store profile.Store, scorer *scoring.Scorer, opts Options) *Finder {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Finder{
		store:  store,
		scorer: scorer,
		opts:   opts,
		filters: []Filter{
			NewAgeFilter(),
			NewLocationFilter(opts.LocationFilter),
		},
	}
}

// FindMatches scores every eligible candidate against the subject and returns
// them ordered by overall score, highest first. Equal scores keep pool order.
func (f *Finder) FindMatches(ctx context.Context, subjectID string, c Criteria) ([]Match, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	subject, err := f.store.Get(ctx, subjectID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, subjectID)
		}
		return nil, fmt.Errorf("fetching subject %s: %w", subjectID, err)
	}

	pool, err := f.candidates(ctx, subject.ID)
	if err != nil {
		return nil, err
	}

	survivors, steps := runFilters(f.filters, c, f.scorer.Now(), pool)
	for _, s := range steps {
		if !s.Enabled {
			slog.Debug("matching: filter disabled", "filter", s.Name, "reason", s.Reason)
			continue
		}
		slog.Debug("matching: filter applied", "filter", s.Name, "dropped", s.Dropped, "left", s.Left)
	}

	matches := make([]Match, 0, len(survivors))
	for _, cand := range survivors {
		matches = append(matches, Match{
			CandidateID: cand.ID,
			Name:        cand.Name,
			Result:      f.scorer.Compute(subject, cand),
			Profile:     cand,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Result.Overall > matches[j].Result.Overall
	})
	return matches, nil
}

// candidates loads the pool without the subject, in store order.
func (f *Finder) candidates(ctx context.Context, subjectID string) ([]profile.Profile, error) {
	if dir, ok := f.store.(profile.Directory); ok && f.opts.LazyFetch {
		return f.fetchEach(ctx, dir, subjectID)
	}

	all, err := f.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}
	pool := make([]profile.Profile, 0, len(all))
	for _, p := range all {
		if p.ID == subjectID {
			continue
		}
		pool = append(pool, p)
	}
	return pool, nil
}

// fetchEach lists candidate IDs and fetches each profile concurrently. A
// failed fetch drops that candidate only.
func (f *Finder) fetchEach(ctx context.Context, dir profile.Directory, subjectID string) ([]profile.Profile, error) {
	ids, err := dir.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing candidate ids: %w", err)
	}

	fetched := make([]*profile.Profile, len(ids))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Concurrency)

	for i, id := range ids {
		if id == subjectID {
			continue
		}
		g.Go(func() error {
			p, err := f.store.Get(gCtx, id)
			if err != nil {
				slog.Warn("matching: candidate fetch failed, skipping", "candidate", id, "error", err)
				return nil
			}
			fetched[i] = &p
			return nil
		})
	}
	_ = g.Wait() // fetches never fail the group

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pool := make([]profile.Profile, 0, len(ids))
	for _, p := range fetched {
		if p != nil {
			pool = append(pool, *p)
		}
	}
	return pool, nil
}
