package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kalambet/fuse/internal/matching"
	"github.com/kalambet/fuse/internal/profile"
	"github.com/kalambet/fuse/internal/scoring"
)

const (
	maxProfileBodySize = 1 << 20 // 1MB
	defaultListLimit   = 100
	maxListLimit       = 1000
	maxMatchLimit      = 500
)

// ProfileRepository is the store surface the HTTP API needs.
type ProfileRepository interface {
	profile.Store
	Save(ctx context.Context, p profile.Profile) (profile.Profile, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

type AppDeps struct {
	Store  ProfileRepository
	Scorer *scoring.Scorer
	Finder *matching.Finder
	Token  string
}

// NewAppHandler returns the FUSE REST API. Everything except /health requires
// the bearer token.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/profiles", handleListProfiles(deps))
		r.Post("/profiles", handleCreateProfile(deps))
		r.Get("/profiles/{id}", handleGetProfile(deps))
		r.Put("/profiles/{id}", handlePutProfile(deps))
		r.Delete("/profiles/{id}", handleDeleteProfile(deps))
		r.Get("/profiles/{id}/matches", handleMatches(deps))
		r.Post("/compatibility", handleCompatibility(deps))
		r.Get("/scoring/weights", handleWeights(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleListProfiles(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", defaultListLimit, maxListLimit)
		offset := parseIntParam(r, "offset", 0, 0)

		total, err := deps.Store.Count(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to count profiles: %v", err)
			return
		}
		all, err := deps.Store.ListAll(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list profiles: %v", err)
			return
		}

		start := min(offset, len(all))
		end := min(start+limit, len(all))
		page := all[start:end]
		if page == nil {
			page = []profile.Profile{}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"profiles": page,
			"total":    total,
		})
	}
}

func decodeProfile(w http.ResponseWriter, r *http.Request) (profile.Profile, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxProfileBodySize)
	defer r.Body.Close()

	var p profile.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return profile.Profile{}, false
	}
	p.MBTI = profile.NormalizeMBTI(p.MBTI)
	// Timestamps are stamped by the store; created_at orders ListAll.
	p.CreatedAt, p.UpdatedAt = time.Time{}, time.Time{}
	if err := p.Validate(); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid profile: %v", err)
		return profile.Profile{}, false
	}
	return p, true
}

func handleCreateProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := decodeProfile(w, r)
		if !ok {
			return
		}

		if p.ID == "" {
			p.ID = uuid.New().String()
		} else if _, err := deps.Store.Get(r.Context(), p.ID); err == nil {
			httpError(w, http.StatusConflict, "conflict_error", "profile %s already exists", p.ID)
			return
		} else if !errors.Is(err, profile.ErrNotFound) {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to check profile: %v", err)
			return
		}
		saved, err := deps.Store.Save(r.Context(), p)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save profile: %v", err)
			return
		}
		slog.Info("api: profile created", "id", saved.ID)
		writeJSON(w, http.StatusCreated, saved)
	}
}

func handleGetProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		p, err := deps.Store.Get(r.Context(), id)
		if errors.Is(err, profile.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "profile %s not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get profile: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handlePutProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		p, ok := decodeProfile(w, r)
		if !ok {
			return
		}
		if p.ID != "" && p.ID != id {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "body id %q does not match path id %q", p.ID, id)
			return
		}
		p.ID = id

		saved, err := deps.Store.Save(r.Context(), p)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save profile: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func handleDeleteProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		err := deps.Store.Delete(r.Context(), id)
		if errors.Is(err, profile.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "profile %s not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete profile: %v", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleMatches(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var c matching.Criteria
		var err error
		if c.MinAge, err = strictIntParam(r, "min_age"); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if c.MaxAge, err = strictIntParam(r, "max_age"); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		c.Location = r.URL.Query().Get("location")
		c.MBTI = r.URL.Query().Get("mbti")
		limit := parseIntParam(r, "limit", 0, maxMatchLimit)

		matches, err := deps.Finder.FindMatches(r.Context(), id, c)
		switch {
		case errors.Is(err, matching.ErrProfileNotFound):
			httpError(w, http.StatusNotFound, "not_found_error", "profile %s not found", id)
			return
		case errors.Is(err, matching.ErrInvalidCriteria):
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		case err != nil:
			httpError(w, http.StatusInternalServerError, "api_error", "failed to find matches: %v", err)
			return
		}

		total := len(matches)
		if limit > 0 && limit < total {
			matches = matches[:limit]
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"subject_id": id,
			"total":      total,
			"matches":    matches,
		})
	}
}

// CompatibilityRequest names two stored profiles, or carries them inline.
// Inline profiles take precedence over ids.
type CompatibilityRequest struct {
	SubjectID   string           `json:"subject_id"`
	CandidateID string           `json:"candidate_id"`
	Subject     *profile.Profile `json:"subject"`
	Candidate   *profile.Profile `json:"candidate"`
}

func handleCompatibility(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxProfileBodySize)
		defer r.Body.Close()

		var req CompatibilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		subject, code, err := resolveProfile(r.Context(), deps.Store, "subject", req.Subject, req.SubjectID)
		if err != nil {
			httpError(w, code, errTypeFor(code), "%v", err)
			return
		}
		candidate, code, err := resolveProfile(r.Context(), deps.Store, "candidate", req.Candidate, req.CandidateID)
		if err != nil {
			httpError(w, code, errTypeFor(code), "%v", err)
			return
		}

		writeJSON(w, http.StatusOK, deps.Scorer.Compute(subject, candidate))
	}
}

func resolveProfile(ctx context.Context, store profile.Store, role string, inline *profile.Profile, id string) (profile.Profile, int, error) {
	if inline != nil {
		p := *inline
		p.MBTI = profile.NormalizeMBTI(p.MBTI)
		if err := p.Validate(); err != nil {
			return profile.Profile{}, http.StatusBadRequest, errors.New("invalid " + role + ": " + err.Error())
		}
		return p, http.StatusOK, nil
	}
	if id == "" {
		return profile.Profile{}, http.StatusBadRequest, errors.New(role + " or " + role + "_id is required")
	}
	p, err := store.Get(ctx, id)
	if errors.Is(err, profile.ErrNotFound) {
		return profile.Profile{}, http.StatusNotFound, errors.New(role + " profile " + id + " not found")
	}
	if err != nil {
		return profile.Profile{}, http.StatusInternalServerError, err
	}
	return p, http.StatusOK, nil
}

func errTypeFor(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "invalid_request_error"
	case http.StatusNotFound:
		return "not_found_error"
	default:
		return "api_error"
	}
}

func handleWeights(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Scorer.Weights())
	}
}
