package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kalambet/fuse/internal/profile"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS profiles (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	mbti       TEXT NOT NULL DEFAULT '',
	traits     JSONB,
	bio        TEXT NOT NULL DEFAULT '',
	location   TEXT NOT NULL DEFAULT '',
	birthdate  TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_profiles_created ON profiles(created_at, id);`

const pgProfileColumns = `id, name, mbti, traits::text, bio, location, birthdate, created_at, updated_at`

// PGStore is the profile store backed by a PostgreSQL connection pool.
type PGStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL, verifies the connection and ensures
// the profiles table exists.
func OpenPostgres(ctx context.Context, databaseURL string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PGStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func scanPGProfile(row pgx.Row) (profile.Profile, error) {
	var p profile.Profile
	var traits *string
	if err := row.Scan(&p.ID, &p.Name, &p.MBTI, &traits, &p.Bio, &p.Location, &p.Birthdate, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return profile.Profile{}, err
	}
	var err error
	if p.Traits, err = decodeTraits(traits); err != nil {
		return profile.Profile{}, fmt.Errorf("profile %s: %w", p.ID, err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

// Get returns the profile with the given id, or ErrNotFound.
func (s *PGStore) Get(ctx context.Context, id string) (profile.Profile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgProfileColumns+` FROM profiles WHERE id = $1`, id)
	p, err := scanPGProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return profile.Profile{}, ErrNotFound
	}
	if err != nil {
		return profile.Profile{}, fmt.Errorf("getting profile %s: %w", id, err)
	}
	return p, nil
}

// ListAll returns every profile, oldest first.
func (s *PGStore) ListAll(ctx context.Context) ([]profile.Profile, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+pgProfileColumns+` FROM profiles ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	defer rows.Close()

	var results []profile.Profile
	for rows.Next() {
		p, err := scanPGProfile(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// ListIDs returns every profile id in ListAll order.
func (s *PGStore) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM profiles ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing profile ids: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Save inserts or replaces p, keeping the original CreatedAt on update.
func (s *PGStore) Save(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	if p.ID == "" {
		return profile.Profile{}, errors.New("saving profile: empty id")
	}
	traits, err := encodeTraits(p.Traits)
	if err != nil {
		return profile.Profile{}, err
	}

	now := time.Now().UTC().Truncate(time.Second)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	err = s.pool.QueryRow(ctx, `
		INSERT INTO profiles (id, name, mbti, traits, bio, location, birthdate, created_at, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, mbti = EXCLUDED.mbti, traits = EXCLUDED.traits,
			bio = EXCLUDED.bio, location = EXCLUDED.location, birthdate = EXCLUDED.birthdate,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at`,
		p.ID, p.Name, p.MBTI, traits, p.Bio, p.Location, p.Birthdate, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.CreatedAt)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("saving profile %s: %w", p.ID, err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

// Delete removes the profile with the given id, or returns ErrNotFound.
func (s *PGStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting profile %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored profiles.
func (s *PGStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting profiles: %w", err)
	}
	return n, nil
}
