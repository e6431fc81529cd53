package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kalambet/fuse/internal/profile"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DatabaseFile is the SQLite file name created inside the data directory.
const DatabaseFile = "fuse.db"

// Store is the embedded profile store backed by SQLite.
type Store struct {
	db *sql.DB
}

// sqlitePragmas run on the single pooled connection right after it opens.
var sqlitePragmas = []string{
	"PRAGMA busy_timeout = 5000",
	"PRAGMA journal_mode = WAL",
	"PRAGMA foreign_keys = ON",
}

// Open opens (or creates) fuse.db in dataDir and brings its schema up to
// date. Pass ":memory:" for a throwaway database.
func Open(dataDir string) (*Store, error) {
	dsn := ":memory:"
	if dataDir != ":memory:" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, DatabaseFile)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dsn, err)
	}
	// One connection: ":memory:" databases are per-connection, and SQLite
	// serialises writers anyway.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	for _, pragma := range sqlitePragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := s.migrate(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies the embedded migrations missing from schema_version, each
// in its own transaction.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	pending, err := loadMigrations(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	applied, err := s.AppliedMigrations()
	if err != nil {
		return fmt.Errorf("listing applied migrations: %w", err)
	}

	for _, m := range pending {
		if slices.Contains(applied, m.version) {
			continue
		}
		if err := s.applyMigration(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) applyMigration(m migration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning migration %s: %w", m.name, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.body); err != nil {
		return fmt.Errorf("applying migration %s: %w", m.name, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
		return fmt.Errorf("recording migration %s: %w", m.name, err)
	}
	return tx.Commit()
}

// AppliedMigrations returns the applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

const profileColumns = `id, name, mbti, traits, bio, location, birthdate, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (profile.Profile, error) {
	var p profile.Profile
	var traits *string
	var createdAt, updatedAt string
	if err := row.Scan(&p.ID, &p.Name, &p.MBTI, &traits, &p.Bio, &p.Location, &p.Birthdate, &createdAt, &updatedAt); err != nil {
		return profile.Profile{}, err
	}

	var err error
	if p.Traits, err = decodeTraits(traits); err != nil {
		return profile.Profile{}, fmt.Errorf("profile %s: %w", p.ID, err)
	}
	if p.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return profile.Profile{}, fmt.Errorf("profile %s: %w", p.ID, err)
	}
	if p.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return profile.Profile{}, fmt.Errorf("profile %s: %w", p.ID, err)
	}
	return p, nil
}

// Get returns the profile with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (profile.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Profile{}, ErrNotFound
	}
	if err != nil {
		return profile.Profile{}, err
	}
	return p, nil
}

// ListAll returns every profile, oldest first.
func (s *Store) ListAll(ctx context.Context) ([]profile.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []profile.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// ListIDs returns every profile id in ListAll order.
func (s *Store) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM profiles ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Save inserts or replaces p. CreatedAt is kept from the existing row on
// update; UpdatedAt is always stamped. The stored profile is returned.
func (s *Store) Save(ctx context.Context, p profile.Profile) (profile.Profile, error) {
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

	var createdAt string
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, mbti = excluded.mbti, traits = excluded.traits,
			bio = excluded.bio, location = excluded.location, birthdate = excluded.birthdate,
			updated_at = excluded.updated_at
		RETURNING created_at`,
		p.ID, p.Name, p.MBTI, traits, p.Bio, p.Location, p.Birthdate,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	).Scan(&createdAt)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("saving profile %s: %w", p.ID, err)
	}
	if p.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return profile.Profile{}, err
	}
	return p, nil
}

// Delete removes the profile with the given id, or returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored profiles.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n)
	return n, err
}
