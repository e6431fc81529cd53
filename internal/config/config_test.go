package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
)

// mockKeychain is a test double for the secret store.
type mockKeychain struct {
	values map[string]string
	err    error
	sets   int
}

func (m *mockKeychain) Get(service, account string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.values[service+"/"+account]
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", errSecretNotFound, service, account)
	}
	return v, nil
}

func (m *mockKeychain) Set(service, account, value string) error {
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[service+"/"+account] = value
	m.sets++
	return nil
}

// mockBackend is an in-memory ConfigBackend.
type mockBackend struct {
	data map[string]string
}

func newMockBackend(kv map[string]string) *mockBackend {
	if kv == nil {
		kv = map[string]string{}
	}
	return &mockBackend{data: kv}
}

func (b *mockBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	return v, ok, nil
}

func (b *mockBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, true, fmt.Errorf("%w: %v", errInvalidValue, err)
	}
	return i, true, nil
}

func (b *mockBackend) GetFloat(key string) (float64, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, true, fmt.Errorf("%w: %v", errInvalidValue, err)
	}
	return f, true, nil
}

func (b *mockBackend) GetBool(key string) (bool, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return false, false, nil
	}
	bv, err := strconv.ParseBool(v)
	if err != nil {
		return false, true, fmt.Errorf("%w: %v", errInvalidValue, err)
	}
	return bv, true, nil
}

func (b *mockBackend) SetString(key, val string) error {
	b.data[key] = val
	return nil
}

func (b *mockBackend) SetInt(key string, val int) error {
	b.data[key] = strconv.Itoa(val)
	return nil
}

func (b *mockBackend) SetFloat(key string, val float64) error {
	b.data[key] = strconv.FormatFloat(val, 'f', -1, 64)
	return nil
}

func (b *mockBackend) SetBool(key string, val bool) error {
	b.data[key] = strconv.FormatBool(val)
	return nil
}

func (b *mockBackend) Delete(key string) error {
	delete(b.data, key)
	return nil
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

// TestDefaults verifies all default values are applied with an empty backend.
func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(newMockBackend(nil), &mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want 4100", cfg.Server.Port)
	}
	if cfg.Storage.Driver != DriverSQLite {
		t.Errorf("Storage.Driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("Storage.DataDir is empty")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Matching.Concurrency != 4 || cfg.Matching.LazyFetch || cfg.Matching.LocationFilter {
		t.Errorf("Matching = %+v, want concurrency 4 and flags off", cfg.Matching)
	}
	w := cfg.Scoring
	if w.WeightMBTI != 0.25 || w.WeightTraits != 0.35 || w.WeightInterests != 0.20 || w.WeightLocation != 0.10 || w.WeightAge != 0.10 {
		t.Errorf("Scoring = %+v, want default weights", w)
	}
}

// TestBackendValues verifies every key type is read from the backend.
func TestBackendValues(t *testing.T) {
	clearEnv(t)

	b := newMockBackend(map[string]string{
		"server.port":              "5000",
		"storage.data_dir":         "/tmp/fuse-test",
		"log.level":                "debug",
		"matching.concurrency":     "8",
		"matching.lazy_fetch":      "true",
		"matching.location_filter": "1",
		"scoring.weight_mbti":      "0.5",
		"scoring.weight_traits":    "0.15",
	})
	cfg, err := loadWith(b, &mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Storage.DataDir != "/tmp/fuse-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.Matching.Concurrency != 8 || !cfg.Matching.LazyFetch || !cfg.Matching.LocationFilter {
		t.Errorf("Matching = %+v", cfg.Matching)
	}
	if cfg.Scoring.WeightMBTI != 0.5 || cfg.Scoring.WeightTraits != 0.15 {
		t.Errorf("Scoring = %+v", cfg.Scoring)
	}
}

// TestBadBoolKeepsDefault verifies unparseable values fall back to defaults.
func TestBadBoolKeepsDefault(t *testing.T) {
	clearEnv(t)

	b := newMockBackend(map[string]string{"matching.location_filter": "sometimes"})
	cfg, err := loadWith(b, &mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Matching.LocationFilter {
		t.Error("LocationFilter enabled by unparseable value")
	}
}

// TestEnvOverride verifies that environment variables override backend values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("FUSE_SERVER_PORT", "6000")
	t.Setenv("FUSE_MATCHING_LOCATION_FILTER", "true")
	t.Setenv("FUSE_SCORING_WEIGHT_AGE", "0.3")

	b := newMockBackend(map[string]string{"server.port": "5000"})
	cfg, err := loadWith(b, &mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
	if !cfg.Matching.LocationFilter {
		t.Error("LocationFilter not enabled by env")
	}
	if cfg.Scoring.WeightAge != 0.3 {
		t.Errorf("WeightAge = %v, want 0.3", cfg.Scoring.WeightAge)
	}
}

// TestPostgresRequiresDatabaseURL verifies a clear error when the URL is missing everywhere.
func TestPostgresRequiresDatabaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("FUSE_STORAGE_DRIVER", "postgres")

	_, err := loadWith(newMockBackend(nil), &mockKeychain{})
	if err == nil {
		t.Fatal("expected error for missing database URL, got nil")
	}
	if !strings.Contains(err.Error(), "missing required config") {
		t.Errorf("error = %q, want it to mention missing required config", err)
	}
}

// TestDatabaseURLKeychainFallback verifies the secret store is consulted when env is empty.
func TestDatabaseURLKeychainFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("FUSE_STORAGE_DRIVER", "Postgres")

	kc := &mockKeychain{values: map[string]string{"fuse/database_url": "postgres://kc"}}
	cfg, err := loadWith(newMockBackend(nil), kc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.DatabaseURL != "postgres://kc" {
		t.Errorf("DatabaseURL = %q, want postgres://kc", cfg.Storage.DatabaseURL)
	}
	if cfg.Storage.Driver != DriverPostgres {
		t.Errorf("Driver = %q, want normalized postgres", cfg.Storage.Driver)
	}
}

// TestDatabaseURLFromEnv verifies the env var wins over the secret store.
func TestDatabaseURLFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("FUSE_STORAGE_DRIVER", "postgres")
	t.Setenv("FUSE_DATABASE_URL", "postgres://env")

	kc := &mockKeychain{values: map[string]string{"fuse/database_url": "postgres://kc"}}
	cfg, err := loadWith(newMockBackend(nil), kc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.DatabaseURL != "postgres://env" {
		t.Errorf("DatabaseURL = %q, want postgres://env", cfg.Storage.DatabaseURL)
	}
}

func TestInvalidDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("FUSE_STORAGE_DRIVER", "mongo")

	if _, err := loadWith(newMockBackend(nil), &mockKeychain{}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestShowAllHidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Storage.DatabaseURL = "postgres://secret"

	for _, ki := range ShowAll(cfg) {
		if ki.Key == "storage.database_url" || strings.Contains(ki.Value, "secret") {
			t.Errorf("ShowAll leaked secret key %s=%s", ki.Key, ki.Value)
		}
	}
	for _, k := range ValidKeys() {
		if k == "storage.database_url" {
			t.Error("ValidKeys lists a secret key")
		}
	}
}

func TestSetKey(t *testing.T) {
	b := newMockBackend(nil)

	if err := setKeyWith(b, "server.port", "4200"); err != nil {
		t.Fatalf("set int: %v", err)
	}
	if err := setKeyWith(b, "matching.lazy_fetch", "yes"); err == nil {
		t.Error("expected error for invalid bool")
	}
	if err := setKeyWith(b, "matching.lazy_fetch", "TRUE"); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if err := setKeyWith(b, "scoring.weight_mbti", "0.30"); err != nil {
		t.Fatalf("set float: %v", err)
	}
	if err := setKeyWith(b, "storage.database_url", "x"); err == nil {
		t.Error("expected error setting a secret")
	}
	if err := setKeyWith(b, "no.such.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}

	if b.data["server.port"] != "4200" || b.data["matching.lazy_fetch"] != "true" || b.data["scoring.weight_mbti"] != "0.3" {
		t.Errorf("backend data = %v", b.data)
	}
}

func TestGetAPIToken(t *testing.T) {
	kc := &mockKeychain{}

	first, err := GetAPIToken(kc)
	if err != nil {
		t.Fatalf("GetAPIToken: %v", err)
	}
	if len(first) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(first))
	}

	second, err := GetAPIToken(kc)
	if err != nil {
		t.Fatalf("GetAPIToken (second): %v", err)
	}
	if first != second {
		t.Error("token regenerated on second call")
	}
	if kc.sets != 1 {
		t.Errorf("token stored %d times, want 1", kc.sets)
	}
}

func TestGetAPITokenStoreError(t *testing.T) {
	kc := &mockKeychain{err: errors.New("keychain locked")}

	if _, err := GetAPIToken(kc); err == nil {
		t.Fatal("expected error when the secret store is unreadable")
	}
	if kc.sets != 0 {
		t.Errorf("token stored %d times after read failure, want 0", kc.sets)
	}
}

func TestRotateAPIToken(t *testing.T) {
	kc := &mockKeychain{}

	first, err := GetAPIToken(kc)
	if err != nil {
		t.Fatalf("GetAPIToken: %v", err)
	}
	rotated, err := RotateAPIToken(kc)
	if err != nil {
		t.Fatalf("RotateAPIToken: %v", err)
	}
	if rotated == first {
		t.Error("rotation kept the old token")
	}
	current, err := GetAPIToken(kc)
	if err != nil {
		t.Fatalf("GetAPIToken after rotation: %v", err)
	}
	if current != rotated {
		t.Errorf("GetAPIToken = %q, want rotated token", current)
	}
}

func TestUnsetKey(t *testing.T) {
	clearEnv(t)
	b := newMockBackend(map[string]string{"server.port": "5000"})

	if err := unsetKeyWith(b, "server.port"); err != nil {
		t.Fatalf("unset: %v", err)
	}
	if _, ok := b.data["server.port"]; ok {
		t.Error("server.port still stored after unset")
	}
	cfg, err := loadWith(b, &mockKeychain{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != defaults().Server.Port {
		t.Errorf("Server.Port = %d, want default", cfg.Server.Port)
	}

	if err := unsetKeyWith(b, "storage.database_url"); err == nil {
		t.Error("expected error unsetting a secret")
	}
	if err := unsetKeyWith(b, "no.such.key"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestShowAllMarksEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("FUSE_LOG_LEVEL", "debug")

	cfg, err := loadWith(newMockBackend(nil), &mockKeychain{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, ki := range ShowAll(cfg) {
		switch ki.Key {
		case "log.level":
			if !ki.FromEnv || ki.Value != "debug" {
				t.Errorf("log.level = %+v, want debug from env", ki)
			}
		case "server.port":
			if ki.FromEnv {
				t.Error("server.port marked as env override")
			}
		}
	}
}
