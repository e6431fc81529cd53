package config

import "errors"

// ConfigBackend persists the non-secret fuse settings. Each getter reports
// ok=false for a key that was never written so the caller keeps the default.
//
// Scoring weights are stored as floats and matching switches as bools, so the
// backend keeps those types natively instead of round-tripping through text.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	GetFloat(key string) (val float64, ok bool, err error)
	GetBool(key string) (val bool, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	SetFloat(key string, val float64) error
	SetBool(key string, val bool) error
	Delete(key string) error
}

// errInvalidValue marks a stored value that does not parse as its key's type.
var errInvalidValue = errors.New("invalid stored value")
