package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Package storage persists Singly sessions between runs.

// DefaultAccount is the session key used when the caller does not name one.
const DefaultAccount = "default"

// ErrSessionsDisabled is returned when saving to a store that persists nothing.
var ErrSessionsDisabled = errors.New("session storage is disabled (storage_type=none)")

// Store keeps access tokens keyed by account name.
type Store interface {
	Close() error
	SaveToken(account, token string) error
	// Token returns the stored token; ok is false when none is stored or it expired.
	Token(account string) (token string, ok bool, err error)
	DeleteToken(account string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	TokenTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	defaultTokenTTL        = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

func accountKey(account string) string {
	account = strings.ToLower(strings.TrimSpace(account))
	if account == "" {
		return DefaultAccount
	}
	return account
}

type noopStore struct{}

func (noopStore) Close() error                       { return nil }
func (noopStore) SaveToken(string, string) error     { return ErrSessionsDisabled }
func (noopStore) Token(string) (string, bool, error) { return "", false, nil }
func (noopStore) DeleteToken(string) error           { return nil }
