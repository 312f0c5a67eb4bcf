package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
	"github.com/tradepost/tradepost-backend/pkg/logger"
)

// KeyInventoryStaleAfter overrides how old a FIO sync may get before quotes
// flag it as stale. Stored as a JSON duration string ("6h") or seconds.
const KeyInventoryStaleAfter = "fio.stale_after"

// Reader is the lookup surface other packages depend on.
type Reader interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Duration(ctx context.Context, key string, def time.Duration) time.Duration
	Invalidate(ctx context.Context, keys ...string) error
}

// versionStore shares invalidation across processes. Optional.
type versionStore interface {
	Version(ctx context.Context, key string) (int64, error)
	BumpVersion(ctx context.Context, key string) (int64, error)
	SettingsVersionKey() string
}

type cacheEntry struct {
	value     string
	found     bool
	version   int64
	expiresAt time.Time
}

type ServiceParams struct {
	Repository Repository
	Versions   versionStore
	Logger     *logger.Logger
	TTL        time.Duration
}

type Service struct {
	repo     Repository
	versions versionStore
	logg     *logger.Logger
	ttl      time.Duration
	now      func() time.Time

	mu    sync.RWMutex
	cache map[string]cacheEntry
	// gen counts local invalidations; a reload started before one is not stored.
	gen uint64
}

var _ Reader = (*Service)(nil)

func NewService(params ServiceParams) (*Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		repo:     params.Repository,
		versions: params.Versions,
		logg:     logg,
		ttl:      params.TTL,
		now:      time.Now,
		cache:    make(map[string]cacheEntry),
	}, nil
}

// Get returns the raw JSON text stored for key and whether it exists.
func (s *Service) Get(ctx context.Context, key string) (string, bool, error) {
	key = strings.TrimSpace(key)
	now := s.now()

	s.mu.RLock()
	entry, cached := s.cache[key]
	gen := s.gen
	s.mu.RUnlock()

	if cached && now.Before(entry.expiresAt) {
		return entry.value, entry.found, nil
	}

	version := int64(0)
	if s.versions != nil {
		v, err := s.versions.Version(ctx, s.versions.SettingsVersionKey())
		if err != nil {
			s.logg.WarnErr(s.logg.WithField(ctx, "setting", key), "settings version lookup failed; reloading from db", err)
		} else {
			version = v
			if cached && v == entry.version {
				entry.expiresAt = now.Add(s.ttl)
				s.store(key, entry, gen)
				return entry.value, entry.found, nil
			}
		}
	}

	row, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", false, pkgerrors.Dependency(err, "load setting")
	}
	entry = cacheEntry{version: version, expiresAt: now.Add(s.ttl)}
	if row != nil {
		entry.value = row.Value
		entry.found = true
	}
	s.store(key, entry, gen)
	return entry.value, entry.found, nil
}

// Duration reads key as a duration, falling back to def when the key is
// missing, malformed, or cannot be read.
func (s *Service) Duration(ctx context.Context, key string, def time.Duration) time.Duration {
	raw, found, err := s.Get(ctx, key)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "setting", key), "settings read failed; using default", err)
		return def
	}
	if !found {
		return def
	}
	d, err := ParseDuration(raw)
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"setting": key, "value": raw}), "invalid duration setting; using default")
		return def
	}
	return d
}

// Invalidate drops the given keys, or the whole cache when none are given,
// and bumps the shared version so other instances reload on their next miss.
// Reads already in flight return their value but do not cache it.
func (s *Service) Invalidate(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	s.gen++
	if len(keys) == 0 {
		s.cache = make(map[string]cacheEntry)
	} else {
		for _, key := range keys {
			delete(s.cache, strings.TrimSpace(key))
		}
	}
	s.mu.Unlock()

	if s.versions == nil {
		return nil
	}
	if _, err := s.versions.BumpVersion(ctx, s.versions.SettingsVersionKey()); err != nil {
		return pkgerrors.Dependency(err, "bump settings version")
	}
	return nil
}

func (s *Service) store(key string, entry cacheEntry, gen uint64) {
	s.mu.Lock()
	if s.gen == gen {
		s.cache[key] = entry
	}
	s.mu.Unlock()
}

// ParseDuration accepts a JSON string understood by time.ParseDuration or a
// JSON number of seconds. Negative values are rejected.
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	var text string
	if err := json.Unmarshal([]byte(raw), &text); err == nil {
		d, err := time.ParseDuration(text)
		if err != nil {
			return 0, err
		}
		if d < 0 {
			return 0, fmt.Errorf("negative duration %q", text)
		}
		return d, nil
	}
	var seconds float64
	if err := json.Unmarshal([]byte(raw), &seconds); err != nil {
		return 0, fmt.Errorf("unsupported duration value %q", raw)
	}
	if seconds < 0 {
		return 0, fmt.Errorf("negative duration %v", seconds)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
