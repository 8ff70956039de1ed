package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"hotjar/internal/cache"
	"hotjar/internal/roles"
)

const cacheKey = "config/" + ConfigName

var tracer = otel.Tracer("hotjar/internal/settings")

// CacheStore keeps hotjar.settings as one JSON document in a cache backend.
type CacheStore struct {
	cache    cache.Cache
	registry roles.Registry
}

var _ Store = (*CacheStore)(nil)

func NewCacheStore(c cache.Cache, registry roles.Registry) *CacheStore {
	return &CacheStore{cache: c, registry: registry}
}

// Load returns the stored settings, or Defaults when nothing was saved yet.
func (cs *CacheStore) Load(ctx context.Context) (_ Settings, err error) {
	ctx, span := tracer.Start(ctx, "settings.Load", trace.WithAttributes(attribute.String("config.name", ConfigName)))
	defer endSpan(span, &err)

	raw, err := cache.ReadString(ctx, cs.cache, cacheKey)
	if errors.Is(err, cache.ErrNotFound) {
		return Defaults(), nil
	}
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode %s: %w", ConfigName, err)
	}
	if s.Roles == nil {
		s.Roles = []string{}
	}
	return s, nil
}

func (cs *CacheStore) Save(ctx context.Context, s Settings) (err error) {
	ctx, span := tracer.Start(ctx, "settings.Save", trace.WithAttributes(attribute.String("config.name", ConfigName)))
	defer endSpan(span, &err)

	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", ConfigName, err)
	}
	return cs.cache.Put(ctx, cacheKey, string(b), cache.Unconditional())
}

func (cs *CacheStore) ListRoles(ctx context.Context) ([]roles.Role, error) {
	return cs.registry.List(ctx)
}

// Ready reports whether the backend answers.
func (cs *CacheStore) Ready(ctx context.Context) error {
	if _, err := cs.cache.Exists(ctx, cacheKey); err != nil {
		return fmt.Errorf("config store not ready: %w", err)
	}
	return nil
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
