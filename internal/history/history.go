// Package history keeps every saved revision of hotjar.settings.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"hotjar/internal/cache"
	"hotjar/internal/settings"
)

const prefix = "history/" + settings.ConfigName + "/"

// keys sort by time; the uuid suffix keeps concurrent saves apart
const keyTimeFormat = "20060102T150405.000000000Z"

type Revision struct {
	ID       string            `json:"id"`
	SavedAt  time.Time         `json:"saved_at"`
	Settings settings.Settings `json:"settings"`
}

type Recorder struct {
	cache cache.ListCache
	now   func() time.Time
}

var _ settings.Observer = (*Recorder)(nil)

func NewRecorder(c cache.ListCache) *Recorder {
	return &Recorder{cache: c, now: time.Now}
}

func (r *Recorder) SettingsSaved(ctx context.Context, s settings.Settings) error {
	now := r.now().UTC()
	rev := Revision{
		ID:       now.Format(keyTimeFormat) + "-" + uuid.NewString(),
		SavedAt:  now,
		Settings: s,
	}
	b, err := json.Marshal(rev)
	if err != nil {
		return fmt.Errorf("failed to encode revision: %w", err)
	}
	if err := r.cache.Put(ctx, prefix+rev.ID, string(b), cache.IfNoneMatch()); err != nil {
		return fmt.Errorf("failed to record revision %s: %w", rev.ID, err)
	}
	return nil
}

// Recent returns up to limit revisions, newest first. A limit of zero or
// less returns all of them.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Revision, error) {
	ids, err := r.cache.List(ctx, prefix, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}
	slices.Sort(ids)
	slices.Reverse(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	revisions := make([]Revision, 0, len(ids))
	for _, id := range ids {
		raw, err := cache.ReadString(ctx, r.cache, prefix+id)
		if errors.Is(err, cache.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read revision %s: %w", id, err)
		}
		var rev Revision
		if err := json.Unmarshal([]byte(raw), &rev); err != nil {
			return nil, fmt.Errorf("failed to decode revision %s: %w", id, err)
		}
		revisions = append(revisions, rev)
	}
	return revisions, nil
}
