package cache

import (
	"context"
	"strings"

	"github.com/TheQwirl/qwirl-client/internal/model"
)

// SessionKey resolves the cache identity for "my response session against
// this partner's Qwirl". It is a pure function of the partner's username.
// An unknown partner yields ok=false and callers must not fetch at all.
func SessionKey(partnerUsername string) (string, bool) {
	u := strings.ToLower(strings.TrimSpace(partnerUsername))
	if u == "" {
		return "", false
	}
	return "qwirl:respond:" + u, true
}

// SessionCache is the query cache the respond engine writes through.
// Snapshots are stored whole and replaced whole; implementations must
// never hand out aliases of their internal state.
//
// Generations implement the cancel-conflicting-queries pattern: a fetch
// records the generation before hitting the network and commits with
// CommitFetched, while an optimistic writer calls CancelInflight first so
// the stale fetch result is discarded instead of clobbering the edit.
type SessionCache interface {
	// Get returns the cached snapshot, or (nil, nil) on a miss.
	Get(ctx context.Context, key string) (*model.QwirlSession, error)
	// Set replaces the snapshot for key.
	Set(ctx context.Context, key string, s *model.QwirlSession) error
	// Invalidate drops the snapshot so the next reader refetches.
	Invalidate(ctx context.Context, key string) error
	// Generation returns the current write generation for key.
	Generation(ctx context.Context, key string) (uint64, error)
	// CancelInflight bumps the generation, orphaning in-flight fetches.
	CancelInflight(ctx context.Context, key string) error
	// CommitFetched stores s only if the generation still matches gen.
	// It reports whether the write was applied.
	CommitFetched(ctx context.Context, key string, gen uint64, s *model.QwirlSession) (bool, error)
}
