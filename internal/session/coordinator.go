package session

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/TheQwirl/qwirl-client/internal/api"
	"github.com/TheQwirl/qwirl-client/internal/cache"
	"github.com/TheQwirl/qwirl-client/internal/model"
)

// Backend is the slice of the Qwirl API the coordinator needs. The
// api.Client satisfies it; tests substitute a fake.
type Backend interface {
	GetPartnerSession(ctx context.Context, partnerUsername string) (*model.QwirlSession, error)
	SubmitResponse(ctx context.Context, sessionID string, payload api.SubmitResponsePayload) error
	SaveComment(ctx context.Context, sessionID, qwirlItemID, comment string) error
	FinishSession(ctx context.Context, sessionID string) (*model.WavelengthResult, error)
}

// Coordinator issues response mutations with optimistic cache edits:
// capture the snapshot, write the guessed next state, fire the request,
// and either reconcile with the server or restore the snapshot. All cache
// writes for one key are serialized under mu so two optimistic updates
// cannot interleave mid-edit.
type Coordinator struct {
	backend Backend
	cache   cache.SessionCache
	partner string
	key     string

	mu       sync.Mutex
	inflight map[string]bool // poll id -> submit on the wire
}

func NewCoordinator(backend Backend, sessionCache cache.SessionCache, partnerUsername, key string) *Coordinator {
	return &Coordinator{
		backend:  backend,
		cache:    sessionCache,
		partner:  partnerUsername,
		key:      key,
		inflight: make(map[string]bool),
	}
}

// InFlight reports whether a submission for the poll is still pending,
// so the UI can disable that poll's vote/skip affordance.
func (c *Coordinator) InFlight(pollID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[pollID]
}

// Refresh fetches the session and commits it unless an optimistic write
// cancelled this fetch while it was on the wire, in which case the cached
// (optimistically edited) snapshot wins.
func (c *Coordinator) Refresh(ctx context.Context) (*model.QwirlSession, error) {
	gen, err := c.cache.Generation(ctx, c.key)
	if err != nil {
		return nil, err
	}
	session, err := c.backend.GetPartnerSession(ctx, c.partner)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}
	committed, err := c.cache.CommitFetched(ctx, c.key, gen, session)
	if err != nil {
		return nil, err
	}
	if !committed {
		log.Printf("[Respond] Fetch for %s superseded by a local edit", c.key)
		cached, err := c.cache.Get(ctx, c.key)
		if err != nil || cached == nil {
			return session, err
		}
		return cached, nil
	}
	return session, nil
}

// Cached returns the current snapshot without touching the network.
func (c *Coordinator) Cached(ctx context.Context) (*model.QwirlSession, error) {
	return c.cache.Get(ctx, c.key)
}

// SubmitAnswer records a vote (non-nil selected) or an explicit skip
// (nil selected) for one poll. The cache is edited optimistically before
// the request; a rejection restores the captured snapshot.
func (c *Coordinator) SubmitAnswer(ctx context.Context, pollID string, selected *string) error {
	c.mu.Lock()
	if c.inflight[pollID] {
		c.mu.Unlock()
		return ErrSubmissionInFlight
	}
	c.inflight[pollID] = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.inflight, pollID)
		c.mu.Unlock()
	}()

	snapshot, next, err := c.optimistic(ctx, func(s *model.QwirlSession) error {
		return applyAnswer(s, pollID, selected)
	})
	if err != nil {
		return err
	}

	payload := api.SubmitResponsePayload{
		QwirlItemID:     pollID,
		SelectedAnswer:  selected,
		ClientAttemptID: api.NewAttemptID(),
	}
	if err := c.backend.SubmitResponse(ctx, next.SessionID, payload); err != nil {
		c.rollback(ctx, snapshot)
		return fmt.Errorf("failed to submit response: %w", err)
	}

	// The optimistic statistics are a display guess; refetch so the
	// server's numbers supersede them.
	if err := c.cache.Invalidate(ctx, c.key); err != nil {
		log.Printf("[Respond] Invalidate after submit failed: %v", err)
	}
	if _, err := c.Refresh(ctx); err != nil {
		log.Printf("[Respond] Refetch after submit failed: %v", err)
	}
	return nil
}

// SaveComment optimistically sets the comment on one poll, preserving any
// existing answer, and rolls back if the server rejects it.
func (c *Coordinator) SaveComment(ctx context.Context, pollID, comment string) error {
	snapshot, next, err := c.optimistic(ctx, func(s *model.QwirlSession) error {
		return applyComment(s, pollID, comment)
	})
	if err != nil {
		return err
	}
	if err := c.backend.SaveComment(ctx, next.SessionID, pollID, comment); err != nil {
		c.rollback(ctx, snapshot)
		return fmt.Errorf("failed to save comment: %w", err)
	}
	return nil
}

// Finish finalizes the session. No optimistic edit: completion is not
// reversible client-side, so the cache is only updated from the refetch
// the caller performs after the reveal.
func (c *Coordinator) Finish(ctx context.Context) (*model.WavelengthResult, error) {
	session, err := c.cache.Get(ctx, c.key)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoSession
	}
	result, err := c.backend.FinishSession(ctx, session.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to finish session: %w", err)
	}
	return result, nil
}

// ApplyStats folds a server-pushed statistics update into the snapshot.
// Server numbers are authoritative, so there is nothing to roll back.
func (c *Coordinator) ApplyStats(ctx context.Context, pollID string, stats model.OptionStatistics, responseCount int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	session, err := c.cache.Get(ctx, c.key)
	if err != nil || session == nil {
		return err
	}
	item := session.ItemByID(pollID)
	if item == nil {
		return nil
	}
	item.OptionStatistics = stats
	item.ResponseCount = responseCount
	return c.cache.Set(ctx, c.key, session)
}

// optimistic captures the snapshot, applies mutate to a copy, and stores
// the result. The read-modify-write runs under mu; in-flight fetches are
// cancelled first so a stale response cannot overwrite the edit.
func (c *Coordinator) optimistic(ctx context.Context, mutate func(*model.QwirlSession) error) (snapshot, next *model.QwirlSession, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.cache.CancelInflight(ctx, c.key); err != nil {
		return nil, nil, err
	}
	snapshot, err = c.cache.Get(ctx, c.key)
	if err != nil {
		return nil, nil, err
	}
	if snapshot == nil {
		return nil, nil, ErrNoSession
	}
	next = snapshot.Clone()
	if err := mutate(next); err != nil {
		return nil, nil, err
	}
	if err := c.cache.Set(ctx, c.key, next); err != nil {
		return nil, nil, err
	}
	return snapshot, next, nil
}

func (c *Coordinator) rollback(ctx context.Context, snapshot *model.QwirlSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.cache.Set(ctx, c.key, snapshot); err != nil {
		log.Printf("[Respond] Rollback failed: %v", err)
	}
}

// applyAnswer performs the optimistic arithmetic for a vote or skip:
// move the poll between counting buckets, and for a vote bump the chosen
// option's count and the poll's response total.
func applyAnswer(s *model.QwirlSession, pollID string, selected *string) error {
	item := s.ItemByID(pollID)
	if item == nil {
		return ErrNoCurrentPoll
	}
	if item.HasAnswer() {
		return ErrAlreadyAnswered
	}
	if selected != nil && !item.HasOption(*selected) {
		return ErrUnknownOption
	}

	switch item.State() {
	case model.StateUnanswered:
		s.UnansweredCount--
	case model.StateSkipped:
		s.SkippedCount--
	}
	if selected != nil {
		s.AnsweredCount++
		if item.OptionStatistics.Counts == nil {
			item.OptionStatistics.Counts = make(map[string]int)
		}
		item.OptionStatistics.Counts[*selected]++
		item.OptionStatistics.Total++
		item.ResponseCount++
	} else {
		s.SkippedCount++
	}

	var comment *string
	if item.UserResponse != nil {
		comment = item.UserResponse.Comment
	}
	item.UserResponse = &model.UserResponse{
		SelectedAnswer: selected,
		Comment:        comment,
	}
	return nil
}

// applyComment sets the comment, scaffolding an empty UserResponse when
// the poll has never been visited.
func applyComment(s *model.QwirlSession, pollID, comment string) error {
	item := s.ItemByID(pollID)
	if item == nil {
		return ErrNoCurrentPoll
	}
	if item.UserResponse == nil {
		item.UserResponse = &model.UserResponse{}
	}
	item.UserResponse.Comment = &comment
	return nil
}
