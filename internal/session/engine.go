package session

import (
	"context"
	"sync"
	"time"

	"github.com/TheQwirl/qwirl-client/internal/model"
)

// Reveal describes the wavelength counter sweep shown after finishing:
// animate from the previous score to the new one over Duration.
type Reveal struct {
	From     int
	To       int
	Duration time.Duration
}

// Options configures an Engine.
type Options struct {
	MaxSkips       int
	MinPolls       int
	RevealDuration time.Duration
	Notifier       Notifier
	// OnReveal runs the score animation; the engine refetches the
	// session only after it returns. It runs with the engine locked and
	// must not call back into it.
	OnReveal func(Reveal)
}

// Engine drives one respond session: it owns the ephemeral navigation
// state (position, review / answering-new modes, the visible selection,
// the comment composer) and turns user actions into coordinator calls.
// Exactly one of normal progression, review mode and answering-new mode
// is active at any time.
//
// All exported methods are safe for concurrent use; the live statistics
// feed feeds ApplyStats from its own goroutine.
type Engine struct {
	coord    *Coordinator
	notifier Notifier
	opts     Options

	mu           sync.Mutex
	session      *model.QwirlSession
	pos          int
	initialized  bool
	review       bool
	answeringNew bool
	userAnswer   *string
	skipped      map[string]struct{}
	comment      CommentDraft
}

func NewEngine(coord *Coordinator, opts Options) *Engine {
	if opts.Notifier == nil {
		opts.Notifier = noopNotifier{}
	}
	if opts.RevealDuration <= 0 {
		opts.RevealDuration = 1600 * time.Millisecond
	}
	return &Engine{
		coord:    coord,
		notifier: opts.Notifier,
		opts:     opts,
		skipped:  make(map[string]struct{}),
	}
}

// Load fetches the session and picks the starting position. The position
// latch fires once: later refetches keep the responder where they are.
func (e *Engine) Load(ctx context.Context) error {
	session, err := e.coord.Refresh(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.merge(session)
	return nil
}

// Vote submits the chosen option for the current poll.
func (e *Engine) Vote(ctx context.Context, option string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vote(ctx, option)
}

// Skip records an explicit skip for the current poll and advances; when
// the skipped poll was the last one and the budget allows it, the
// session finishes too.
func (e *Engine) Skip(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.skip(ctx)
}

// Previous moves to the nearest existing lower position.
func (e *Engine) Previous() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return ErrNoSession
	}
	prev, ok := PrevPosition(e.session.Items, e.pos)
	if !ok {
		return ErrNoCurrentPoll
	}
	e.setPos(prev)
	return nil
}

// PrimaryCTA resolves and performs the primary action for the current
// state: skip, advance, finish, or leave review.
func (e *Engine) PrimaryCTA(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cta := e.primaryCTA()
	switch cta.Action {
	case ActionSkip:
		return e.skip(ctx)
	case ActionNext:
		e.advance()
		return nil
	case ActionExitReview:
		e.exitReview()
		return nil
	case ActionFinish:
		if e.overBudget() {
			// The button stays clickable but completion is withheld
			// until the skip count is back within budget.
			e.notifier.Notify(Notice{Level: NoticeInfo, Message: "Too many skips to finish. Answer a few more questions first."})
			return ErrSkipBudget
		}
		return e.finish(ctx)
	}
	return nil
}

// StartReview re-enters a completed session read-only from the top.
func (e *Engine) StartReview() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return ErrNoSession
	}
	e.review = true
	e.answeringNew = false
	e.setPos(lowestPosition(e.session.Items))
	e.comment.Reset()
	return nil
}

// StartAnsweringNew jumps to the first question added since the last
// completed pass. With nothing new it is an informational no-op, not an
// error.
func (e *Engine) StartAnsweringNew() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return ErrNoSession
	}
	first, count := NewQuestions(e.session.Items, LastRespondedPosition(e.session.Items))
	if count == 0 {
		e.notifier.Notify(Notice{Level: NoticeInfo, Message: "No new questions to answer yet."})
		return nil
	}
	e.review = false
	e.answeringNew = true
	e.setPos(first)
	return nil
}

// OpenComment shows the comment composer for the current poll.
func (e *Engine) OpenComment() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.current()
	if p == nil {
		return ErrNoCurrentPoll
	}
	return e.comment.Open(p.Comment(), e.review)
}

// SetCommentDraft updates the draft text.
func (e *Engine) SetCommentDraft(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.comment.SetDraft(text)
}

// CancelComment discards the draft.
func (e *Engine) CancelComment() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.comment.Cancel()
}

// SaveComment validates the draft locally, then persists it. Local guard
// failures never reach the network.
func (e *Engine) SaveComment(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.current()
	if p == nil {
		return ErrNoCurrentPoll
	}
	text, err := e.comment.BeginSave()
	if err != nil {
		switch err {
		case ErrCommentEmpty:
			e.notifier.Notify(Notice{Level: NoticeError, Message: "Comment cannot be empty."})
		case ErrCommentUnchanged:
			// Saving an identical comment is a silent no-op.
			return nil
		}
		return err
	}
	if err := e.coord.SaveComment(ctx, p.ID, text); err != nil {
		e.comment.EndSave(false)
		e.notifier.Notify(Notice{Level: NoticeError, Message: "Couldn't save your comment. Please try again."})
		return err
	}
	e.comment.EndSave(true)
	e.resync(ctx)
	return nil
}

// ApplyStats folds a live statistics push into the cached snapshot.
func (e *Engine) ApplyStats(ctx context.Context, pollID string, stats model.OptionStatistics, responseCount int) {
	if err := e.coord.ApplyStats(ctx, pollID, stats, responseCount); err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resync(ctx)
}

// --- internals (callers hold e.mu) ---

func (e *Engine) vote(ctx context.Context, option string) error {
	if e.review {
		return ErrReviewMode
	}
	p := e.current()
	if p == nil {
		return ErrNoCurrentPoll
	}
	if p.HasAnswer() {
		return ErrAlreadyAnswered
	}
	if !p.HasOption(option) {
		return ErrUnknownOption
	}
	if e.coord.InFlight(p.ID) {
		return ErrSubmissionInFlight
	}

	e.userAnswer = &option
	if err := e.coord.SubmitAnswer(ctx, p.ID, &option); err != nil {
		// Clear the selection so the responder can retry cleanly.
		e.userAnswer = nil
		e.notifier.Notify(Notice{Level: NoticeError, Message: "Couldn't save your answer. Please try again."})
		return err
	}
	e.resync(ctx)
	return nil
}

func (e *Engine) skip(ctx context.Context) error {
	if e.review {
		return ErrReviewMode
	}
	p := e.current()
	if p == nil {
		return ErrNoCurrentPoll
	}
	if p.HasAnswer() {
		return ErrAlreadyAnswered
	}
	if e.coord.InFlight(p.ID) {
		return ErrSubmissionInFlight
	}

	wasLast := e.isLast()
	if err := e.coord.SubmitAnswer(ctx, p.ID, nil); err != nil {
		e.notifier.Notify(Notice{Level: NoticeError, Message: "Couldn't record the skip. Please try again."})
		return err
	}
	e.skipped[p.ID] = struct{}{}
	e.resync(ctx)

	if wasLast {
		if e.overBudget() {
			e.notifier.Notify(Notice{Level: NoticeInfo, Message: "Too many skips to finish. Answer a few more questions first."})
			return nil
		}
		return e.finish(ctx)
	}
	e.advance()
	return nil
}

// finish finalizes the session, runs the wavelength reveal from the
// previous score to the new one, then refetches the canonical state.
func (e *Engine) finish(ctx context.Context) error {
	prior := 0
	if e.session != nil {
		prior = e.session.WavelengthScore
	}
	result, err := e.coord.Finish(ctx)
	if err != nil {
		e.notifier.Notify(Notice{Level: NoticeError, Message: "Couldn't finish the session. Please try again."})
		return err
	}
	if e.opts.OnReveal != nil {
		e.opts.OnReveal(Reveal{From: prior, To: result.WavelengthScore, Duration: e.opts.RevealDuration})
	}
	e.review = false
	e.answeringNew = false
	if session, err := e.coord.Refresh(ctx); err == nil {
		e.merge(session)
	}
	return nil
}

// merge installs a fresh snapshot and re-derives dependent state.
func (e *Engine) merge(session *model.QwirlSession) {
	e.session = session
	if session == nil {
		return
	}
	// Server-recorded skips join whatever was skipped this visit.
	for id := range SeedSkipped(session.Items) {
		e.skipped[id] = struct{}{}
	}
	if !e.initialized && len(session.Items) > 0 {
		e.pos = InitialPosition(session.Items, session.Status.Completed())
		e.initialized = true
		e.syncSelection()
	}
}

// resync pulls the latest cached snapshot after a mutation.
func (e *Engine) resync(ctx context.Context) {
	session, err := e.coord.Cached(ctx)
	if err != nil || session == nil {
		return
	}
	e.merge(session)
}

// setPos moves to a new position, resetting the per-poll state that is
// tied 1:1 to the active poll.
func (e *Engine) setPos(pos int) {
	if pos == e.pos {
		return
	}
	e.pos = pos
	e.comment.Reset()
	e.syncSelection()
}

// syncSelection mirrors the active poll's saved answer into the visible
// selection.
func (e *Engine) syncSelection() {
	e.userAnswer = nil
	if p := e.current(); p != nil && p.HasAnswer() {
		v := *p.UserResponse.SelectedAnswer
		e.userAnswer = &v
	}
}

func (e *Engine) current() *model.PollItem {
	if e.session == nil {
		return nil
	}
	return e.session.ItemAt(e.pos)
}

func (e *Engine) isLast() bool {
	return e.session != nil && e.pos == highestPosition(e.session.Items)
}

func (e *Engine) isSkippedCurrent(p *model.PollItem) bool {
	if p == nil {
		return false
	}
	if _, ok := e.skipped[p.ID]; ok {
		return true
	}
	return p.State() == model.StateSkipped
}

func (e *Engine) primaryCTA() CTA {
	p := e.current()
	in := CTAInput{
		ReviewMode:   e.review,
		IsLast:       e.isLast(),
		SkippedCount: e.skippedCount(),
		MaxSkips:     e.opts.MaxSkips,
	}
	if p != nil {
		in.Answered = p.HasAnswer()
		in.Skipped = !in.Answered && e.isSkippedCurrent(p)
	}
	return PrimaryCTA(in)
}

func (e *Engine) advance() {
	if e.session == nil {
		return
	}
	if next, ok := NextPosition(e.session.Items, e.pos); ok {
		e.setPos(next)
	}
}

func (e *Engine) exitReview() {
	e.review = false
	e.answeringNew = false
	if e.session == nil {
		return
	}
	last := LastRespondedPosition(e.session.Items)
	e.setPos(clampToExisting(e.session.Items, last))
}

func (e *Engine) overBudget() bool {
	return e.skippedCount() >= e.opts.MaxSkips
}

func (e *Engine) skippedCount() int {
	if e.session == nil {
		return 0
	}
	return e.session.SkippedCount
}
