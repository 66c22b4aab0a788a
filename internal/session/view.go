package session

import "github.com/TheQwirl/qwirl-client/internal/model"

// View is the derived read model the presentation layer renders from.
// It is recomputed from scratch on every call; nothing in it aliases
// engine-internal state.
type View struct {
	CurrentPoll     *model.PollItem
	CurrentPosition int
	TotalPolls      int

	IsCompleted    bool
	IsReviewMode   bool
	IsAnsweringNew bool

	AnsweredCount   int
	SkippedCount    int
	UnansweredCount int
	MaxSkips        int
	NewCount        int

	IsAnsweredCurrent bool
	IsSkippedCurrent  bool
	UserAnswer        *string
	SubmitInFlight    bool

	PrimaryCTA  CTA
	PrevEnabled bool

	// TooFewPolls flags a Qwirl below the minimum poll count; the UI
	// shows an incomplete-Qwirl fallback instead of the answering flow.
	TooFewPolls bool

	CommentOpen    bool
	CommentDraft   string
	CommentSaving  bool
	CanSaveComment bool

	WavelengthScore int
	SessionID       string
}

// View derives the current read model.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := View{
		IsReviewMode:   e.review,
		IsAnsweringNew: e.answeringNew,
		MaxSkips:       e.opts.MaxSkips,
		CommentOpen:    e.comment.IsOpen(),
		CommentDraft:   e.comment.Draft(),
		CommentSaving:  e.comment.Saving(),
		CanSaveComment: e.comment.CanSave(),
	}
	if e.session == nil {
		return v
	}

	s := e.session
	v.SessionID = s.SessionID
	v.IsCompleted = s.Status.Completed()
	v.TotalPolls = len(s.Items)
	v.AnsweredCount = s.AnsweredCount
	v.SkippedCount = s.SkippedCount
	v.UnansweredCount = s.UnansweredCount
	v.WavelengthScore = s.WavelengthScore
	v.TooFewPolls = len(s.Items) < e.opts.MinPolls
	v.CurrentPosition = e.pos
	_, v.NewCount = NewQuestions(s.Items, LastRespondedPosition(s.Items))

	if p := e.current(); p != nil {
		poll := p.Clone()
		v.CurrentPoll = &poll
		v.IsAnsweredCurrent = p.HasAnswer()
		v.IsSkippedCurrent = !v.IsAnsweredCurrent && e.isSkippedCurrent(p)
		v.SubmitInFlight = e.coord.InFlight(p.ID)
	}
	if e.userAnswer != nil {
		answer := *e.userAnswer
		v.UserAnswer = &answer
	}
	v.PrimaryCTA = e.primaryCTA()
	_, v.PrevEnabled = PrevPosition(s.Items, e.pos)
	return v
}
