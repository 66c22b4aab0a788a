package session

import "strings"

type commentPhase int

const (
	commentIdle commentPhase = iota
	commentComposing
	commentSaving
)

// CommentDraft is the per-poll comment composer: idle until opened,
// composing while the responder types, saving while the request is out.
// It resets whenever the active poll changes.
type CommentDraft struct {
	phase    commentPhase
	draft    string
	existing string
}

// Open starts composing, seeding the draft from the saved comment.
// Opening is rejected while reviewing.
func (d *CommentDraft) Open(existing string, reviewMode bool) error {
	if reviewMode {
		return ErrReviewMode
	}
	if d.phase != commentIdle {
		return nil
	}
	d.phase = commentComposing
	d.existing = existing
	d.draft = existing
	return nil
}

// SetDraft replaces the draft text while composing.
func (d *CommentDraft) SetDraft(text string) {
	if d.phase == commentComposing {
		d.draft = text
	}
}

// Cancel discards the draft and hides the composer.
func (d *CommentDraft) Cancel() {
	if d.phase != commentSaving {
		d.reset()
	}
}

// Reset forcibly returns to idle, used when the active poll changes.
func (d *CommentDraft) Reset() {
	d.reset()
}

func (d *CommentDraft) reset() {
	*d = CommentDraft{}
}

// IsOpen reports whether the composer is visible.
func (d *CommentDraft) IsOpen() bool {
	return d.phase != commentIdle
}

// Saving reports whether a save request is in flight.
func (d *CommentDraft) Saving() bool {
	return d.phase == commentSaving
}

// Draft returns the current draft text.
func (d *CommentDraft) Draft() string {
	return d.draft
}

// CanSave applies the local guards: a draft must be non-blank and differ,
// after trimming, from the saved comment.
func (d *CommentDraft) CanSave() bool {
	if d.phase != commentComposing {
		return false
	}
	trimmed := strings.TrimSpace(d.draft)
	return trimmed != "" && trimmed != strings.TrimSpace(d.existing)
}

// BeginSave validates the draft and moves to saving, returning the text
// to send. Validation failures happen before any network call.
func (d *CommentDraft) BeginSave() (string, error) {
	if d.phase != commentComposing {
		return "", ErrCommentNotOpen
	}
	trimmed := strings.TrimSpace(d.draft)
	if trimmed == "" {
		return "", ErrCommentEmpty
	}
	if trimmed == strings.TrimSpace(d.existing) {
		return "", ErrCommentUnchanged
	}
	d.phase = commentSaving
	return trimmed, nil
}

// EndSave resolves the in-flight save: success closes the composer,
// failure returns to composing so the responder can retry.
func (d *CommentDraft) EndSave(success bool) {
	if d.phase != commentSaving {
		return
	}
	if success {
		d.reset()
		return
	}
	d.phase = commentComposing
}
