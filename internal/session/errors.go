package session

import "errors"

var (
	// ErrNoSession means no session snapshot exists to act on.
	ErrNoSession = errors.New("no session loaded")
	// ErrNoCurrentPoll means the position does not resolve to a poll.
	ErrNoCurrentPoll = errors.New("no current poll")
	// ErrAlreadyAnswered guards against re-voting an answered poll.
	ErrAlreadyAnswered = errors.New("poll already answered")
	// ErrReviewMode rejects mutations while reviewing.
	ErrReviewMode = errors.New("responses are read-only in review mode")
	// ErrSubmissionInFlight rejects a duplicate submit for the same poll
	// while the first one is still on the wire.
	ErrSubmissionInFlight = errors.New("submission already in flight for this poll")
	// ErrUnknownOption rejects a vote for an option the poll lacks.
	ErrUnknownOption = errors.New("selected answer is not one of the poll options")
	// ErrSkipBudget withholds finishing while too many polls are skipped.
	ErrSkipBudget = errors.New("too many skips to finish")

	// ErrCommentEmpty rejects a whitespace-only comment before any
	// request is made.
	ErrCommentEmpty = errors.New("comment cannot be empty")
	// ErrCommentUnchanged makes saving an identical comment a no-op.
	ErrCommentUnchanged = errors.New("comment is unchanged")
	// ErrCommentNotOpen means there is no draft being composed.
	ErrCommentNotOpen = errors.New("no comment draft open")
)
