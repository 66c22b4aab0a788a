// Package session implements the poll-response progression engine: pure
// state derivation over a fetched session, an optimistic mutation
// coordinator, and the navigation policy that drives the primary action.
package session

import (
	"github.com/TheQwirl/qwirl-client/internal/model"
)

// InitialPosition picks where a freshly loaded session starts. A completed
// session opens at its first poll (the review entry point); otherwise the
// first poll without an actual answer wins, falling back to the first poll
// when everything is answered already.
func InitialPosition(items []model.PollItem, completed bool) int {
	first := lowestPosition(items)
	if first == 0 {
		return 0
	}
	if completed {
		return first
	}
	pos := 0
	for i := range items {
		p := &items[i]
		if p.HasAnswer() {
			continue
		}
		if pos == 0 || p.Position < pos {
			pos = p.Position
		}
	}
	if pos == 0 {
		return first
	}
	return pos
}

// SeedSkipped rebuilds the skipped-id set from server data: a present
// UserResponse with a nil SelectedAnswer is an explicit skip. Polls the
// responder has never visited carry no UserResponse at all and must not
// land in this set.
func SeedSkipped(items []model.PollItem) map[string]struct{} {
	skipped := make(map[string]struct{})
	for i := range items {
		if items[i].State() == model.StateSkipped {
			skipped[items[i].ID] = struct{}{}
		}
	}
	return skipped
}

// LastRespondedPosition is the highest position carrying any response,
// answer or skip. Zero when the responder has not touched anything.
func LastRespondedPosition(items []model.PollItem) int {
	last := 0
	for i := range items {
		if items[i].UserResponse != nil && items[i].Position > last {
			last = items[i].Position
		}
	}
	return last
}

// NewQuestions finds polls the owner added after the responder's last
// response: position at or past lastResponded with no UserResponse.
// Returns the first such position and how many there are.
func NewQuestions(items []model.PollItem, lastResponded int) (firstPos, count int) {
	for i := range items {
		p := &items[i]
		if p.UserResponse != nil || p.Position < lastResponded {
			continue
		}
		count++
		if firstPos == 0 || p.Position < firstPos {
			firstPos = p.Position
		}
	}
	return firstPos, count
}

// PrevPosition returns the nearest existing position below current.
// Position sequences may have gaps, so this is a search, not a decrement.
func PrevPosition(items []model.PollItem, current int) (int, bool) {
	prev := 0
	for i := range items {
		p := items[i].Position
		if p < current && p > prev {
			prev = p
		}
	}
	return prev, prev != 0
}

// NextPosition returns the nearest existing position above current.
func NextPosition(items []model.PollItem, current int) (int, bool) {
	next := 0
	for i := range items {
		p := items[i].Position
		if p > current && (next == 0 || p < next) {
			next = p
		}
	}
	return next, next != 0
}

func lowestPosition(items []model.PollItem) int {
	pos := 0
	for i := range items {
		if pos == 0 || items[i].Position < pos {
			pos = items[i].Position
		}
	}
	return pos
}

func highestPosition(items []model.PollItem) int {
	pos := 0
	for i := range items {
		if items[i].Position > pos {
			pos = items[i].Position
		}
	}
	return pos
}

// clamp bounds pos to an existing position: the nearest one at or below
// pos, or the lowest when pos sits before everything.
func clampToExisting(items []model.PollItem, pos int) int {
	best := 0
	for i := range items {
		p := items[i].Position
		if p <= pos && p > best {
			best = p
		}
	}
	if best == 0 {
		return lowestPosition(items)
	}
	return best
}
