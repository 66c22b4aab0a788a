package model

import "strings"

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// Completed matches the backend's status string case-insensitively.
func (s SessionStatus) Completed() bool {
	return strings.EqualFold(string(s), string(SessionCompleted))
}

// QwirlSession is one responder's pass over one Qwirl, as returned by the
// backend and mirrored in the query cache. The three counts must always
// sum to len(Items); optimistic edits maintain that arithmetic locally
// until the server's own numbers supersede them.
type QwirlSession struct {
	SessionID       string        `json:"session_id"`
	Status          SessionStatus `json:"session_status"`
	Items           []PollItem    `json:"items"`
	AnsweredCount   int           `json:"answered_count"`
	SkippedCount    int           `json:"skipped_count"`
	UnansweredCount int           `json:"unanswered_count"`
	WavelengthScore int           `json:"wavelength_score"`
}

// ItemAt returns the poll at the given position, or nil.
func (s *QwirlSession) ItemAt(position int) *PollItem {
	for i := range s.Items {
		if s.Items[i].Position == position {
			return &s.Items[i]
		}
	}
	return nil
}

// ItemByID returns the poll with the given id, or nil.
func (s *QwirlSession) ItemByID(id string) *PollItem {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return &s.Items[i]
		}
	}
	return nil
}

// CountsConsistent checks answered + skipped + unanswered == len(items).
func (s *QwirlSession) CountsConsistent() bool {
	return s.AnsweredCount+s.SkippedCount+s.UnansweredCount == len(s.Items)
}

// Clone deep-copies the session so cache writers can follow the
// read-snapshot, compute-next, replace-snapshot discipline. Rollback on a
// failed mutation is just re-storing the captured snapshot.
func (s *QwirlSession) Clone() *QwirlSession {
	if s == nil {
		return nil
	}
	out := *s
	out.Items = make([]PollItem, len(s.Items))
	for i := range s.Items {
		out.Items[i] = s.Items[i].Clone()
	}
	return &out
}

// WavelengthResult is the score the backend computes when a session is
// finished.
type WavelengthResult struct {
	WavelengthScore int `json:"wavelength_score"`
}
