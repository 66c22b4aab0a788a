package model

// ResponseState classifies a poll relative to the responder. The three
// buckets are mutually exclusive: a poll with no UserResponse at all has
// simply not been visited, while a UserResponse whose SelectedAnswer is
// nil records an explicit skip.
type ResponseState string

const (
	StateAnswered   ResponseState = "answered"
	StateSkipped    ResponseState = "skipped"
	StateUnanswered ResponseState = "unanswered"
)

// UserResponse is the responder's saved reaction to one poll.
type UserResponse struct {
	SelectedAnswer *string `json:"selected_answer"`
	Comment        *string `json:"comment"`
}

// OptionStatistics carries per-option response counts for one poll.
type OptionStatistics struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// PollItem is one question inside a Qwirl as seen by a responder.
// Position is a 1-based ordinal; the sequence may have gaps after the
// owner deletes questions, so navigation searches rather than decrements.
type PollItem struct {
	ID               string           `json:"id"`
	Position         int              `json:"position"`
	QuestionText     string           `json:"question_text"`
	Options          []string         `json:"options"`
	OwnerAnswer      *string          `json:"owner_answer,omitempty"`
	OptionStatistics OptionStatistics `json:"option_statistics"`
	ResponseCount    int              `json:"response_count"`
	UserResponse     *UserResponse    `json:"user_response,omitempty"`
}

// State returns the responder-side classification of this poll.
func (p *PollItem) State() ResponseState {
	if p.UserResponse == nil {
		return StateUnanswered
	}
	if p.UserResponse.SelectedAnswer == nil {
		return StateSkipped
	}
	return StateAnswered
}

// HasAnswer reports whether the responder picked an actual option.
func (p *PollItem) HasAnswer() bool {
	return p.UserResponse != nil &&
		p.UserResponse.SelectedAnswer != nil &&
		*p.UserResponse.SelectedAnswer != ""
}

// HasOption reports whether opt is one of this poll's answer options.
func (p *PollItem) HasOption(opt string) bool {
	for _, o := range p.Options {
		if o == opt {
			return true
		}
	}
	return false
}

// Comment returns the saved comment, or "" when none exists.
func (p *PollItem) Comment() string {
	if p.UserResponse == nil || p.UserResponse.Comment == nil {
		return ""
	}
	return *p.UserResponse.Comment
}

// Clone deep-copies the poll, including statistics and response.
func (p *PollItem) Clone() PollItem {
	out := *p
	out.Options = append([]string(nil), p.Options...)
	if p.OwnerAnswer != nil {
		v := *p.OwnerAnswer
		out.OwnerAnswer = &v
	}
	if p.OptionStatistics.Counts != nil {
		counts := make(map[string]int, len(p.OptionStatistics.Counts))
		for k, n := range p.OptionStatistics.Counts {
			counts[k] = n
		}
		out.OptionStatistics.Counts = counts
	}
	if p.UserResponse != nil {
		ur := UserResponse{}
		if p.UserResponse.SelectedAnswer != nil {
			v := *p.UserResponse.SelectedAnswer
			ur.SelectedAnswer = &v
		}
		if p.UserResponse.Comment != nil {
			v := *p.UserResponse.Comment
			ur.Comment = &v
		}
		out.UserResponse = &ur
	}
	return out
}
