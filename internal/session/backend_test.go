package session

import (
	"context"
	"errors"
	"sync"

	"github.com/TheQwirl/qwirl-client/internal/api"
	"github.com/TheQwirl/qwirl-client/internal/model"
)

var errBackendDown = errors.New("backend unavailable")

// fakeBackend is an in-memory stand-in for the Qwirl API that applies
// submissions to its own copy of the session, so post-submit refetches
// behave like the real server.
type fakeBackend struct {
	mu      sync.Mutex
	session *model.QwirlSession

	failSubmit  bool
	failComment bool
	failFinish  bool

	finishScore int
	finishCalls int
	submits     []api.SubmitResponsePayload
	comments    []string

	// onFetch, when set, runs before each GetPartnerSession returns.
	onFetch func()
	// submitGate, when set, blocks SubmitResponse for gatePoll until
	// closed.
	submitGate chan struct{}
	gatePoll   string
}

func newFakeBackend(session *model.QwirlSession) *fakeBackend {
	return &fakeBackend{session: session.Clone(), finishScore: 72}
}

func (f *fakeBackend) GetPartnerSession(ctx context.Context, partnerUsername string) (*model.QwirlSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onFetch != nil {
		f.onFetch()
	}
	return f.session.Clone(), nil
}

func (f *fakeBackend) SubmitResponse(ctx context.Context, sessionID string, payload api.SubmitResponsePayload) error {
	if f.submitGate != nil && payload.QwirlItemID == f.gatePoll {
		<-f.submitGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSubmit {
		return errBackendDown
	}
	f.submits = append(f.submits, payload)

	item := f.session.ItemByID(payload.QwirlItemID)
	if item == nil {
		return errors.New("no such item")
	}
	switch item.State() {
	case model.StateUnanswered:
		f.session.UnansweredCount--
	case model.StateSkipped:
		f.session.SkippedCount--
	}
	if payload.SelectedAnswer != nil {
		f.session.AnsweredCount++
		if item.OptionStatistics.Counts == nil {
			item.OptionStatistics.Counts = make(map[string]int)
		}
		item.OptionStatistics.Counts[*payload.SelectedAnswer]++
		item.OptionStatistics.Total++
		item.ResponseCount++
	} else {
		f.session.SkippedCount++
	}
	item.UserResponse = &model.UserResponse{SelectedAnswer: payload.SelectedAnswer}
	return nil
}

func (f *fakeBackend) SaveComment(ctx context.Context, sessionID, qwirlItemID, comment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failComment {
		return errBackendDown
	}
	f.comments = append(f.comments, comment)
	if item := f.session.ItemByID(qwirlItemID); item != nil {
		if item.UserResponse == nil {
			item.UserResponse = &model.UserResponse{}
		}
		item.UserResponse.Comment = &comment
	}
	return nil
}

func (f *fakeBackend) FinishSession(ctx context.Context, sessionID string) (*model.WavelengthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFinish {
		return nil, errBackendDown
	}
	f.finishCalls++
	f.session.Status = model.SessionCompleted
	f.session.WavelengthScore = f.finishScore
	return &model.WavelengthResult{WavelengthScore: f.finishScore}, nil
}
