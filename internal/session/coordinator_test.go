package session

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/TheQwirl/qwirl-client/internal/cache"
	"github.com/TheQwirl/qwirl-client/internal/model"
)

func testSession() *model.QwirlSession {
	return &model.QwirlSession{
		SessionID: "sess-1",
		Status:    model.SessionInProgress,
		Items: []model.PollItem{
			poll("p1", 1, nil),
			poll("p2", 2, nil),
			poll("p3", 3, nil),
		},
		UnansweredCount: 3,
	}
}

func newTestCoordinator(t *testing.T, backend Backend) (*Coordinator, cache.SessionCache, string) {
	t.Helper()
	key, ok := cache.SessionKey("ada")
	if !ok {
		t.Fatal("expected a session key for a real username")
	}
	sc := cache.NewMemoryCache()
	return NewCoordinator(backend, sc, "ada", key), sc, key
}

func TestApplyAnswerArithmetic(t *testing.T) {
	s := testSession()

	if err := applyAnswer(s, "p1", strptr("A")); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := applyAnswer(s, "p2", nil); err != nil {
		t.Fatalf("skip: %v", err)
	}
	// Voting a previously skipped poll is allowed; it moves buckets.
	if err := applyAnswer(s, "p2", strptr("B")); err != nil {
		t.Fatalf("vote after skip: %v", err)
	}

	if got := s.AnsweredCount; got != 2 {
		t.Errorf("AnsweredCount = %d, want 2", got)
	}
	if got := s.SkippedCount; got != 0 {
		t.Errorf("SkippedCount = %d, want 0", got)
	}
	if got := s.UnansweredCount; got != 1 {
		t.Errorf("UnansweredCount = %d, want 1", got)
	}
	if !s.CountsConsistent() {
		t.Error("counts must sum to the item count after every update")
	}

	p1 := s.ItemByID("p1")
	if p1.OptionStatistics.Counts["A"] != 1 || p1.OptionStatistics.Total != 1 || p1.ResponseCount != 1 {
		t.Errorf("vote statistics not applied: %+v", p1.OptionStatistics)
	}
}

func TestApplyAnswerGuards(t *testing.T) {
	s := testSession()
	if err := applyAnswer(s, "p1", strptr("nope")); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("unknown option = %v, want ErrUnknownOption", err)
	}
	applyAnswer(s, "p1", strptr("A"))
	if err := applyAnswer(s, "p1", strptr("B")); !errors.Is(err, ErrAlreadyAnswered) {
		t.Errorf("re-vote = %v, want ErrAlreadyAnswered", err)
	}
	if err := applyAnswer(s, "ghost", strptr("A")); !errors.Is(err, ErrNoCurrentPoll) {
		t.Errorf("missing poll = %v, want ErrNoCurrentPoll", err)
	}
}

func TestSubmitAnswerReconcilesWithServer(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend(testSession())
	coord, _, _ := newTestCoordinator(t, backend)

	if _, err := coord.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := coord.SubmitAnswer(ctx, "p1", strptr("A")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	got, err := coord.Cached(ctx)
	if err != nil || got == nil {
		t.Fatalf("cached after submit: %v", err)
	}
	if got.AnsweredCount != 1 || got.UnansweredCount != 2 {
		t.Errorf("counts = %d answered / %d unanswered, want 1/2", got.AnsweredCount, got.UnansweredCount)
	}
	if got.ItemByID("p1").State() != model.StateAnswered {
		t.Error("p1 should be answered after reconciliation")
	}
	if len(backend.submits) != 1 || backend.submits[0].ClientAttemptID == "" {
		t.Error("submission should carry a client attempt id")
	}
}

func TestSubmitAnswerRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend(testSession())
	backend.failSubmit = true
	coord, sc, key := newTestCoordinator(t, backend)

	if _, err := coord.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	before, _ := sc.Get(ctx, key)

	if err := coord.SubmitAnswer(ctx, "p1", strptr("A")); err == nil {
		t.Fatal("expected submit to fail")
	}

	after, _ := sc.Get(ctx, key)
	if !reflect.DeepEqual(before, after) {
		t.Errorf("cache not restored to the pre-mutation snapshot:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestSubmitAnswerDuplicateGuard(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend(testSession())
	backend.submitGate = make(chan struct{})
	backend.gatePoll = "p1"
	coord, _, _ := newTestCoordinator(t, backend)

	if _, err := coord.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- coord.SubmitAnswer(ctx, "p1", strptr("A"))
	}()

	// Wait for the first submission to hit the wire.
	deadline := time.Now().Add(2 * time.Second)
	for !coord.InFlight("p1") {
		if time.Now().After(deadline) {
			t.Fatal("first submission never became in-flight")
		}
		time.Sleep(time.Millisecond)
	}

	if err := coord.SubmitAnswer(ctx, "p1", strptr("B")); !errors.Is(err, ErrSubmissionInFlight) {
		t.Errorf("duplicate submit = %v, want ErrSubmissionInFlight", err)
	}
	// A different poll is not blocked; it fails the answered guard or
	// proceeds, but never the in-flight guard.
	if err := coord.SubmitAnswer(ctx, "p2", nil); errors.Is(err, ErrSubmissionInFlight) {
		t.Error("unrelated poll should not share the in-flight latch")
	}

	close(backend.submitGate)
	if err := <-firstDone; err != nil {
		t.Fatalf("first submit: %v", err)
	}
}

func TestSaveCommentScaffoldsAndRollsBack(t *testing.T) {
	ctx := context.Background()

	t.Run("scaffolds a response on an unvisited poll", func(t *testing.T) {
		backend := newFakeBackend(testSession())
		coord, sc, key := newTestCoordinator(t, backend)
		coord.Refresh(ctx)

		if err := coord.SaveComment(ctx, "p2", "interesting one"); err != nil {
			t.Fatalf("save comment: %v", err)
		}
		got, _ := sc.Get(ctx, key)
		item := got.ItemByID("p2")
		if item.UserResponse == nil || item.UserResponse.Comment == nil {
			t.Fatal("comment not applied")
		}
		if *item.UserResponse.Comment != "interesting one" {
			t.Errorf("comment = %q", *item.UserResponse.Comment)
		}
		if item.UserResponse.SelectedAnswer != nil {
			t.Error("scaffold must not invent an answer")
		}
	})

	t.Run("preserves an existing answer", func(t *testing.T) {
		backend := newFakeBackend(testSession())
		coord, sc, key := newTestCoordinator(t, backend)
		coord.Refresh(ctx)
		coord.SubmitAnswer(ctx, "p1", strptr("A"))

		if err := coord.SaveComment(ctx, "p1", "still A"); err != nil {
			t.Fatalf("save comment: %v", err)
		}
		got, _ := sc.Get(ctx, key)
		item := got.ItemByID("p1")
		if !item.HasAnswer() || *item.UserResponse.SelectedAnswer != "A" {
			t.Error("saving a comment must keep the selected answer")
		}
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		backend := newFakeBackend(testSession())
		backend.failComment = true
		coord, sc, key := newTestCoordinator(t, backend)
		coord.Refresh(ctx)
		before, _ := sc.Get(ctx, key)

		if err := coord.SaveComment(ctx, "p2", "doomed"); err == nil {
			t.Fatal("expected comment save to fail")
		}
		after, _ := sc.Get(ctx, key)
		if !reflect.DeepEqual(before, after) {
			t.Error("cache not restored after failed comment save")
		}
	})
}

func TestRefreshDiscardedWhenCancelled(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend(testSession())
	coord, sc, key := newTestCoordinator(t, backend)

	// The fetch is cancelled while on the wire; its result must not
	// overwrite the optimistic edit that cancelled it.
	edited := testSession()
	edited.AnsweredCount = 99
	backend.onFetch = func() {
		sc.CancelInflight(ctx, key)
		sc.Set(ctx, key, edited)
	}

	got, err := coord.Refresh(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got.AnsweredCount != 99 {
		t.Errorf("stale fetch overwrote the optimistic edit: AnsweredCount = %d", got.AnsweredCount)
	}
	cached, _ := sc.Get(ctx, key)
	if cached.AnsweredCount != 99 {
		t.Error("cache lost the optimistic edit")
	}
}
