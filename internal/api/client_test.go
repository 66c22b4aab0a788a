package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"

	"github.com/TheQwirl/qwirl-client/internal/model"
)

// newTestBackend routes a fake Qwirl API the way the real one is shaped.
func newTestBackend(t *testing.T, configure func(r *mux.Router)) *httptest.Server {
	t.Helper()
	r := mux.NewRouter()
	configure(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetPartnerSession(t *testing.T) {
	var gotAuth string
	srv := newTestBackend(t, func(r *mux.Router) {
		r.HandleFunc("/qwirls/by-user/{username}/session", func(w http.ResponseWriter, req *http.Request) {
			gotAuth = req.Header.Get("Authorization")
			if mux.Vars(req)["username"] != "ada" {
				http.NotFound(w, req)
				return
			}
			json.NewEncoder(w).Encode(model.QwirlSession{
				SessionID:       "sess-1",
				Status:          model.SessionInProgress,
				Items:           []model.PollItem{{ID: "p1", Position: 1, Options: []string{"A", "B"}}},
				UnansweredCount: 1,
			})
		}).Methods("GET")
	})

	client := NewClient(srv.URL, "test-token")
	session, err := client.GetPartnerSession(context.Background(), "ada")
	if err != nil {
		t.Fatalf("GetPartnerSession: %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if session.SessionID != "sess-1" || len(session.Items) != 1 {
		t.Errorf("unexpected session: %+v", session)
	}
}

func TestSubmitResponsePayload(t *testing.T) {
	var got SubmitResponsePayload
	srv := newTestBackend(t, func(r *mux.Router) {
		r.HandleFunc("/sessions/{id}/responses", func(w http.ResponseWriter, req *http.Request) {
			if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}).Methods("POST")
	})

	client := NewClient(srv.URL, "test-token")
	payload := SubmitResponsePayload{
		QwirlItemID:     "p1",
		SelectedAnswer:  nil, // explicit skip
		ClientAttemptID: NewAttemptID(),
	}
	if err := client.SubmitResponse(context.Background(), "sess-1", payload); err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}
	if got.QwirlItemID != "p1" {
		t.Errorf("item id = %q, want p1", got.QwirlItemID)
	}
	if got.SelectedAnswer != nil {
		t.Error("a skip must serialize selected_answer as null")
	}
	if got.ClientAttemptID == "" {
		t.Error("attempt id must travel with the payload")
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := newTestBackend(t, func(r *mux.Router) {
		r.HandleFunc("/sessions/{id}/finish", func(w http.ResponseWriter, req *http.Request) {
			if calls.Add(1) < 3 {
				http.Error(w, "flaky", http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(model.WavelengthResult{WavelengthScore: 81})
		}).Methods("POST")
	})

	client := NewClient(srv.URL, "test-token")
	result, err := client.FinishSession(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("FinishSession after retries: %v", err)
	}
	if result.WavelengthScore != 81 {
		t.Errorf("score = %d, want 81", result.WavelengthScore)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3 (two failures, one success)", calls.Load())
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := newTestBackend(t, func(r *mux.Router) {
		r.HandleFunc("/wavelength/{username}", func(w http.ResponseWriter, req *http.Request) {
			calls.Add(1)
			http.Error(w, "no such user", http.StatusNotFound)
		}).Methods("GET")
	})

	client := NewClient(srv.URL, "test-token")
	_, err := client.GetWavelength(context.Background(), "ghost")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Fatalf("err = %v, want a 404 StatusError", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want exactly 1 for a client error", calls.Load())
	}
}

func TestOpaqueTokenSkipsRefresh(t *testing.T) {
	// A non-JWT token has no readable expiry; the client must send it
	// as-is rather than trying to refresh.
	srv := newTestBackend(t, func(r *mux.Router) {
		r.HandleFunc("/wavelength/{username}", func(w http.ResponseWriter, req *http.Request) {
			json.NewEncoder(w).Encode(model.WavelengthResult{WavelengthScore: 50})
		}).Methods("GET")
		r.HandleFunc("/auth/refresh", func(w http.ResponseWriter, req *http.Request) {
			t.Error("refresh must not be called for an opaque token")
		}).Methods("POST")
	})

	client := NewClient(srv.URL, "opaque-token")
	if _, err := client.GetWavelength(context.Background(), "ada"); err != nil {
		t.Fatalf("GetWavelength: %v", err)
	}
}
