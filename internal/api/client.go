package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/TheQwirl/qwirl-client/internal/model"
)

// Client is the typed HTTP client for the Qwirl backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
}

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("qwirl api: status %d: %s", e.Code, e.Body)
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
	}
}

// Token returns the bearer token currently in use.
func (c *Client) Token() string {
	return c.token
}

// SubmitResponsePayload records a vote or, with a nil SelectedAnswer, an
// explicit skip. ClientAttemptID lets the backend dedupe retried submits.
type SubmitResponsePayload struct {
	QwirlItemID     string  `json:"qwirl_item_id"`
	SelectedAnswer  *string `json:"selected_answer"`
	ClientAttemptID string  `json:"client_attempt_id"`
}

type saveCommentPayload struct {
	Comment string `json:"comment"`
}

// NewAttemptID generates the idempotency id attached to a submission.
func NewAttemptID() string {
	return uuid.NewString()
}

// GetPartnerSession fetches the caller's response session against the
// named partner's Qwirl, creating one server-side on first fetch.
func (c *Client) GetPartnerSession(ctx context.Context, partnerUsername string) (*model.QwirlSession, error) {
	var session model.QwirlSession
	path := "/qwirls/by-user/" + url.PathEscape(partnerUsername) + "/session"
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SubmitResponse records a vote or skip for one poll.
func (c *Client) SubmitResponse(ctx context.Context, sessionID string, payload SubmitResponsePayload) error {
	path := "/sessions/" + url.PathEscape(sessionID) + "/responses"
	return c.doRequest(ctx, http.MethodPost, path, payload, nil)
}

// SaveComment upserts the responder's comment on one poll.
func (c *Client) SaveComment(ctx context.Context, sessionID, qwirlItemID, comment string) error {
	path := "/sessions/" + url.PathEscape(sessionID) + "/items/" + url.PathEscape(qwirlItemID) + "/comment"
	return c.doRequest(ctx, http.MethodPut, path, saveCommentPayload{Comment: comment}, nil)
}

// FinishSession finalizes the session and returns the computed wavelength.
// There is no client-side undo for this one.
func (c *Client) FinishSession(ctx context.Context, sessionID string) (*model.WavelengthResult, error) {
	var result model.WavelengthResult
	path := "/sessions/" + url.PathEscape(sessionID) + "/finish"
	if err := c.doRequest(ctx, http.MethodPost, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetWavelength fetches the caller's current wavelength with a partner.
func (c *Client) GetWavelength(ctx context.Context, partnerUsername string) (*model.WavelengthResult, error) {
	var result model.WavelengthResult
	path := "/wavelength/" + url.PathEscape(partnerUsername)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// doRequest performs one API call with retry on transient failures.
func (c *Client) doRequest(ctx context.Context, method, path string, body, out any) error {
	if err := c.ensureFreshToken(ctx); err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("[API] Retry %d/%d for %s %s", attempt, c.maxRetries-1, method, path)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(attempt)):
			}
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = &StatusError{Code: resp.StatusCode, Body: string(data)}
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &StatusError{Code: resp.StatusCode, Body: string(data)}
		}

		if out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	}
	return fmt.Errorf("request failed after %d attempts: %w", c.maxRetries, lastErr)
}

// rawPost is a single-shot POST that skips the token freshness check.
func (c *Client) rawPost(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Body: string(data)}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt-1))) * 250 * time.Millisecond
}
