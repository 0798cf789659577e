package hint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

func init() {
	RegisterFactory("backend", func(s Settings) (Provider, error) {
		return NewBackendClient(s), nil
	})
}

// BackendClient talks to the project backend's REST API. A bearer token is
// attached when the user is logged in; anonymous requests are allowed for
// plain hint generation.
type BackendClient struct {
	baseURL string
	token   func() string
	client  *http.Client
}

func NewBackendClient(s Settings) *BackendClient {
	token := s.AuthToken
	if token == nil {
		token = func() string { return "" }
	}
	return &BackendClient{
		baseURL: strings.TrimRight(s.BaseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: s.timeout()},
	}
}

func (c *BackendClient) Name() string { return "backend" }

type hintPayload struct {
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	UserCode            string    `json:"user_code"`
	FollowUpQuestion    string    `json:"follow_up_question,omitempty"`
	ConversationHistory []Message `json:"conversation_history,omitempty"`
}

type hintReply struct {
	Hint      string      `json:"hint"`
	ProblemID json.Number `json:"problem_id"`
}

// Hint requests a mentoring hint. Initial requests carry only the problem
// fields; follow-ups add the question and the full history in order.
func (c *BackendClient) Hint(ctx context.Context, req Request) (*Response, error) {
	payload := hintPayload{
		Title:               req.Title,
		Description:         req.Description,
		UserCode:            req.UserCode,
		FollowUpQuestion:    req.FollowUp,
		ConversationHistory: req.History,
	}

	var reply hintReply
	if err := c.post(ctx, "/hint/", payload, &reply, "Failed to get hint"); err != nil {
		return nil, err
	}
	return &Response{Hint: reply.Hint, ProblemID: reply.ProblemID.String()}, nil
}

// SaveHint updates the stored hint of an already-persisted problem. The
// contract is status-only; the body is ignored.
func (c *BackendClient) SaveHint(ctx context.Context, problemID, hint string) error {
	if c.token() == "" {
		return ErrMissingToken
	}
	path := fmt.Sprintf("/problems/%s/hint/", problemID)
	return c.post(ctx, path, map[string]string{"hint": hint}, nil, "Failed to update hint")
}

// Problem mirrors the backend's persisted problem record.
type Problem struct {
	ID          json.Number `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	UserCode    string      `json:"user_code"`
	AIHint      string      `json:"ai_hint"`
	Date        string      `json:"date"`
	Status      string      `json:"status"`
	Tags        []string    `json:"tags"`
}

// Problems lists the logged-in user's saved problems.
func (c *BackendClient) Problems(ctx context.Context) ([]Problem, error) {
	if c.token() == "" {
		return nil, ErrMissingToken
	}
	var problems []Problem
	if err := c.get(ctx, "/problems/", &problems); err != nil {
		return nil, err
	}
	return problems, nil
}

// Stats fetches the logged-in user's dashboard statistics.
func (c *BackendClient) Stats(ctx context.Context) (map[string]any, error) {
	if c.token() == "" {
		return nil, ErrMissingToken
	}
	var stats map[string]any
	if err := c.get(ctx, "/stats/", &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *BackendClient) post(ctx context.Context, path string, payload, out any, fallbackMsg string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("hint service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpError(resp, fallbackMsg)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse hint response: %w", err)
	}
	return nil
}

func (c *BackendClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("hint service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpError(resp, "Request failed")
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *BackendClient) authorize(req *http.Request) {
	if t := c.token(); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}
}

// httpError extracts the server-provided error message, falling back to a
// generic one when the body is absent or unparseable.
func httpError(resp *http.Response, fallback string) error {
	msg := fallback
	if body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)); err == nil {
		var parsed struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
			msg = parsed.Error
		}
	}
	return &HTTPError{Status: resp.StatusCode, Message: msg}
}
