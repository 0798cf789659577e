package hint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-1.5-flash"

	geminiTemperature = 0.4

	// NoHint is rendered when the API answered without any candidate text.
	NoHint = "No hint available right now. Try asking again."
)

func init() {
	RegisterFactory("gemini", func(s Settings) (Provider, error) {
		return NewGeminiClient(s), nil
	})
}

// GeminiClient calls the generative-language API directly with a
// user-supplied key. Nothing is persisted server-side, so responses never
// carry a problem identifier.
type GeminiClient struct {
	baseURL string
	model   string
	apiKey  func() string
	client  *http.Client
}

func NewGeminiClient(s Settings) *GeminiClient {
	baseURL := s.GenBaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	model := s.Model
	if model == "" {
		model = defaultGeminiModel
	}
	apiKey := s.APIKey
	if apiKey == nil {
		apiKey = func() string { return "" }
	}
	return &GeminiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: s.timeout()},
	}
}

func (c *GeminiClient) Name() string { return "gemini" }

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *GeminiClient) Hint(ctx context.Context, req Request) (*Response, error) {
	key := c.apiKey()
	if key == "" {
		return nil, ErrMissingAPIKey
	}

	body, err := json.Marshal(geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: buildPrompt(req)}}}},
		GenerationConfig: &geminiGenConfig{Temperature: geminiTemperature},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, key)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	defer httpResp.Body.Close()

	var resp geminiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
			return nil, &HTTPError{Status: httpResp.StatusCode, Message: "Failed to get hint"}
		}
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	if resp.Error != nil {
		return nil, &HTTPError{Status: httpResp.StatusCode, Message: resp.Error.Message}
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &HTTPError{Status: httpResp.StatusCode, Message: "Failed to get hint"}
	}

	return &Response{Hint: candidateText(&resp)}, nil
}

func candidateText(resp *geminiResponse) string {
	if len(resp.Candidates) == 0 {
		return NoHint
	}
	parts := resp.Candidates[0].Content.Parts
	if len(parts) == 0 || strings.TrimSpace(parts[0].Text) == "" {
		return NoHint
	}
	return parts[0].Text
}

const promptPreamble = `You are a friendly coding mentor. A student is solving a LeetCode problem and wants a nudge in the right direction, not the full solution.

Problem: %s

%s

Student's current code:
%s
`

// buildPrompt interpolates the fixed instructional template with the scraped
// problem context, appending the conversation and follow-up question when
// present.
func buildPrompt(req Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, promptPreamble, req.Title, req.Description, req.UserCode)

	if len(req.History) > 0 {
		sb.WriteString("\nConversation so far:\n")
		for _, m := range req.History {
			fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
		}
	}

	if req.FollowUp != "" {
		fmt.Fprintf(&sb, "\nThe student asks: %s\n", req.FollowUp)
		sb.WriteString("\nAnswer the question with a short hint. Do not reveal the full solution.")
	} else {
		sb.WriteString("\nGive one short hint that helps them make progress. Do not reveal the full solution.")
	}
	return sb.String()
}
