// Package hint talks to the hint-generating service. Two providers exist:
// the project backend (bearer-authenticated REST) and the Gemini
// generative-language API (user-supplied key). Neither is canonical; the
// registry picks one by name at startup.
package hint

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Message is one turn of conversation history as replayed to the service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries the problem context for one hint exchange. FollowUp and
// History are empty on the initial request.
type Request struct {
	Title       string
	Description string
	UserCode    string

	FollowUp string
	History  []Message
}

// Response is the normalized success shape. ProblemID is set only when the
// backend persisted the problem for the dashboard.
type Response struct {
	Hint      string
	ProblemID string
}

// Provider generates mentoring hints.
type Provider interface {
	Name() string
	Hint(ctx context.Context, req Request) (*Response, error)
}

// Saver is implemented by providers that can update an already-persisted
// hint. Callers treat its failure as non-fatal.
type Saver interface {
	SaveHint(ctx context.Context, problemID, hint string) error
}

// HTTPError is a non-2xx response from the hint service, carrying the
// server-provided message when the body had one.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

var (
	ErrMissingAPIKey = errors.New("no API key configured - set one on the options page")
	ErrMissingToken  = errors.New("not logged in")
)

// Settings configures provider construction. AuthToken and APIKey are read
// at call time so a login or key change takes effect without restarting.
type Settings struct {
	BaseURL    string
	GenBaseURL string
	Model      string
	Timeout    time.Duration

	AuthToken func() string
	APIKey    func() string
}

func (s Settings) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return 60 * time.Second
}

// Factory builds a provider from settings.
type Factory func(s Settings) (Provider, error)

var factories = map[string]Factory{}

// RegisterFactory registers a provider factory under name.
func RegisterFactory(name string, f Factory) {
	factories[name] = f
}

// NewProvider constructs the named provider.
func NewProvider(name string, s Settings) (Provider, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown hint provider %q", name)
	}
	return f(s)
}
