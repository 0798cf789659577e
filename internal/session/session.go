// Package session implements the popup's conversation flow: one session per
// popup open, holding the problem snapshot, the append-only chat history and
// the loading flag. Sessions live in memory only and are discarded when
// closed; nothing survives a reopen unless the backend persisted it.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mentortab/mentortab/internal/hint"
	"github.com/mentortab/mentortab/internal/record"
	"github.com/mentortab/mentortab/internal/scrape"
	"github.com/mentortab/mentortab/internal/store"
)

// Chat entry roles. Mentor entries replay to the hint service as
// "assistant"; error entries render but never replay.
const (
	RoleUser   = "user"
	RoleMentor = "mentor"

	wireRoleAssistant = "assistant"
)

// Entry is one rendered chat message. The sequence is append-only: entries
// are never mutated or removed.
type Entry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	IsError bool   `json:"isError,omitempty"`
}

// State of a session.
type State string

const (
	// StateIneligible is terminal: the active tab was not a problem page.
	StateIneligible State = "ineligible"
	StateReady      State = "ready"
)

// Save-status lines shown in the popup's status bar.
const (
	statusLoggedOut = "Not logged in"
	statusLoggedIn  = "Logged in - hints will be saved"
	statusSaved     = "Saved to dashboard"
	statusUpdated   = "Updated"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrBusy          = errors.New("a request is already in flight")
	ErrEmptyQuestion = errors.New("question is empty")
	ErrNoProblem     = errors.New("no problem captured for this session")
)

// ProblemSource supplies the active tab URL and the scraped snapshot. The
// bridge-backed implementation lives in source.go; tests use fakes.
type ProblemSource interface {
	ActiveTabURL(ctx context.Context) (string, error)
	Snapshot(ctx context.Context) (*scrape.Snapshot, error)
}

// Session holds one popup conversation. All fields are guarded by mu.
type Session struct {
	ID string

	mu         sync.Mutex
	state      State
	problem    *scrape.Snapshot
	history    []Entry
	problemID  string
	loading    bool
	user       *store.User
	saveStatus string
	createdAt  time.Time
}

// View is the serializable snapshot of a session handed to the HTTP layer.
type View struct {
	ID         string           `json:"id"`
	State      State            `json:"state"`
	Loading    bool             `json:"isLoading"`
	History    []Entry          `json:"history"`
	Problem    *scrape.Snapshot `json:"problem,omitempty"`
	ProblemID  string           `json:"problemId,omitempty"`
	SaveStatus string           `json:"saveStatus"`
	User       *store.User      `json:"user,omitempty"`
}

// Manager owns all live sessions and reacts to auth storage changes.
type Manager struct {
	source   ProblemSource
	provider hint.Provider
	store    *store.Store
	log      *record.Log // optional

	mu       sync.RWMutex
	sessions map[string]*Session

	unsubscribe func()
}

// NewManager wires the session manager and subscribes it to auth changes so
// an auth capture completing while a popup is open updates it reactively.
func NewManager(source ProblemSource, provider hint.Provider, st *store.Store, log *record.Log) *Manager {
	m := &Manager{
		source:   source,
		provider: provider,
		store:    st,
		log:      log,
		sessions: make(map[string]*Session),
	}
	m.unsubscribe = st.Subscribe(func(key string) {
		if key != store.KeyAuthToken {
			return
		}
		m.refreshAuth()
	})
	return m
}

// Stop unsubscribes from storage notifications.
func (m *Manager) Stop() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// refreshAuth replays the login-state path on every live session, the same
// path Open uses, so reactive updates and initialization stay identical.
func (m *Manager) refreshAuth() {
	rec := m.store.Auth()
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		s.mu.Lock()
		s.applyAuth(rec)
		s.mu.Unlock()
	}
}

// applyAuth moves the session to the logged-in or logged-out representation.
// Callers hold s.mu.
func (s *Session) applyAuth(rec *store.AuthRecord) {
	if rec != nil {
		u := rec.User
		s.user = &u
		s.saveStatus = statusLoggedIn
		return
	}
	s.user = nil
	s.saveStatus = statusLoggedOut
}

// Open starts a new session: restore auth state, check page eligibility,
// and — when eligible — run the initial hint fetch. An ineligible page is a
// terminal state with no fetch, not an error.
func (m *Manager) Open(ctx context.Context) (*View, error) {
	s := &Session{
		ID:        uuid.NewString(),
		state:     StateReady,
		createdAt: time.Now(),
	}
	s.mu.Lock()
	s.applyAuth(m.store.Auth())
	s.mu.Unlock()

	url, err := m.source.ActiveTabURL(ctx)
	if err != nil || !scrape.IsProblemPage(url) {
		s.mu.Lock()
		s.state = StateIneligible
		s.mu.Unlock()
		m.register(s)
		return m.viewOf(s), nil
	}

	m.register(s)
	m.fetchInitial(ctx, s)
	return m.viewOf(s), nil
}

func (m *Manager) register(s *Session) {
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
}

// fetchInitial scrapes the problem and requests the first hint. Any failure
// renders a single error entry; nothing is retried.
func (m *Manager) fetchInitial(ctx context.Context, s *Session) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	snap, err := m.source.Snapshot(ctx)
	if err != nil {
		m.failInitial(s, err)
		return
	}

	s.mu.Lock()
	s.problem = snap
	s.mu.Unlock()

	resp, err := m.provider.Hint(ctx, hint.Request{
		Title:       snap.Title,
		Description: snap.Description,
		UserCode:    snap.Solution,
	})
	if err != nil {
		m.failInitial(s, err)
		return
	}

	s.mu.Lock()
	s.history = append(s.history, Entry{Role: RoleMentor, Content: resp.Hint})
	if resp.ProblemID != "" {
		s.problemID = resp.ProblemID
		if s.user != nil {
			s.saveStatus = statusSaved
		}
	}
	s.loading = false
	title := snap.Title
	id := s.ID
	s.mu.Unlock()

	m.recordExchange(ctx, id, title, "", resp.Hint)
}

func (m *Manager) failInitial(s *Session, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, Entry{
		Role:    RoleMentor,
		IsError: true,
		Content: "Error: " + err.Error() + "\n\nMake sure you're on a LeetCode problem page and the backend server is running.",
	})
	s.loading = false
}

// Ask submits a follow-up question. Empty input, an in-flight request, or a
// missing problem snapshot leave the session untouched.
func (m *Manager) Ask(ctx context.Context, id, question string) (*View, error) {
	s, ok := m.get(id)
	if !ok {
		return nil, ErrNotFound
	}

	question = strings.TrimSpace(question)

	s.mu.Lock()
	switch {
	case question == "":
		s.mu.Unlock()
		return nil, ErrEmptyQuestion
	case s.loading:
		s.mu.Unlock()
		return nil, ErrBusy
	case s.problem == nil:
		s.mu.Unlock()
		return nil, ErrNoProblem
	}

	// Optimistic append: the user's entry shows before the reply arrives.
	s.history = append(s.history, Entry{Role: RoleUser, Content: question})
	s.loading = true

	req := hint.Request{
		Title:       s.problem.Title,
		Description: s.problem.Description,
		UserCode:    s.problem.Solution,
		FollowUp:    question,
		History:     wireHistory(s.history),
	}
	title := s.problem.Title
	s.mu.Unlock()

	resp, err := m.provider.Hint(ctx, req)

	s.mu.Lock()
	if err != nil {
		s.history = append(s.history, Entry{Role: RoleMentor, IsError: true, Content: "Error: " + err.Error()})
		s.loading = false
		s.mu.Unlock()
		return m.viewOf(s), nil
	}

	s.history = append(s.history, Entry{Role: RoleMentor, Content: resp.Hint})
	s.loading = false
	problemID := s.problemID
	loggedIn := s.user != nil
	s.mu.Unlock()

	// Best-effort dashboard update; failures are logged, never surfaced.
	if problemID != "" && loggedIn {
		if saver, ok := m.provider.(hint.Saver); ok {
			if err := saver.SaveHint(ctx, problemID, resp.Hint); err != nil {
				slog.Warn("hint update failed", "problemId", problemID, "err", err)
			} else {
				s.mu.Lock()
				s.saveStatus = statusUpdated
				s.mu.Unlock()
			}
		}
	}

	m.recordExchange(ctx, id, title, question, resp.Hint)
	return m.viewOf(s), nil
}

func (m *Manager) recordExchange(ctx context.Context, sessionID, title, question, hintText string) {
	if m.log == nil {
		return
	}
	if err := m.log.Add(ctx, record.Exchange{
		SessionID: sessionID,
		Title:     title,
		Question:  question,
		Hint:      hintText,
	}); err != nil {
		slog.Warn("record exchange failed", "err", err)
	}
}

// Logout clears the stored auth record. Logging out twice is a no-op; the
// in-memory history is untouched either way.
func (m *Manager) Logout() error {
	return m.store.ClearAuth()
}

// Get returns the view of a live session.
func (m *Manager) Get(id string) (*View, bool) {
	s, ok := m.get(id)
	if !ok {
		return nil, false
	}
	return m.viewOf(s), true
}

// Close discards a session. The popup closing is exactly this: in-flight
// work resolves into a session nobody reads again.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

func (m *Manager) get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) viewOf(s *Session) *View {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]Entry, len(s.history))
	copy(history, s.history)

	var user *store.User
	if s.user != nil {
		u := *s.user
		user = &u
	}

	return &View{
		ID:         s.ID,
		State:      s.state,
		Loading:    s.loading,
		History:    history,
		Problem:    s.problem,
		ProblemID:  s.problemID,
		SaveStatus: s.saveStatus,
		User:       user,
	}
}

// wireHistory converts rendered entries to the replay format: mentor becomes
// "assistant" and error entries are skipped.
func wireHistory(entries []Entry) []hint.Message {
	msgs := make([]hint.Message, 0, len(entries))
	for _, e := range entries {
		if e.IsError {
			continue
		}
		role := e.Role
		if role == RoleMentor {
			role = wireRoleAssistant
		}
		msgs = append(msgs, hint.Message{Role: role, Content: e.Content})
	}
	return msgs
}
