package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentortab/mentortab/internal/hint"
	"github.com/mentortab/mentortab/internal/scrape"
	"github.com/mentortab/mentortab/internal/store"
)

type fakeSource struct {
	url     string
	urlErr  error
	snap    *scrape.Snapshot
	snapErr error
}

func (f *fakeSource) ActiveTabURL(ctx context.Context) (string, error) {
	return f.url, f.urlErr
}

func (f *fakeSource) Snapshot(ctx context.Context) (*scrape.Snapshot, error) {
	return f.snap, f.snapErr
}

type fakeProvider struct {
	resp     hint.Response
	err      error
	requests []hint.Request
	saved    map[string]string
	saveErr  error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Hint(ctx context.Context, req hint.Request) (*hint.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	resp := f.resp
	return &resp, nil
}

func (f *fakeProvider) SaveHint(ctx context.Context, problemID, hintText string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.saved == nil {
		f.saved = make(map[string]string)
	}
	f.saved[problemID] = hintText
	return nil
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "storage.json"))
	require.NoError(t, err)
	return st
}

func problemSource() *fakeSource {
	return &fakeSource{
		url: "https://leetcode.com/problems/two-sum/",
		snap: &scrape.Snapshot{
			Title:       "Two Sum",
			Description: "Given an array of integers...",
			Solution:    "function twoSum() {}",
		},
	}
}

func TestOpenFetchesInitialHint(t *testing.T) {
	src := problemSource()
	prov := &fakeProvider{resp: hint.Response{Hint: "Think about hash maps.", ProblemID: "42"}}
	m := NewManager(src, prov, newStore(t), nil)
	defer m.Stop()

	v, err := m.Open(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateReady, v.State)
	assert.False(t, v.Loading)
	require.Len(t, v.History, 1)
	assert.Equal(t, RoleMentor, v.History[0].Role)
	assert.Equal(t, "Think about hash maps.", v.History[0].Content)
	assert.Equal(t, "42", v.ProblemID)
	assert.Equal(t, "Two Sum", v.Problem.Title)

	require.Len(t, prov.requests, 1)
	assert.Empty(t, prov.requests[0].FollowUp)
	assert.Empty(t, prov.requests[0].History)
}

func TestOpenIneligiblePage(t *testing.T) {
	src := &fakeSource{url: "https://example.com/"}
	prov := &fakeProvider{}
	m := NewManager(src, prov, newStore(t), nil)
	defer m.Stop()

	v, err := m.Open(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateIneligible, v.State)
	assert.Empty(t, v.History)
	assert.Empty(t, prov.requests, "ineligible sessions must not fetch")

	// Terminal: asking against it fails without touching history.
	_, err = m.Ask(context.Background(), v.ID, "help")
	assert.ErrorIs(t, err, ErrNoProblem)
}

func TestOpenScrapeFailureRendersErrorEntry(t *testing.T) {
	src := problemSource()
	src.snapErr = errors.New("scraper unreachable")
	m := NewManager(src, &fakeProvider{}, newStore(t), nil)
	defer m.Stop()

	v, err := m.Open(context.Background())
	require.NoError(t, err)

	require.Len(t, v.History, 1)
	assert.True(t, v.History[0].IsError)
	assert.Contains(t, v.History[0].Content, "scraper unreachable")
	assert.Contains(t, v.History[0].Content, "Make sure you're on a LeetCode problem page and the backend server is running.")
	assert.False(t, v.Loading)
}

func TestAskAppendsRoundTrip(t *testing.T) {
	src := problemSource()
	prov := &fakeProvider{resp: hint.Response{Hint: "First hint."}}
	m := NewManager(src, prov, newStore(t), nil)
	defer m.Stop()

	v, err := m.Open(context.Background())
	require.NoError(t, err)

	prov.resp = hint.Response{Hint: "Second hint."}
	v, err = m.Ask(context.Background(), v.ID, "What about duplicates?")
	require.NoError(t, err)

	require.Len(t, v.History, 3)
	assert.Equal(t, RoleMentor, v.History[0].Role)
	assert.Equal(t, RoleUser, v.History[1].Role)
	assert.Equal(t, "What about duplicates?", v.History[1].Content)
	assert.Equal(t, "Second hint.", v.History[2].Content)

	// The follow-up request carries the full history including the new
	// user entry, with the mentor role mapped to "assistant".
	require.Len(t, prov.requests, 2)
	followUp := prov.requests[1]
	assert.Equal(t, "What about duplicates?", followUp.FollowUp)
	require.Len(t, followUp.History, 2)
	assert.Equal(t, "assistant", followUp.History[0].Role)
	assert.Equal(t, "First hint.", followUp.History[0].Content)
	assert.Equal(t, "user", followUp.History[1].Role)
}

func TestAskRejectsWhitespaceQuestion(t *testing.T) {
	src := problemSource()
	prov := &fakeProvider{resp: hint.Response{Hint: "hint"}}
	m := NewManager(src, prov, newStore(t), nil)
	defer m.Stop()

	v, err := m.Open(context.Background())
	require.NoError(t, err)

	_, err = m.Ask(context.Background(), v.ID, "   \n\t")
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	got, ok := m.Get(v.ID)
	require.True(t, ok)
	assert.Len(t, got.History, 1, "rejected questions leave history untouched")
}

func TestAskErrorEntryExcludedFromReplay(t *testing.T) {
	src := problemSource()
	prov := &fakeProvider{resp: hint.Response{Hint: "hint"}}
	m := NewManager(src, prov, newStore(t), nil)
	defer m.Stop()

	v, err := m.Open(context.Background())
	require.NoError(t, err)

	prov.err = errors.New("boom")
	v, err = m.Ask(context.Background(), v.ID, "q1")
	require.NoError(t, err)
	require.Len(t, v.History, 3)
	assert.True(t, v.History[2].IsError)
	assert.Equal(t, "Error: boom", v.History[2].Content)
	assert.False(t, v.Loading, "failed request must release the loading flag")

	prov.err = nil
	_, err = m.Ask(context.Background(), v.ID, "q2")
	require.NoError(t, err)

	replay := prov.requests[len(prov.requests)-1].History
	for _, msg := range replay {
		assert.NotContains(t, msg.Content, "Error:", "error entries never replay")
	}
	require.Len(t, replay, 3) // hint, q1, q2
	assert.Equal(t, "assistant", replay[0].Role)
	assert.Equal(t, "q1", replay[1].Content)
	assert.Equal(t, "q2", replay[2].Content)
}

func TestAskUpdatesSavedHint(t *testing.T) {
	src := problemSource()
	prov := &fakeProvider{resp: hint.Response{Hint: "hint", ProblemID: "7"}}
	st := newStore(t)
	require.NoError(t, st.SetAuth(store.AuthRecord{
		Token: "tok",
		User:  store.User{DisplayName: "Ada"},
	}))

	m := NewManager(src, prov, st, nil)
	defer m.Stop()

	v, err := m.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Saved to dashboard", v.SaveStatus)

	prov.resp = hint.Response{Hint: "updated hint"}
	v, err = m.Ask(context.Background(), v.ID, "more?")
	require.NoError(t, err)

	assert.Equal(t, "updated hint", prov.saved["7"])
	assert.Equal(t, "Updated", v.SaveStatus)
}

func TestSaveFailureDoesNotSurface(t *testing.T) {
	src := problemSource()
	prov := &fakeProvider{resp: hint.Response{Hint: "hint", ProblemID: "7"}, saveErr: errors.New("503")}
	st := newStore(t)
	require.NoError(t, st.SetAuth(store.AuthRecord{Token: "tok"}))

	m := NewManager(src, prov, st, nil)
	defer m.Stop()

	v, err := m.Open(context.Background())
	require.NoError(t, err)

	v, err = m.Ask(context.Background(), v.ID, "more?")
	require.NoError(t, err)
	assert.Equal(t, "hint", v.History[len(v.History)-1].Content)
	assert.False(t, v.History[len(v.History)-1].IsError)
}

func TestAuthChangePropagatesToOpenSessions(t *testing.T) {
	src := problemSource()
	prov := &fakeProvider{resp: hint.Response{Hint: "hint"}}
	st := newStore(t)
	m := NewManager(src, prov, st, nil)
	defer m.Stop()

	v, err := m.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Not logged in", v.SaveStatus)
	assert.Nil(t, v.User)

	require.NoError(t, st.SetAuth(store.AuthRecord{
		Token: "tok",
		User:  store.User{DisplayName: "Ada", Email: "ada@example.com"},
	}))

	got, ok := m.Get(v.ID)
	require.True(t, ok)
	assert.Equal(t, "Logged in - hints will be saved", got.SaveStatus)
	require.NotNil(t, got.User)
	assert.Equal(t, "Ada", got.User.DisplayName)
}

func TestLogoutIdempotent(t *testing.T) {
	src := problemSource()
	prov := &fakeProvider{resp: hint.Response{Hint: "hint"}}
	st := newStore(t)
	require.NoError(t, st.SetAuth(store.AuthRecord{Token: "tok", User: store.User{DisplayName: "Ada"}}))

	m := NewManager(src, prov, st, nil)
	defer m.Stop()

	v, err := m.Open(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.Logout())
	require.NoError(t, m.Logout())

	got, ok := m.Get(v.ID)
	require.True(t, ok)
	assert.Equal(t, "Not logged in", got.SaveStatus)
	assert.Nil(t, got.User)
	assert.Len(t, got.History, 1, "logout leaves the conversation intact")
}

func TestCloseDiscardsSession(t *testing.T) {
	src := problemSource()
	prov := &fakeProvider{resp: hint.Response{Hint: "hint"}}
	m := NewManager(src, prov, newStore(t), nil)
	defer m.Stop()

	v, err := m.Open(context.Background())
	require.NoError(t, err)

	assert.True(t, m.Close(v.ID))
	assert.False(t, m.Close(v.ID))

	_, ok := m.Get(v.ID)
	assert.False(t, ok)

	_, err = m.Ask(context.Background(), v.ID, "anyone there?")
	assert.ErrorIs(t, err, ErrNotFound)
}
