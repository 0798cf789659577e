package scrape

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEvaluator is a synthetic document: it maps strategy expressions to
// canned results and records evaluation order.
type fakeEvaluator struct {
	results map[string]string
	err     error
	evaled  []string
}

func (f *fakeEvaluator) Eval(_ context.Context, expr string) (string, error) {
	f.evaled = append(f.evaled, expr)
	if f.err != nil {
		return "", f.err
	}
	return f.results[expr], nil
}

func TestExtractFirstMatchWins(t *testing.T) {
	// Both the second and fourth strategy match; the second must win and the
	// later ones must never be evaluated.
	ev := &fakeEvaluator{results: map[string]string{
		TitleStrategies[1].Expr: "1. Two Sum",
		TitleStrategies[3].Expr: "some other title",
	}}

	got, err := extract(context.Background(), ev, TitleStrategies, UnknownTitle)
	require.NoError(t, err)
	assert.Equal(t, "Two Sum", got)
	assert.Len(t, ev.evaled, 2, "extraction must stop at the first match")
}

func TestExtractSentinelWhenNothingMatches(t *testing.T) {
	ev := &fakeEvaluator{results: map[string]string{}}

	title, err := extract(context.Background(), ev, TitleStrategies, UnknownTitle)
	require.NoError(t, err)
	assert.Equal(t, UnknownTitle, title)

	desc, err := extract(context.Background(), ev, DescriptionStrategies, NoDescription)
	require.NoError(t, err)
	assert.Equal(t, NoDescription, desc)

	code, err := extract(context.Background(), ev, CodeStrategies, NoCode)
	require.NoError(t, err)
	assert.Equal(t, NoCode, code)
}

func TestExtractEvalError(t *testing.T) {
	ev := &fakeEvaluator{err: errors.New("target closed")}
	_, err := extract(context.Background(), ev, TitleStrategies, UnknownTitle)
	require.Error(t, err)
}

func TestStripOrdinal(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"12. Integer to Roman", "Integer to Roman"},
		{"1. Two Sum", "Two Sum"},
		{"Two Sum", "Two Sum"},
		{"3. Longest Substring Without Repeating Characters", "Longest Substring Without Repeating Characters"},
		// Only a numeric prefix is stripped.
		{"Min. Cost Climbing", "Min. Cost Climbing"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripOrdinal(tt.in), "input %q", tt.in)
	}
}

func TestStripSiteSuffix(t *testing.T) {
	assert.Equal(t, "Two Sum", stripSiteSuffix("Two Sum - LeetCode"))
	// No recognizable suffix and no ordinal prefix: raw input passes through.
	assert.Equal(t, "Some Random Page", stripSiteSuffix("Some Random Page"))
}

func TestTitleFallbackToPageTitle(t *testing.T) {
	ev := &fakeEvaluator{results: map[string]string{
		TitleStrategies[4].Expr: "Two Sum - LeetCode",
	}}
	got, err := extract(context.Background(), ev, TitleStrategies, UnknownTitle)
	require.NoError(t, err)
	assert.Equal(t, "Two Sum", got)
}

func TestCollect(t *testing.T) {
	ev := &fakeEvaluator{results: map[string]string{
		TitleStrategies[0].Expr:       "1. Two Sum",
		DescriptionStrategies[1].Expr: "Given an array of integers...",
		CodeStrategies[0].Expr:        "var x=1;",
	}}

	snap, err := Collect(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, Snapshot{
		Title:       "Two Sum",
		Description: "Given an array of integers...",
		Solution:    "var x=1;",
	}, snap)
}

func TestCodeStrategyOrder(t *testing.T) {
	// When both Monaco strategies yield text, the line-based one wins.
	ev := &fakeEvaluator{results: map[string]string{
		CodeStrategies[0].Expr: "line one\nline two",
		CodeStrategies[1].Expr: "container text",
	}}
	got, err := extract(context.Background(), ev, CodeStrategies, NoCode)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", got)
}

func TestIsProblemPage(t *testing.T) {
	assert.True(t, IsProblemPage("https://leetcode.com/problems/two-sum/"))
	assert.True(t, IsProblemPage("https://leetcode.com/problems/two-sum/description/"))
	assert.False(t, IsProblemPage("https://leetcode.com/contest/"))
	assert.False(t, IsProblemPage("https://example.com/"))
	assert.False(t, IsProblemPage(""))
}
