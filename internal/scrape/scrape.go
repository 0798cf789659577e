// Package scrape extracts the problem title, description and editor contents
// from a LeetCode problem page. Extraction is a best-effort walk over ordered
// selector strategies against a third-party DOM that changes without notice:
// the first strategy that yields text wins, in the declared order, and
// sentinel values stand in when nothing matches.
package scrape

import (
	"context"
	"regexp"
	"strings"
)

// Sentinels returned when a strategy list finds nothing.
const (
	UnknownTitle  = "Unknown Problem"
	NoDescription = "No description found"
	NoCode        = "// No code found - please write some code first"
)

const siteTitleSuffix = " - LeetCode"

// Snapshot is the scraped problem state. The field name "solution" on the
// wire denotes the user's in-progress code.
type Snapshot struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Solution    string `json:"solution"`
}

// Evaluator runs a JavaScript expression in the page and returns its string
// result. The chromedp implementation lives in evaluator.go; tests supply
// synthetic documents through a fake.
type Evaluator interface {
	Eval(ctx context.Context, expr string) (string, error)
}

// Strategy is one extraction attempt: a JS expression that returns the
// candidate text (empty string when its selector does not match) and an
// optional post-processing step.
type Strategy struct {
	Name string
	Expr string
	Post func(string) string
}

func queryText(selector string) string {
	return `(() => {
	const el = document.querySelector('` + selector + `');
	return el ? el.innerText.trim() : '';
})()`
}

var ordinalPrefix = regexp.MustCompile(`^\d+\.\s+`)

// stripOrdinal removes a leading "<number>. " problem-list prefix.
func stripOrdinal(s string) string {
	return ordinalPrefix.ReplaceAllString(s, "")
}

// stripSiteSuffix removes the trailing site-name suffix from a document
// title. Input without the suffix passes through unmodified.
func stripSiteSuffix(s string) string {
	if strings.Contains(s, siteTitleSuffix) {
		return strings.TrimSpace(strings.Replace(s, siteTitleSuffix, "", 1))
	}
	return s
}

// TitleStrategies is tried in order; the declared order is the contract.
var TitleStrategies = []Strategy{
	{Name: "title-large-link", Expr: queryText(`div.text-title-large a[href^="/problems/"]`), Post: stripOrdinal},
	{Name: "title-class-link", Expr: queryText(`a[href^="/problems/"][class*="title"]`), Post: stripOrdinal},
	{Name: "question-title", Expr: queryText(`[data-cy="question-title"]`), Post: stripOrdinal},
	{Name: "title-div-link", Expr: queryText(`div[class*="title"] a[href^="/problems/"]`), Post: stripOrdinal},
	{Name: "page-title", Expr: `(() => document.title || '')()`, Post: stripSiteSuffix},
}

var DescriptionStrategies = []Strategy{
	{Name: "description-tracked", Expr: queryText(`div.elfjS[data-track-load="description_content"]`)},
	{Name: "description-track-load", Expr: queryText(`div[data-track-load="description_content"]`)},
	{Name: "question-content", Expr: queryText(`.question-content`)},
	{Name: "description-key", Expr: queryText(`[data-key="description-content"]`)},
}

// CodeStrategies reads the Monaco editor. The first strategy rebuilds the
// code from rendered line elements, one editor line per output line, spans
// concatenated left-to-right; the second falls back to the container's
// visible text.
var CodeStrategies = []Strategy{
	{Name: "monaco-view-lines", Expr: `(() => {
	const lines = document.querySelectorAll('.view-line');
	if (!lines || lines.length === 0) return '';
	return Array.from(lines)
		.map(line => Array.from(line.querySelectorAll('span')).map(s => s.textContent).join(''))
		.join('\n')
		.trim();
})()`},
	{Name: "monaco-container", Expr: queryText(`.monaco-editor .view-lines`)},
}

// extract tries strategies in order and returns the first non-empty result
// after post-processing, or sentinel when every strategy comes up empty.
func extract(ctx context.Context, ev Evaluator, strategies []Strategy, sentinel string) (string, error) {
	for _, st := range strategies {
		text, err := ev.Eval(ctx, st.Expr)
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if st.Post != nil {
			text = st.Post(text)
		}
		if text == "" {
			continue
		}
		return text, nil
	}
	return sentinel, nil
}

// Collect scrapes the full problem snapshot from the page behind ctx.
// Sentinel values are not errors; only a failed evaluation (tab gone,
// renderer crashed) returns one.
func Collect(ctx context.Context, ev Evaluator) (Snapshot, error) {
	title, err := extract(ctx, ev, TitleStrategies, UnknownTitle)
	if err != nil {
		return Snapshot{}, err
	}
	description, err := extract(ctx, ev, DescriptionStrategies, NoDescription)
	if err != nil {
		return Snapshot{}, err
	}
	code, err := extract(ctx, ev, CodeStrategies, NoCode)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Title: title, Description: description, Solution: code}, nil
}

// IsProblemPage reports whether url looks like a LeetCode problem page.
func IsProblemPage(url string) bool {
	return strings.Contains(url, "leetcode.com/problems/")
}
