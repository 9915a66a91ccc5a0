package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/browserwing/locator/models"
	"github.com/browserwing/locator/pkg/textmatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSupplier struct {
	candidates []textmatch.Candidate[string]
	err        error
	url        string
}

func (f *fakeSupplier) Candidates(ctx context.Context) ([]textmatch.Candidate[string], error) {
	return f.candidates, f.err
}

func (f *fakeSupplier) PageURL(ctx context.Context) string {
	return f.url
}

type inputCall struct {
	handle string
	text   string
	clear  bool
}

type fakeInvoker struct {
	clicked []string
	inputs  []inputCall
	err     error
}

func (f *fakeInvoker) Click(ctx context.Context, handle string) error {
	if f.err != nil {
		return f.err
	}
	f.clicked = append(f.clicked, handle)
	return nil
}

func (f *fakeInvoker) Input(ctx context.Context, handle string, text string, clear bool) error {
	if f.err != nil {
		return f.err
	}
	f.inputs = append(f.inputs, inputCall{handle: handle, text: text, clear: clear})
	return nil
}

type fakeHistory struct {
	records []*models.LocateRecord
}

func (f *fakeHistory) SaveLocateRecord(record *models.LocateRecord) error {
	f.records = append(f.records, record)
	return nil
}

func cands(pairs ...string) []textmatch.Candidate[string] {
	out := make([]textmatch.Candidate[string], 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, textmatch.Candidate[string]{Handle: pairs[i], Text: pairs[i+1]})
	}
	return out
}

func newTestLocator(t *testing.T, supplier *fakeSupplier, invoker *fakeInvoker, history *fakeHistory) *Locator[string] {
	t.Helper()
	m, err := textmatch.New[string](textmatch.DefaultConfig())
	require.NoError(t, err)
	opts := &LocatorOptions{}
	if history != nil {
		opts.History = history
	}
	return NewLocator[string](m, supplier, invoker, opts)
}

func TestLocator_Find(t *testing.T) {
	history := &fakeHistory{}
	supplier := &fakeSupplier{candidates: cands("h1", "Submit your application", "h2", "Submit"), url: "https://example.com/form"}
	l := newTestLocator(t, supplier, &fakeInvoker{}, history)

	results, err := l.Find(context.Background(), "submit")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "h2", results[0].Handle)

	require.Len(t, history.records, 1)
	rec := history.records[0]
	assert.Equal(t, models.LocateActionFind, rec.Action)
	assert.Equal(t, "https://example.com/form", rec.PageURL)
	assert.Equal(t, 2, rec.CandidateCount)
	assert.Equal(t, 2, rec.ResultCount)
	assert.Equal(t, "exact", rec.Strategy)
	assert.True(t, rec.Success)
}

func TestLocator_FindNoResults(t *testing.T) {
	history := &fakeHistory{}
	l := newTestLocator(t, &fakeSupplier{candidates: cands("h1", "Cancel")}, &fakeInvoker{}, history)

	results, err := l.Find(context.Background(), "xyz123")
	require.NoError(t, err)
	assert.Empty(t, results)

	require.Len(t, history.records, 1)
	assert.False(t, history.records[0].Success)
	assert.Equal(t, -1, history.records[0].Index)
}

func TestLocator_SupplierError(t *testing.T) {
	supplierErr := errors.New("page gone")
	history := &fakeHistory{}
	l := newTestLocator(t, &fakeSupplier{err: supplierErr}, &fakeInvoker{}, history)

	_, err := l.Find(context.Background(), "submit")
	assert.ErrorIs(t, err, supplierErr)

	res, err := l.ClickByText(context.Background(), "submit", -1)
	assert.ErrorIs(t, err, supplierErr)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Len(t, history.records, 2)
}

func TestLocator_ClickByText_Selection(t *testing.T) {
	tests := []struct {
		name       string
		candidates []textmatch.Candidate[string]
		target     string
		index      int
		wantHandle string
		wantErr    error
		ambiguous  bool
	}{
		{
			name:       "single result is clicked",
			candidates: cands("h1", "Submit your application", "h2", "Cancel"),
			target:     "application",
			index:      -1,
			wantHandle: "h1",
		},
		{
			name:       "unique high score is clicked",
			candidates: cands("h1", "OK button", "h2", "OK"),
			target:     "ok",
			index:      -1,
			wantHandle: "h2",
		},
		{
			name:       "tied top scores are ambiguous",
			candidates: cands("h1", "Submit form", "h2", "Submit order"),
			target:     "submit",
			index:      -1,
			ambiguous:  true,
		},
		{
			name:       "low confidence top is ambiguous",
			candidates: cands("h1", "Sign in now", "h2", "Sign in later"),
			target:     "in",
			index:      -1,
			ambiguous:  true,
		},
		{
			name:       "explicit index",
			candidates: cands("h1", "Submit form", "h2", "Submit order"),
			target:     "submit",
			index:      1,
			wantHandle: "h2",
		},
		{
			name:       "index out of range",
			candidates: cands("h1", "Submit form"),
			target:     "submit",
			index:      3,
			wantErr:    ErrIndexOutOfRange,
		},
		{
			name:       "no match",
			candidates: cands("h1", "Cancel"),
			target:     "xyz123",
			index:      -1,
			wantErr:    ErrNoMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoker := &fakeInvoker{}
			history := &fakeHistory{}
			l := newTestLocator(t, &fakeSupplier{candidates: tt.candidates}, invoker, history)

			res, err := l.ClickByText(context.Background(), tt.target, tt.index)
			require.NotNil(t, res)
			require.Len(t, history.records, 1)
			rec := history.records[0]
			assert.Equal(t, models.LocateActionClick, rec.Action)

			switch {
			case tt.ambiguous:
				var ambiguous *AmbiguousError
				require.ErrorAs(t, err, &ambiguous)
				assert.Len(t, ambiguous.Options, len(tt.candidates))
				assert.Contains(t, err.Error(), "index 0:")
				assert.Contains(t, res.Data, "options")
				assert.Empty(t, invoker.clicked)
				assert.False(t, rec.Success)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, res.Success)
				assert.Empty(t, invoker.clicked)
				assert.False(t, rec.Success)
			default:
				require.NoError(t, err)
				assert.True(t, res.Success)
				assert.Equal(t, []string{tt.wantHandle}, invoker.clicked)
				assert.True(t, rec.Success)
				assert.NotEmpty(t, rec.Strategy)
			}
		})
	}
}

func TestLocator_InputByText(t *testing.T) {
	invoker := &fakeInvoker{}
	l := newTestLocator(t, &fakeSupplier{candidates: cands("u", "Username", "p", "Password")}, invoker, nil)

	res, err := l.InputByText(context.Background(), "password", "secret", -1, true)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []inputCall{{handle: "p", text: "secret", clear: true}}, invoker.inputs)
	assert.Equal(t, textmatch.StrategyExact, res.Data["strategy"])
}

func TestLocator_InvokerError(t *testing.T) {
	invokeErr := errors.New("element detached")
	history := &fakeHistory{}
	l := newTestLocator(t, &fakeSupplier{candidates: cands("h1", "Submit")}, &fakeInvoker{err: invokeErr}, history)

	res, err := l.ClickByText(context.Background(), "submit", -1)
	assert.ErrorIs(t, err, invokeErr)
	assert.False(t, res.Success)

	require.Len(t, history.records, 1)
	assert.Equal(t, "Submit", history.records[0].MatchedText)
	assert.False(t, history.records[0].Success)
}

func TestLocator_Resolve(t *testing.T) {
	l := newTestLocator(t, &fakeSupplier{candidates: cands("h1", "Next page", "h2", "Previous page")}, &fakeInvoker{}, nil)

	result, err := l.Resolve(context.Background(), "next", -1)
	require.NoError(t, err)
	assert.Equal(t, "h1", result.Handle)
	assert.Equal(t, textmatch.StrategyPrefix, result.Strategy)
}

func TestLocator_AutoActScore(t *testing.T) {
	m, err := textmatch.New[string](textmatch.DefaultConfig())
	require.NoError(t, err)
	invoker := &fakeInvoker{}
	supplier := &fakeSupplier{candidates: cands("h1", "Sign in now", "h2", "Sign up")}
	l := NewLocator[string](m, supplier, invoker, &LocatorOptions{AutoActScore: 0.5})

	_, err = l.ClickByText(context.Background(), "sign in", -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"h1"}, invoker.clicked)
}

func TestMatchOptions(t *testing.T) {
	m, err := textmatch.New[string](textmatch.DefaultConfig())
	require.NoError(t, err)

	options := matchOptions(m.MatchElements("save", cands("a", "Save draft", "b", "Save")))
	require.Len(t, options, 2)
	assert.Equal(t, 0, options[0].Index)
	assert.Equal(t, "Save", options[0].Text)
	assert.Equal(t, textmatch.StrategyExact, options[0].Strategy)
	assert.Equal(t, 1.0, options[0].Score)
	assert.Contains(t, options[0].Reason, "exact match")
	assert.Equal(t, 1, options[1].Index)
	assert.Equal(t, textmatch.StrategyPrefix, options[1].Strategy)
	assert.Contains(t, options[1].Reason, "prefix match")
}

func TestLocator_LongLabelMatchesInFull(t *testing.T) {
	label := strings.Repeat("Accept the terms of service and continue ", 4)
	require.Greater(t, utf8.RuneCountInString(label), 100)

	history := &fakeHistory{}
	invoker := &fakeInvoker{}
	supplier := &fakeSupplier{candidates: cands("long", label, "other", "Cancel")}
	l := newTestLocator(t, supplier, invoker, history)

	res, err := l.ClickByText(context.Background(), label, -1)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, textmatch.StrategyExact, res.Data["strategy"])
	assert.Equal(t, label, res.Data["matched_text"])
	assert.Equal(t, []string{"long"}, invoker.clicked)

	require.Len(t, history.records, 1)
	assert.Equal(t, label, history.records[0].MatchedText)
}

func TestLocator_List(t *testing.T) {
	label := strings.Repeat("x", 30)
	supplier := &fakeSupplier{candidates: cands("a", "Sign in", "b", label, "c", ""), url: "https://example.com/login"}
	l := newTestLocator(t, supplier, &fakeInvoker{}, nil)

	list, err := l.List(context.Background(), ElementModeClickable, 10)
	require.NoError(t, err)
	assert.Equal(t, ElementModeClickable, list.Mode)
	assert.Equal(t, "https://example.com/login", list.PageURL)
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, []ElementInfo{
		{Index: 0, Text: "Sign in"},
		{Index: 1, Text: strings.Repeat("x", 10)},
		{Index: 2, Text: ""},
	}, list.Elements)

	// 展示截断不影响匹配
	results, err := l.Find(context.Background(), label)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "b", results[0].Handle)
	assert.Equal(t, textmatch.StrategyExact, results[0].Strategy)

	supplier.err = errors.New("page gone")
	_, err = l.List(context.Background(), ElementModeClickable, 10)
	assert.ErrorIs(t, err, supplier.err)
}
