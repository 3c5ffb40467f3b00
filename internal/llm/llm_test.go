// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-reconciler/internal/convert"
	"github.com/pdiddy/paper-reconciler/pkg/types"
)

func init() {
	backoffBase = time.Millisecond
}

// scriptBackend answers prompts from a queue; an error entry fails that call.
type scriptBackend struct {
	replies []any
	prompts []string
}

func (s *scriptBackend) Complete(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.replies) == 0 {
		return "", errors.New("script exhausted")
	}
	next := s.replies[0]
	s.replies = s.replies[1:]
	if err, ok := next.(error); ok {
		return "", err
	}
	return next.(string), nil
}

type fakeFetcher struct {
	data []byte
	err  error
	ext  string
}

func (f *fakeFetcher) Fetch(_ context.Context, _ types.PaperRef, ext string) ([]byte, error) {
	f.ext = ext
	return f.data, f.err
}

const authorsJSON = `[{"name": "Jane Doe", "affiliation": ["Univ. A"], "email": ["jane@a.edu"]},
{"name": "Konrad U. F¨orstner", "affiliation": "ZB MED", "email": null}]`

func TestExtract(t *testing.T) {
	be := &scriptBackend{replies: []any{"Title: \"Reconciling Metadata\"", "```json\n" + authorsJSON + "\n```"}}
	fetch := &fakeFetcher{data: []byte("%PDF")}
	conv := convert.ConverterFunc(func(context.Context, []byte) (string, error) {
		return "Reconciling Metadata\nJane Doe\fsecond page", nil
	})

	rec, err := New(be, fetch, conv, 1, nil).Extract(context.Background(), types.PaperRef{Volume: 1, Key: "p"})
	require.NoError(t, err)

	assert.Equal(t, ".pdf", fetch.ext)
	assert.Equal(t, types.SourceLLM, rec.Source)
	assert.Equal(t, "Reconciling Metadata", rec.Title)
	require.Len(t, rec.Authors, 2)
	assert.Equal(t, types.Author{Name: "Jane Doe", Affiliations: []string{"Univ. A"}, Emails: []string{"jane@a.edu"}}, rec.Authors[0])
	assert.Equal(t, "Konrad U. Förstner", rec.Authors[1].Name)
	assert.Equal(t, []string{"ZB MED"}, rec.Authors[1].Affiliations)
	assert.Empty(t, rec.Authors[1].Emails)

	require.Len(t, be.prompts, 2)
	assert.Contains(t, be.prompts[0], "Jane Doe")
	assert.NotContains(t, be.prompts[0], "second page")
}

func TestExtract_ReformatOnce(t *testing.T) {
	be := &scriptBackend{replies: []any{
		"A Title",
		"Authors: Jane Doe (Univ. A)",
		`[{"name": "Jane Doe", "affiliation": ["Univ. A"], "email": []}]`,
	}}
	rec, err := New(be, nil, nil, 1, nil).ExtractText(context.Background(), "page")
	require.NoError(t, err)
	require.Len(t, rec.Authors, 1)
	assert.Contains(t, be.prompts[2], "Authors: Jane Doe (Univ. A)")
}

func TestExtract_ReformatFails(t *testing.T) {
	be := &scriptBackend{replies: []any{"A Title", "nope", "still nope"}}
	rec, err := New(be, nil, nil, 1, nil).ExtractText(context.Background(), "page")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after reformat")
	assert.Equal(t, "A Title", rec.Title)
}

func TestExtract_RetriesBackend(t *testing.T) {
	be := &scriptBackend{replies: []any{errors.New("503"), "A Title", "[]"}}
	rec, err := New(be, nil, nil, 2, nil).ExtractText(context.Background(), "page")
	require.NoError(t, err)
	assert.Equal(t, "A Title", rec.Title)
	assert.Empty(t, rec.Authors)
}

func TestExtract_RetriesExhausted(t *testing.T) {
	be := &scriptBackend{replies: []any{errors.New("a"), errors.New("b")}}
	_, err := New(be, nil, nil, 1, nil).ExtractText(context.Background(), "page")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 1 retries")
}

func TestExtract_FetchAndConvertErrors(t *testing.T) {
	ref := types.PaperRef{Volume: 3, Key: "k"}
	_, err := New(&scriptBackend{}, &fakeFetcher{err: errors.New("404")}, nil, 1, nil).Extract(context.Background(), ref)
	assert.ErrorContains(t, err, "Vol-3/k.pdf")

	conv := convert.ConverterFunc(func(context.Context, []byte) (string, error) { return "", errors.New("no pdftotext") })
	_, err = New(&scriptBackend{}, &fakeFetcher{}, conv, 1, nil).Extract(context.Background(), ref)
	assert.ErrorContains(t, err, "no pdftotext")

	_, err = New(&scriptBackend{}, nil, nil, 1, nil).ExtractText(context.Background(), "  ")
	assert.ErrorContains(t, err, "empty")
}

func TestParseAuthors(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    []types.Author
		wantErr bool
	}{
		{
			name:  "prose around array",
			reply: "Here you go:\n[{\"name\": \"A B\", \"affiliation\": [], \"email\": [\"a@b.org\"]}]\nHope this helps.",
			want:  []types.Author{{Name: "A B", Emails: []string{"a@b.org"}}},
		},
		{
			name:  "blank names dropped",
			reply: `[{"name": " "}, {"name": "C D", "affiliation": ["", "X"]}]`,
			want:  []types.Author{{Name: "C D", Affiliations: []string{"X"}}},
		},
		{name: "empty array", reply: "[]", want: []types.Author{}},
		{name: "no array", reply: "none", wantErr: true},
		{name: "bad json", reply: "[{name: x}]", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAuthors(tt.reply)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "Deep Learning", cleanTitle("Title: Deep Learning"))
	assert.Equal(t, "Deep Learning", cleanTitle("\"Deep Learning\"\nby Jane Doe"))
	assert.Equal(t, "Deep Learning", cleanTitle("**Deep Learning**"))
}

func TestOpenAIBackend(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, openai.GPT4oMini, req.Model)

		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: "assistant", Content: "  A Title \n"},
			}},
		})
	}))
	defer ts.Close()

	be, err := NewBackend(types.LLMConfig{Provider: types.ProviderOpenAI, APIKey: "test-key", BaseURL: ts.URL})
	require.NoError(t, err)
	out, err := be.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "A Title", out)
}

func TestClaudeBackend(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ak", r.Header.Get("x-api-key"))
		var req claudeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "prompt", req.Messages[0].Content)
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"content": [{"type": "text", "text": "A Title"}]}`))
	}))
	defer ts.Close()

	old := claudeAPIURL
	claudeAPIURL = ts.URL
	defer func() { claudeAPIURL = old }()

	be, err := NewClaude(types.LLMConfig{APIKey: "ak", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, defaultClaudeModel, be.model)

	out, err := be.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "A Title", out)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestNewBackend_Errors(t *testing.T) {
	_, err := NewBackend(types.LLMConfig{Provider: types.ProviderNone})
	assert.ErrorContains(t, err, "disabled")
	_, err = NewBackend(types.LLMConfig{Provider: "mystery"})
	assert.ErrorContains(t, err, "unknown")
	_, err = NewBackend(types.LLMConfig{Provider: types.ProviderOpenAI})
	assert.ErrorContains(t, err, "API key")
	_, err = NewBackend(types.LLMConfig{Provider: types.ProviderClaude})
	assert.ErrorContains(t, err, "API key")
	assert.True(t, strings.HasPrefix(defaultClaudeModel, "claude"))
}
