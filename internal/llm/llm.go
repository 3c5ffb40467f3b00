// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm extracts a paper's title and author roster from the text of
// its first page with a large language model. It is the lowest-priority
// extraction source and the only one that reads the PDF itself.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pdiddy/paper-reconciler/internal/convert"
	"github.com/pdiddy/paper-reconciler/internal/logging"
	"github.com/pdiddy/paper-reconciler/internal/normalize"
	"github.com/pdiddy/paper-reconciler/pkg/types"
)

// backoffBase is the first retry delay. Tests override it.
var backoffBase = 1 * time.Second

// PDFFetcher downloads a paper's artifact by extension.
type PDFFetcher interface {
	Fetch(ctx context.Context, ref types.PaperRef, ext string) ([]byte, error)
}

// Extractor is the LLM extraction source.
type Extractor struct {
	backend    Backend
	fetcher    PDFFetcher
	converter  convert.Converter
	maxRetries int
	log        *logging.Logger
}

// New builds an extractor. maxRetries of 0 means 3.
func New(backend Backend, fetcher PDFFetcher, converter convert.Converter, maxRetries int, log *logging.Logger) *Extractor {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Extractor{
		backend:    backend,
		fetcher:    fetcher,
		converter:  converter,
		maxRetries: maxRetries,
		log:        logging.OrNop(log).With("source", string(types.SourceLLM)),
	}
}

// Source returns types.SourceLLM.
func (e *Extractor) Source() types.SourceID {
	return types.SourceLLM
}

// Extract reads ref's first page and asks the model for its title and
// authors.
func (e *Extractor) Extract(ctx context.Context, ref types.PaperRef) (types.ExtractionRecord, error) {
	page, err := e.firstPage(ctx, ref)
	if err != nil {
		return types.ExtractionRecord{}, err
	}
	return e.ExtractText(ctx, page)
}

func (e *Extractor) firstPage(ctx context.Context, ref types.PaperRef) (string, error) {
	pdf, err := e.fetcher.Fetch(ctx, ref, ".pdf")
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", ref.PDFPath(), err)
	}
	text, err := e.converter.Convert(ctx, pdf)
	if err != nil {
		return "", fmt.Errorf("converting %s: %w", ref.PDFPath(), err)
	}
	return convert.FirstPage(text, convert.FirstPageLimit), nil
}

// ExtractText runs both prompts against already extracted first-page text.
func (e *Extractor) ExtractText(ctx context.Context, page string) (types.ExtractionRecord, error) {
	rec := types.ExtractionRecord{Source: types.SourceLLM}
	if strings.TrimSpace(page) == "" {
		return rec, fmt.Errorf("first page is empty")
	}

	prompt, err := render(titlePromptTmpl, page)
	if err != nil {
		return rec, fmt.Errorf("rendering title prompt: %w", err)
	}
	reply, err := e.complete(ctx, prompt)
	if err != nil {
		return rec, fmt.Errorf("title: %w", err)
	}
	rec.Title = cleanTitle(reply)

	authors, err := e.authors(ctx, page)
	if err != nil {
		return rec, fmt.Errorf("authors: %w", err)
	}
	rec.Authors = authors

	e.log.Debug("llm extraction", "title", rec.Title, "authors", len(rec.Authors))
	return rec, nil
}

// authors asks for the roster and, when the reply is not parseable JSON,
// asks once more for the same reply reformatted.
func (e *Extractor) authors(ctx context.Context, page string) ([]types.Author, error) {
	prompt, err := render(authorsPromptTmpl, page)
	if err != nil {
		return nil, fmt.Errorf("rendering authors prompt: %w", err)
	}
	reply, err := e.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	authors, perr := ParseAuthors(reply)
	if perr == nil {
		return authors, nil
	}

	e.log.Warn("authors reply is not JSON, asking to reformat", "error", perr)
	prompt, err = render(reformatPromptTmpl, reply)
	if err != nil {
		return nil, fmt.Errorf("rendering reformat prompt: %w", err)
	}
	reply, err = e.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	authors, err = ParseAuthors(reply)
	if err != nil {
		return nil, fmt.Errorf("after reformat: %w", err)
	}
	return authors, nil
}

func (e *Extractor) complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}
		reply, err := e.backend.Complete(ctx, prompt)
		if err == nil {
			return reply, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", e.maxRetries, lastErr)
}

// cleanTitle strips the decorations models like to add around a bare title.
func cleanTitle(reply string) string {
	t := strings.TrimSpace(stripFences(reply))
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		t = t[:i]
	}
	for _, prefix := range []string{"Title:", "title:", "TITLE:"} {
		t = strings.TrimPrefix(t, prefix)
	}
	t = strings.Trim(strings.TrimSpace(t), `"'*`)
	return strings.TrimSpace(t)
}

// llmAuthor is one element of the authors reply. Models return a bare
// string where a list was asked for often enough to accept both.
type llmAuthor struct {
	Name        string     `json:"name"`
	Affiliation stringList `json:"affiliation"`
	Email       stringList `json:"email"`
}

type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one *string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	if one != nil && *one != "" {
		*l = []string{*one}
	} else {
		*l = nil
	}
	return nil
}

// ParseAuthors reads an authors reply: code fences are dropped and the
// outermost JSON array is decoded. Names and affiliations are repaired
// for mojibake; blank entries are dropped.
func ParseAuthors(reply string) ([]types.Author, error) {
	body := stripFences(reply)
	start, end := strings.IndexByte(body, '['), strings.LastIndexByte(body, ']')
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in reply")
	}

	var raw []llmAuthor
	if err := json.Unmarshal([]byte(body[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("parsing authors JSON: %w", err)
	}

	authors := make([]types.Author, 0, len(raw))
	for _, r := range raw {
		name := normalize.RepairMojibake(strings.TrimSpace(r.Name))
		if name == "" {
			continue
		}
		a := types.Author{Name: name}
		for _, aff := range r.Affiliation {
			if aff = normalize.RepairMojibake(strings.TrimSpace(aff)); aff != "" {
				a.Affiliations = append(a.Affiliations, aff)
			}
		}
		for _, em := range r.Email {
			if em = strings.TrimSpace(em); em != "" {
				a.Emails = append(a.Emails, em)
			}
		}
		authors = append(authors, a)
	}
	return authors, nil
}

// stripFences removes a surrounding markdown code fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
