// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble builds one canonical paper record from the extraction
// records of its sources. It is the only recovery point of resolution: a
// failure while resolving one paper degrades that paper and never escapes
// to the caller.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/paper-reconciler/internal/logging"
	"github.com/pdiddy/paper-reconciler/internal/normalize"
	"github.com/pdiddy/paper-reconciler/internal/resolve"
	"github.com/pdiddy/paper-reconciler/pkg/types"
)

// Error kinds. Use errors.Is against Result.Err or Issue.Err.
var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrAmbiguous         = errors.New("ambiguous merge")
	ErrMalformed         = errors.New("malformed input")
)

// IssueKind classifies an Issue.
type IssueKind string

const (
	IssueSourceUnavailable IssueKind = "source_unavailable"
	IssueAmbiguous         IssueKind = "ambiguous"
	IssueMalformed         IssueKind = "malformed"
)

// Issue is one problem met while assembling a paper.
type Issue struct {
	Kind IssueKind `json:"kind" yaml:"kind"`

	// Field names what was affected: a source id, "title", "authors" or
	// "affiliations".
	Field string `json:"field" yaml:"field"`

	Detail string `json:"detail" yaml:"detail"`
}

// Err returns the issue as an error wrapping its kind's sentinel.
func (i Issue) Err() error {
	var base error
	switch i.Kind {
	case IssueSourceUnavailable:
		base = ErrSourceUnavailable
	case IssueAmbiguous:
		base = ErrAmbiguous
	default:
		base = ErrMalformed
	}
	return fmt.Errorf("%s: %s: %w", i.Field, i.Detail, base)
}

// SourceUnavailable builds the issue for a collaborator that returned no
// record.
func SourceUnavailable(src types.SourceID, err error) Issue {
	return Issue{Kind: IssueSourceUnavailable, Field: string(src), Detail: err.Error()}
}

// Status is the review status of an assembled paper.
type Status string

const (
	StatusResolved    Status = "resolved"
	StatusNeedsReview Status = "needs_review"
	StatusFailed      Status = "failed"
)

// Result is the outcome of assembling one paper. Err is set only when the
// paper failed (malformed input or a crash); an unresolved title or
// affiliation is reported through Issues with a nil Err.
type Result struct {
	Paper  types.CanonicalPaper `json:"paper" yaml:"paper"`
	Issues []Issue              `json:"issues,omitempty" yaml:"issues,omitempty"`
	Err    error                `json:"-" yaml:"-"`
}

// NeedsReview reports whether the paper has an empty title or an
// ambiguous merge.
func (r Result) NeedsReview() bool {
	if r.Paper.Title == "" {
		return true
	}
	for _, i := range r.Issues {
		if i.Kind == IssueAmbiguous {
			return true
		}
	}
	return false
}

// Status classifies the result.
func (r Result) Status() Status {
	switch {
	case r.Err != nil:
		return StatusFailed
	case r.NeedsReview():
		return StatusNeedsReview
	default:
		return StatusResolved
	}
}

// Assembler resolves papers. It is safe for concurrent use when its lookup
// and speller are.
type Assembler struct {
	titles  *resolve.TitleResolver
	authors *resolve.AuthorResolver
	lookup  resolve.Lookup
	log     *logging.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLookup sets the authoritative lookup consulted when the records carry
// no authoritative record.
func WithLookup(l resolve.Lookup) Option {
	return func(a *Assembler) { a.lookup = l }
}

// WithSpeller sets the spelling corrector used by title resolution.
func WithSpeller(sp normalize.Speller) Option {
	return func(a *Assembler) { a.titles = resolve.NewTitleResolver(sp) }
}

// WithPolicy sets the affiliation and email merge policy.
func WithPolicy(p resolve.Policy) Option {
	return func(a *Assembler) { a.authors = &resolve.AuthorResolver{Policy: p} }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *Assembler) { a.log = logging.OrNop(l) }
}

// New returns an Assembler with the embedded dictionary, the default merge
// policy and no lookup.
func New(opts ...Option) *Assembler {
	a := &Assembler{log: logging.Nop()}
	for _, o := range opts {
		o(a)
	}
	if a.titles == nil {
		a.titles = resolve.NewTitleResolver(nil)
	}
	if a.authors == nil {
		a.authors = resolve.NewAuthorResolver()
	}
	return a
}

// Assemble resolves the title and roster of one paper from its records and
// attaches the venue context verbatim. Calling it twice with the same
// inputs and lookup answers yields the same result.
func (a *Assembler) Assemble(ctx context.Context, ref types.PaperRef, records []types.ExtractionRecord, venue types.VenueContext) (res Result) {
	log := a.log.With("paper", ref.ID())
	res.Paper = types.CanonicalPaper{
		ID:         ref.ID(),
		Authors:    []types.Author{},
		Proceeding: venue.Proceeding,
		Event:      venue.Event,
		URL:        ref.URL,
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error("resolution crashed", "panic", p)
			res.Paper.Title = ""
			res.Paper.Authors = []types.Author{}
			res.Issues = append(res.Issues, Issue{Kind: IssueMalformed, Field: "paper", Detail: fmt.Sprint(p)})
			res.Err = fmt.Errorf("%s: %w: %v", ref.ID(), ErrMalformed, p)
		}
	}()

	for _, r := range records {
		if err := r.Validate(); err != nil {
			log.Warn("malformed record", "source", r.Source, "error", err)
			res.Issues = append(res.Issues, Issue{Kind: IssueMalformed, Field: string(r.Source), Detail: err.Error()})
			res.Err = fmt.Errorf("%s: %w: %v", ref.ID(), ErrMalformed, err)
			return res
		}
	}

	candidates := resolve.Candidates(records)
	authority := findAuthority(records)
	if authority == nil && a.lookup != nil {
		rec, ok, err := resolve.Authority(ctx, a.lookup, candidates, ref.PDFPath())
		switch {
		case err != nil:
			log.Warn("authoritative lookup failed", "error", err)
			res.Issues = append(res.Issues, SourceUnavailable(types.SourceAuthoritative, err))
		case ok:
			authority = &rec
			records = append(append([]types.ExtractionRecord(nil), records...), rec)
		}
	}

	title := a.titles.Resolve(candidates, authority)
	if title.Unresolved() && len(title.Conflicts) > 0 {
		res.Issues = append(res.Issues, Issue{Kind: IssueAmbiguous, Field: "title", Detail: strings.Join(title.Conflicts, "; ")})
	} else if len(title.Conflicts) > 0 {
		log.Debug("title conflict settled by later source", "conflicts", title.Conflicts, "title", title.Title)
	}

	authors := a.authors.Resolve(records)
	for _, c := range authors.Conflicts {
		res.Issues = append(res.Issues, Issue{Kind: IssueAmbiguous, Field: c.Field, Detail: c.String()})
	}

	res.Paper.Title = title.Title
	res.Paper.Authors = authors.Authors
	log.Debug("assembled", "title_rule", title.Rule, "authors", len(authors.Authors), "issues", len(res.Issues))
	return res
}

func findAuthority(records []types.ExtractionRecord) *types.ExtractionRecord {
	for i := range records {
		if records[i].Source == types.SourceAuthoritative {
			return &records[i]
		}
	}
	return nil
}
