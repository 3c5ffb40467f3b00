// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper reconciliation
// pipeline: per-source extraction records, the canonical paper record they
// are reconciled into, and the venue context attached to it.
package types

import (
	"fmt"
	"slices"
	"strings"
)

// SourceID identifies the collaborator that produced an ExtractionRecord.
type SourceID string

const (
	// SourceStructuralA is the GROBID TEI structural extractor.
	SourceStructuralA SourceID = "structural_a"
	// SourceStructuralB is the CERMINE JATS structural extractor.
	SourceStructuralB SourceID = "structural_b"
	// SourceLLM is the LLM-based first-page extractor.
	SourceLLM SourceID = "llm"
	// SourceAuthoritative is the bibliographic index (DBLP).
	SourceAuthoritative SourceID = "authoritative"
)

// Priority returns the source's rank in tie-breaking order. Lower ranks win.
// Structural sources come before derived ones.
func (s SourceID) Priority() int {
	switch s {
	case SourceStructuralA:
		return 0
	case SourceStructuralB:
		return 1
	case SourceLLM:
		return 2
	case SourceAuthoritative:
		return 3
	default:
		return 99
	}
}

// Valid reports whether s is one of the known sources.
func (s SourceID) Valid() bool {
	return s.Priority() < 99
}

// Author is one author as reported by a source or as reconciled.
type Author struct {
	// Name is the author's display name.
	Name string `json:"name" yaml:"name"`

	// Affiliations lists affiliation strings in source order. Not deduplicated.
	Affiliations []string `json:"affiliations" yaml:"affiliations"`

	// Emails lists email addresses reported for the author.
	Emails []string `json:"emails" yaml:"emails"`
}

// Equal reports strict author equality: name, affiliations and emails all
// identical element by element. Nil and empty lists are equal. Used only
// for final roster deduplication.
func (a Author) Equal(b Author) bool {
	return a.Name == b.Name &&
		slices.Equal(a.Affiliations, b.Affiliations) &&
		slices.Equal(a.Emails, b.Emails)
}

// AffiliationText joins the affiliations for flat display ("; " separated).
func (a Author) AffiliationText() string {
	return strings.Join(a.Affiliations, "; ")
}

// EmailText joins the emails for flat display (", " separated).
func (a Author) EmailText() string {
	return strings.Join(a.Emails, ", ")
}

// ExtractionRecord is one source's view of a paper.
type ExtractionRecord struct {
	// Source discriminates the producing collaborator.
	Source SourceID `json:"source" yaml:"source"`

	// Title is the extracted title. Empty when the source found none.
	Title string `json:"title" yaml:"title"`

	// Authors lists the extracted authors in source order.
	Authors []Author `json:"authors" yaml:"authors"`

	// CandidateCount is the number of authoritative hits the record was
	// chosen from. Only set for SourceAuthoritative.
	CandidateCount int `json:"candidate_count,omitempty" yaml:"candidate_count,omitempty"`

	// Link is the authoritative entry's electronic-edition link. Only set
	// for SourceAuthoritative.
	Link string `json:"link,omitempty" yaml:"link,omitempty"`
}

// AuthorNames returns the record's author names in order.
func (r ExtractionRecord) AuthorNames() []string {
	names := make([]string, len(r.Authors))
	for i, a := range r.Authors {
		names[i] = a.Name
	}
	return names
}

// Validate reports a malformed record: unknown source, or an authoritative
// record with authors that carry affiliation or email data (the index only
// supplies names).
func (r ExtractionRecord) Validate() error {
	if !r.Source.Valid() {
		return fmt.Errorf("unknown source %q", r.Source)
	}
	if r.Source == SourceAuthoritative {
		for _, a := range r.Authors {
			if len(a.Affiliations) > 0 || len(a.Emails) > 0 {
				return fmt.Errorf("authoritative author %q carries affiliation or email data", a.Name)
			}
		}
	}
	return nil
}

// AuthoritativeHit is one entry returned by the bibliographic index.
type AuthoritativeHit struct {
	Title   string   `json:"title" yaml:"title"`
	Authors []string `json:"authors" yaml:"authors"`
	Link    string   `json:"link" yaml:"link"`
}

// PaperRef locates a paper in the catalogue.
type PaperRef struct {
	// Volume is the catalogue volume number (e.g. 3498).
	Volume int `json:"volume" yaml:"volume"`

	// Key is the paper's file stem within the volume (e.g. "paper1").
	Key string `json:"key" yaml:"key"`

	// URL is the paper's PDF URL. It also serves as the graph key together
	// with the title.
	URL string `json:"url" yaml:"url"`
}

// ID returns a stable identifier for the paper ("Vol-3498/paper1").
func (r PaperRef) ID() string {
	return fmt.Sprintf("Vol-%d/%s", r.Volume, r.Key)
}

// PDFPath returns the volume-relative PDF path ("Vol-3498/paper1.pdf"),
// which authoritative entries embed in their electronic-edition links.
func (r PaperRef) PDFPath() string {
	return r.ID() + ".pdf"
}

// VenueContext is the externally supplied proceeding/event context of a volume.
type VenueContext struct {
	Proceeding  string `json:"proceeding" yaml:"proceeding"`
	Event       string `json:"event" yaml:"event"`
	EventSeries string `json:"event_series,omitempty" yaml:"event_series,omitempty"`
}

// CanonicalPaper is the single reconciled record for a paper. An empty Title
// means the title could not be resolved and needs manual review.
type CanonicalPaper struct {
	ID         string   `json:"id" yaml:"id"`
	Title      string   `json:"title" yaml:"title"`
	Authors    []Author `json:"authors" yaml:"authors"`
	Proceeding string   `json:"proceeding" yaml:"proceeding"`
	Event      string   `json:"event" yaml:"event"`
	URL        string   `json:"url" yaml:"url"`
}
