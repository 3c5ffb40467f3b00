// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package structural turns the structured-XML renderings of a paper into
// extraction records. Two dialects are supported: GROBID TEI (source A)
// and CERMINE JATS (source B).
package structural

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/pdiddy/paper-reconciler/pkg/types"
)

// Artifact extensions served by the catalogue next to each paper's PDF.
const (
	ExtGROBID  = ".grobid"
	ExtCERMINE = ".cermine"
)

// Fetcher retrieves a paper's artifact by extension.
type Fetcher interface {
	Fetch(ctx context.Context, ref types.PaperRef, ext string) ([]byte, error)
}

// ParseFunc parses one artifact into a record.
type ParseFunc func(data []byte) (types.ExtractionRecord, error)

// Extractor fetches and parses one artifact dialect.
type Extractor struct {
	source  types.SourceID
	ext     string
	parse   ParseFunc
	fetcher Fetcher
}

// NewGROBID returns the TEI extractor (source A).
func NewGROBID(f Fetcher) *Extractor {
	return &Extractor{source: types.SourceStructuralA, ext: ExtGROBID, parse: ParseTEI, fetcher: f}
}

// NewCERMINE returns the JATS extractor (source B).
func NewCERMINE(f Fetcher) *Extractor {
	return &Extractor{source: types.SourceStructuralB, ext: ExtCERMINE, parse: ParseJATS, fetcher: f}
}

// Source returns the source id of the records this extractor produces.
func (e *Extractor) Source() types.SourceID {
	return e.source
}

// Extract fetches ref's artifact and parses it.
func (e *Extractor) Extract(ctx context.Context, ref types.PaperRef) (types.ExtractionRecord, error) {
	data, err := e.fetcher.Fetch(ctx, ref, e.ext)
	if err != nil {
		return types.ExtractionRecord{}, fmt.Errorf("fetching %s%s: %w", ref.ID(), e.ext, err)
	}
	rec, err := e.parse(data)
	if err != nil {
		return types.ExtractionRecord{}, fmt.Errorf("parsing %s%s: %w", ref.ID(), e.ext, err)
	}
	return rec, nil
}

// text collects all character data of an element, including nested
// elements, with whitespace collapsed.
type text string

func (t *text) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case xml.CharData:
			b.Write(v)
		case xml.StartElement:
			depth++
			b.WriteByte(' ')
		case xml.EndElement:
			if depth == 0 {
				*t = text(strings.Join(strings.Fields(b.String()), " "))
				return nil
			}
			depth--
		}
	}
}

func (t text) String() string {
	return string(t)
}

// joinNonEmpty joins the non-blank parts with sep.
func joinNonEmpty(sep string, parts ...string) string {
	var keep []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keep = append(keep, p)
		}
	}
	return strings.Join(keep, sep)
}
