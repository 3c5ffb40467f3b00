// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package structural

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/pdiddy/paper-reconciler/internal/normalize"
	"github.com/pdiddy/paper-reconciler/pkg/types"
)

// jatsArticle captures the front matter of a CERMINE JATS document.
type jatsArticle struct {
	XMLName  xml.Name      `xml:"article"`
	Title    text          `xml:"front>article-meta>title-group>article-title"`
	Contribs []jatsContrib `xml:"front>article-meta>contrib-group>contrib"`
	Affs     []jatsAff     `xml:"front>article-meta>contrib-group>aff"`
}

type jatsContrib struct {
	Type   string     `xml:"contrib-type,attr"`
	Name   text       `xml:"string-name"`
	Emails []text     `xml:"email"`
	Xrefs  []jatsXref `xml:"xref"`
}

type jatsXref struct {
	RefType string `xml:"ref-type,attr"`
	RID     string `xml:"rid,attr"`
	Text    string `xml:",chardata"`
}

type jatsAff struct {
	ID           string `xml:"id,attr"`
	Institutions []text `xml:"institution"`
	AddrLines    []text `xml:"addr-line"`
	Countries    []text `xml:"country"`
}

// ParseJATS parses a CERMINE JATS document. Each contrib yields an Author
// with its string-name, emails, and one affiliation string per referenced
// aff element. Names and affiliations pass through mojibake repair.
func ParseJATS(data []byte) (types.ExtractionRecord, error) {
	var doc jatsArticle
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return types.ExtractionRecord{}, fmt.Errorf("decoding JATS: %w", err)
	}

	affs := make(map[string]jatsAff, len(doc.Affs))
	for _, a := range doc.Affs {
		affs[a.ID] = a
	}

	rec := types.ExtractionRecord{Source: types.SourceStructuralB, Title: doc.Title.String()}
	for _, c := range doc.Contribs {
		if c.Type != "" && c.Type != "author" {
			continue
		}
		author := types.Author{Name: normalize.RepairMojibake(c.Name.String())}
		for _, e := range c.Emails {
			if s := e.String(); s != "" {
				author.Emails = append(author.Emails, s)
			}
		}
		for _, x := range c.Xrefs {
			if x.RefType != "" && x.RefType != "aff" {
				continue
			}
			aff, ok := affs[x.id()]
			if !ok {
				continue
			}
			if s := aff.String(); s != "" {
				author.Affiliations = append(author.Affiliations, normalize.RepairMojibake(s))
			}
		}
		rec.Authors = append(rec.Authors, author)
	}
	return rec, nil
}

func (x jatsXref) id() string {
	if x.RID != "" {
		return x.RID
	}
	return "aff" + strings.TrimSpace(x.Text)
}

// String combines institutions with address lines and countries. With
// matching institution and address counts each part is institution and
// address; without address lines each part is the institution alone. A
// country is appended per part when the counts match, or the single
// country to every part. Other shapes keep institutions only.
func (a jatsAff) String() string {
	ni, na, nc := len(a.Institutions), len(a.AddrLines), len(a.Countries)
	parts := make([]string, 0, ni)
	for i := 0; i < ni; i++ {
		fields := []string{a.Institutions[i].String()}
		if ni == na || na == 0 {
			if ni == na {
				fields = append(fields, a.AddrLines[i].String())
			}
			switch {
			case nc == ni:
				fields = append(fields, a.Countries[i].String())
			case nc == 1:
				fields = append(fields, a.Countries[0].String())
			}
		}
		if p := trimPart(joinNonEmpty(", ", fields...)); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// trimPart strips spaces, commas and hyphens from both ends.
func trimPart(s string) string {
	return strings.Trim(s, " ,-")
}
