// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package structural

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/pdiddy/paper-reconciler/internal/normalize"
	"github.com/pdiddy/paper-reconciler/pkg/types"
)

// teiDocument captures the header fields of a GROBID TEI document.
type teiDocument struct {
	XMLName xml.Name    `xml:"TEI"`
	Titles  []teiTitle  `xml:"teiHeader>fileDesc>titleStmt>title"`
	Authors []teiAuthor `xml:"teiHeader>fileDesc>sourceDesc>biblStruct>analytic>author"`
}

type teiTitle struct {
	Type string
	Text string
}

func (t *teiTitle) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, a := range start.Attr {
		if a.Name.Local == "type" {
			t.Type = a.Value
		}
	}
	var s text
	if err := s.UnmarshalXML(d, start); err != nil {
		return err
	}
	t.Text = s.String()
	return nil
}

type teiAuthor struct {
	PersName     *teiPersName     `xml:"persName"`
	Emails       []text           `xml:"email"`
	Affiliations []teiAffiliation `xml:"affiliation"`
}

type teiPersName struct {
	Forenames []teiForename `xml:"forename"`
	Surname   text          `xml:"surname"`
}

type teiForename struct {
	Type string `xml:"type,attr"`
	Text string `xml:",chardata"`
}

type teiAffiliation struct {
	OrgNames []teiOrgName `xml:"orgName"`
}

type teiOrgName struct {
	Type string `xml:"type,attr"`
	Text string `xml:",chardata"`
}

// ParseTEI parses a GROBID TEI document. The title is the main title of
// the title statement. Each author with a persName yields one Author whose
// name is first forename, middle forenames and surname; each affiliation
// becomes laboratory, department and institution joined by ", ".
func ParseTEI(data []byte) (types.ExtractionRecord, error) {
	var doc teiDocument
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return types.ExtractionRecord{}, fmt.Errorf("decoding TEI: %w", err)
	}

	rec := types.ExtractionRecord{Source: types.SourceStructuralA, Title: teiMainTitle(doc.Titles)}
	for _, a := range doc.Authors {
		if a.PersName == nil {
			continue
		}
		name := normalize.RepairMojibake(a.PersName.fullName())
		if name == "" {
			continue
		}
		author := types.Author{Name: name}
		for _, aff := range a.Affiliations {
			if s := aff.String(); s != "" {
				author.Affiliations = append(author.Affiliations, normalize.RepairMojibake(s))
			}
		}
		for _, e := range a.Emails {
			if s := e.String(); s != "" {
				author.Emails = append(author.Emails, s)
			}
		}
		rec.Authors = append(rec.Authors, author)
	}
	return rec, nil
}

func teiMainTitle(titles []teiTitle) string {
	for _, t := range titles {
		if t.Type == "main" || t.Type == "" {
			return t.Text
		}
	}
	return ""
}

func (p *teiPersName) fullName() string {
	var first, middle []string
	for _, f := range p.Forenames {
		if f.Type == "middle" {
			middle = append(middle, f.Text)
		} else {
			first = append(first, f.Text)
		}
	}
	parts := append(first, middle...)
	parts = append(parts, p.Surname.String())
	return joinNonEmpty(" ", parts...)
}

func (a teiAffiliation) String() string {
	var lab, dept, inst string
	for _, o := range a.OrgNames {
		switch o.Type {
		case "laboratory":
			if lab == "" {
				lab = o.Text
			}
		case "department":
			if dept == "" {
				dept = o.Text
			}
		case "institution":
			if inst == "" {
				inst = o.Text
			}
		}
	}
	return joinNonEmpty(", ", lab, dept, inst)
}
