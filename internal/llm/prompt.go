// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"text/template"
)

var titlePromptTmpl = template.Must(template.New("title").Parse(`You are an expert in scholarly metadata extraction.
Extract the title of the paper from the first page given below.
Output only the title. Do not output any other text.

Text:
{{.Text}}
`))

var authorsPromptTmpl = template.Must(template.New("authors").Parse(`You are an expert in scholarly metadata extraction.
Extract the authors of the paper, their affiliations and their email addresses from the first page given below.
Take care with umlauts and accented characters that the text extraction may have split: "F¨orstner" is "Förstner", "Jos´e" is "José".
Do not invent email addresses. If no email is given for an author, use an empty list.

Respond with a JSON array only, one object per author, in paper order:
[{"name": "John Doe", "affiliation": ["University of Oxford", "Stanford University"], "email": ["john.doe@oxford.ac.uk"]},
 {"name": "Jane Doe", "affiliation": ["University of Cambridge"], "email": []}]

Text:
{{.Text}}
`))

var reformatPromptTmpl = template.Must(template.New("reformat").Parse(`The text below was meant to be a JSON array of authors, each an object with "name" (string), "affiliation" (list of strings) and "email" (list of strings).
Rewrite it as valid JSON in exactly that shape. Output only the JSON array.

{{.Text}}
`))

func render(tmpl *template.Template, text string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Text string }{Text: text}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
