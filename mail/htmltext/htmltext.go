// Package htmltext derives a plain text body from an HTML body.
package htmltext

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	leadingSpace = regexp.MustCompile(`(?m)^[ \t]+`)
	blankLines   = regexp.MustCompile(`\n{2,}`)
	lineBreaks   = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// Convert returns the text of source. Only the <body> content is used when
// a body element exists. Style and script elements are dropped, entities are
// decoded, leading indentation is removed from every line and runs of blank
// lines collapse into one.
func Convert(source string) string {
	z := html.NewTokenizer(strings.NewReader(source))

	var (
		all, body strings.Builder
		inBody    bool
		hasBody   bool
		skip      atom.Atom
	)

loop:
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			break loop
		case html.StartTagToken:
			name, _ := z.TagName()
			switch a := atom.Lookup(name); {
			case skip != 0:
			case a == atom.Style, a == atom.Script:
				skip = a
			case a == atom.Body && !hasBody:
				hasBody, inBody = true, true
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch a := atom.Lookup(name); {
			case skip != 0:
				if a == skip {
					skip = 0
				}
			case a == atom.Body:
				inBody = false
			}
		case html.TextToken:
			if skip != 0 {
				continue
			}
			text := z.Text()
			all.Write(text)
			if inBody {
				body.Write(text)
			}
		}
	}

	text := all.String()
	if hasBody {
		text = body.String()
	}

	text = lineBreaks.Replace(strings.TrimSpace(text))
	text = leadingSpace.ReplaceAllString(text, "")
	return blankLines.ReplaceAllString(text, "\n\n")
}
