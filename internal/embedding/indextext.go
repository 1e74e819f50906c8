package embedding

import "strings"

// Field is one named section of indexing text. Values holds a single
// element for scalar fields; list fields are comma-joined on render.
type Field struct {
	Name   string
	Values []string
}

// IndexText renders the canonical text fed to the chunker when indexing a
// source entity. Titles and metadata are spelled out as labeled sections so
// they are represented in embedding space, not only in stored metadata.
//
//	Title: Portfolio Site
//	Content: ...
//	Technologies: Go, PostgreSQL
func IndexText(title, body string, fields ...Field) string {
	var b strings.Builder

	b.WriteString("Title: ")
	b.WriteString(title)
	b.WriteString("\nContent: ")
	b.WriteString(body)

	for _, f := range fields {
		values := make([]string, 0, len(f.Values))
		for _, v := range f.Values {
			if v != "" {
				values = append(values, v)
			}
		}
		if f.Name == "" || len(values) == 0 {
			continue
		}
		b.WriteString("\n")
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(strings.Join(values, ", "))
	}

	return b.String()
}
