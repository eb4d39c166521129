package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Page is one page of extracted text, split into lines.
type Page struct {
	Label string
	Lines []string
}

// ExtractedContent is the page-ordered result of extracting a document.
// It serializes as a JSON object whose keys keep page order, so "page_10"
// follows "page_9" instead of "page_1".
type ExtractedContent []Page

// PageLabel returns the label used for the 1-based page number n.
func PageLabel(n int) string {
	return fmt.Sprintf("page_%d", n)
}

// Lines returns the lines stored under label.
func (c ExtractedContent) Lines(label string) ([]string, bool) {
	for _, p := range c {
		if p.Label == label {
			return p.Lines, true
		}
	}
	return nil, false
}

// Flatten joins every line of every page, in page order, with "\n".
func (c ExtractedContent) Flatten() string {
	var all []string
	for _, p := range c {
		all = append(all, p.Lines...)
	}
	return strings.Join(all, "\n")
}

func (c ExtractedContent) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONValue(&buf, p.Label); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		lines := p.Lines
		if lines == nil {
			lines = []string{}
		}
		if err := writeJSONValue(&buf, lines); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *ExtractedContent) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("extracted content: expected object, got %v", tok)
	}

	pages := ExtractedContent{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		label, ok := tok.(string)
		if !ok {
			return fmt.Errorf("extracted content: unexpected key %v", tok)
		}
		var lines []string
		if err := dec.Decode(&lines); err != nil {
			return fmt.Errorf("extracted content: decode %s: %w", label, err)
		}
		pages = append(pages, Page{Label: label, Lines: lines})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = pages
	return nil
}

// writeJSONValue encodes v without HTML escaping so the artifact keeps the
// extracted text verbatim.
func writeJSONValue(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
