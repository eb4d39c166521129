package pdfextract

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"pdf-chatbot-backend/internal/model"
)

var ErrEmptyDocument = errors.New("empty pdf data")

// ExtractFile opens the PDF at path and extracts it page by page.
func ExtractFile(path string) (model.ExtractedContent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf failed: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat pdf failed: %w", err)
	}
	return Extract(f, info.Size())
}

// Extract reads the PDF in r and returns one entry per page, in page order,
// holding that page's text split into lines. A page without extractable
// text yields a single empty line.
func Extract(r io.ReaderAt, size int64) (content model.ExtractedContent, err error) {
	if size == 0 {
		return nil, ErrEmptyDocument
	}
	// the pdf package panics on some malformed inputs
	defer func() {
		if rec := recover(); rec != nil {
			content = nil
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("read pdf failed: %w", err)
	}

	total := reader.NumPage()
	content = make(model.ExtractedContent, 0, total)
	for i := 1; i <= total; i++ {
		content = append(content, model.Page{
			Label: model.PageLabel(i),
			Lines: pageLines(reader.Page(i)),
		})
	}
	return content, nil
}

type textRow struct {
	y    float64
	text strings.Builder
}

// pageLines groups the page's glyphs by baseline and returns one line per
// baseline, top to bottom. Glyphs on a baseline keep content-stream order.
func pageLines(page pdf.Page) []string {
	if page.V.IsNull() || page.V.Key("Contents").IsNull() {
		return []string{""}
	}

	var rows []*textRow
	byBaseline := make(map[int64]*textRow)
	for _, glyph := range page.Content().Text {
		key := int64(math.Round(glyph.Y))
		row, ok := byBaseline[key]
		if !ok {
			row = &textRow{y: glyph.Y}
			byBaseline[key] = row
			rows = append(rows, row)
		}
		row.text.WriteString(glyph.S)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })

	var lines []string
	for _, row := range rows {
		lines = append(lines, SplitLines(row.text.String())...)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

// SplitLines splits text on line boundaries, keeping empty lines including
// a trailing one. Empty text gives one empty line.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
