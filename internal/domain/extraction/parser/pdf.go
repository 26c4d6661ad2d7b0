package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// parsePDF reconstructs text rows from the PDF layout and runs statement
// line inference over them
func (p *Parser) parsePDF(data []byte) (*Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	var lines []string
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			// A single broken page should not sink the document.
			continue
		}
		for _, row := range rows {
			var b strings.Builder
			for i, text := range row.Content {
				if i > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(text.S)
			}
			if line := strings.TrimSpace(b.String()); line != "" {
				lines = append(lines, line)
			}
		}
	}

	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no text content", ErrUnreadable)
	}

	return inferLines(lines), nil
}
