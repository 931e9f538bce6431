package report

import (
	"strings"
	"unicode/utf8"
)

// mmPerChar approximates the advance of one character at the body font size.
// Wrapping is done by character count so the layout does not depend on font
// metrics and is identical on every run.
const mmPerChar = 2.0

// wrapText breaks s into lines of at most width characters, preferring word
// boundaries. Existing newlines are kept.
func wrapText(s string, width int) []string {
	if width < 1 {
		width = 1
	}
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		var cur strings.Builder
		curLen := 0
		flush := func() {
			lines = append(lines, cur.String())
			cur.Reset()
			curLen = 0
		}
		for _, w := range words {
			for utf8.RuneCountInString(w) > width {
				if curLen > 0 {
					flush()
				}
				r := []rune(w)
				lines = append(lines, string(r[:width]))
				w = string(r[width:])
			}
			wl := utf8.RuneCountInString(w)
			switch {
			case curLen == 0:
				cur.WriteString(w)
				curLen = wl
			case curLen+1+wl <= width:
				cur.WriteByte(' ')
				cur.WriteString(w)
				curLen += 1 + wl
			default:
				flush()
				cur.WriteString(w)
				curLen = wl
			}
		}
		if curLen > 0 {
			flush()
		}
	}
	return lines
}

func columnWidth(cols int) float64 {
	return (PageWidth - 2*Margin) / float64(cols)
}

func columnChars(cols int) int {
	return int(columnWidth(cols)/mmPerChar) - 1
}

// cellLines wraps every cell of row for a table with cols columns.
func cellLines(row []string, cols int) [][]string {
	out := make([][]string, len(row))
	for i, cell := range row {
		out[i] = wrapText(cell, columnChars(cols))
	}
	return out
}

// tableRowHeight is the height of a body row once its cells are wrapped.
func tableRowHeight(row []string, cols int) float64 {
	n := 1
	for _, lines := range cellLines(row, cols) {
		if len(lines) > n {
			n = len(lines)
		}
	}
	return float64(n)*lineHeight + 3
}

// layout places blocks top to bottom and opens pages as needed.
type layout struct {
	pages []Page
	y     float64
}

func (l *layout) newPage() {
	l.pages = append(l.pages, Page{Number: len(l.pages) + 1})
	l.y = ContentTop
}

func (l *layout) add(b Block) {
	p := &l.pages[len(l.pages)-1]
	p.Blocks = append(p.Blocks, b)
}

// ensure opens a new page when h does not fit below the cursor.
func (l *layout) ensure(h float64) {
	if l.y+h > ContentBottom {
		l.newPage()
	}
}

func (l *layout) heading(section, text string) {
	// Keep a heading together with the header row and one body row.
	l.ensure(headingHeight + 2*rowHeight)
	l.add(Block{Kind: BlockHeading, Section: section, Y: l.y, Text: text})
	l.y += headingHeight
}

func (l *layout) labelLine(section, label, text string, advance float64) {
	l.ensure(advance)
	l.add(Block{Kind: BlockLabelLine, Section: section, Y: l.y, Label: label, Text: text})
	l.y += advance
}

func (l *layout) table(section string, t Table) {
	cols := len(t.Headers)
	fragment := func() *Table {
		return &Table{Headers: t.Headers, Rows: [][]string{}, Style: t.Style, HeaderFill: t.HeaderFill, FontSize: t.FontSize}
	}

	first := rowHeight
	if len(t.Rows) > 0 {
		first += tableRowHeight(t.Rows[0], cols)
	}
	l.ensure(first)

	cur, start := fragment(), l.y
	l.y += rowHeight
	for _, row := range t.Rows {
		h := tableRowHeight(row, cols)
		if l.y+h > ContentBottom {
			l.add(Block{Kind: BlockTable, Section: section, Y: start, Table: cur})
			l.newPage()
			cur, start = fragment(), l.y
			l.y += rowHeight
		}
		cur.Rows = append(cur.Rows, row)
		l.y += h
	}
	l.add(Block{Kind: BlockTable, Section: section, Y: start, Table: cur})
	l.y += sectionGap
}

func (l *layout) paragraph(section string, lines []string) {
	var chunk []string
	start := l.y
	for _, ln := range lines {
		if l.y+lineHeight > ContentBottom {
			if len(chunk) > 0 {
				l.add(Block{Kind: BlockParagraph, Section: section, Y: start, Lines: chunk})
			}
			l.newPage()
			chunk, start = nil, l.y
		}
		chunk = append(chunk, ln)
		l.y += lineHeight
	}
	if len(chunk) > 0 {
		l.add(Block{Kind: BlockParagraph, Section: section, Y: start, Lines: chunk})
	}
	l.y += sectionGap
}
