package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-pdf/fpdf"
)

// DejaVu covers Latin, Cyrillic and Greek, so every supported output
// language renders with its own glyphs.
var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	regularFont []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	boldFont []byte
)

const fontFamily = "DejaVu"

var (
	bandFill   = RGB{5, 150, 105}
	textDark   = RGB{15, 23, 42}
	textMuted  = RGB{100, 116, 139}
	textFooter = RGB{150, 150, 150}
	white      = RGB{255, 255, 255}
	stripeFill = RGB{241, 245, 249}
	gridLine   = RGB{203, 213, 225}
)

// RenderPDF draws doc. Both PDF dates are taken from the document so the
// same document renders to the same bytes.
func RenderPDF(doc *Document) ([]byte, error) {
	if doc == nil || len(doc.Pages) == 0 {
		return nil, fmt.Errorf("report: empty document")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(doc.CreatedAt)
	pdf.SetModificationDate(doc.CreatedAt)
	pdf.SetCatalogSort(true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(Margin, ContentTop, Margin)
	pdf.AddUTF8FontFromBytes(fontFamily, "", regularFont)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", boldFont)

	pdf.SetTitle(doc.Title+" "+doc.Reference, true)
	pdf.SetCreator(doc.Practice, true)
	pdf.SetSubject(doc.Tagline, true)

	r := &renderer{pdf: pdf, doc: doc}
	for _, page := range doc.Pages {
		pdf.AddPage()
		for _, b := range page.Blocks {
			r.block(b)
		}
		r.footer(page)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("report: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type renderer struct {
	pdf *fpdf.Fpdf
	doc *Document
}

func (r *renderer) text(x, y float64, s string) {
	r.pdf.Text(x, y, s)
}

func (r *renderer) width(s string) float64 {
	return r.pdf.GetStringWidth(s)
}

func (r *renderer) color(c RGB) {
	r.pdf.SetTextColor(c.R, c.G, c.B)
}

func (r *renderer) block(b Block) {
	switch b.Kind {
	case BlockBand:
		r.pdf.SetFillColor(bandFill.R, bandFill.G, bandFill.B)
		r.pdf.Rect(0, 0, PageWidth, BandHeight, "F")
		r.color(white)
		r.pdf.SetFont(fontFamily, "B", 24)
		r.text(Margin, 20, b.Text)
		r.pdf.SetFont(fontFamily, "B", 10)
		r.text(Margin, 28, r.doc.Tagline)
		r.text(PageWidth-Margin-40, 20, b.Label)

	case BlockHeading:
		size := 14.0
		if b.Section == SectionTreatment {
			size = 12
		}
		r.color(textDark)
		r.pdf.SetFont(fontFamily, "B", size)
		r.text(Margin, b.Y, b.Text)

	case BlockLabelLine:
		r.color(textDark)
		r.pdf.SetFont(fontFamily, "B", 10)
		r.text(Margin, b.Y, b.Label)
		if b.Text != "" {
			r.pdf.SetFont(fontFamily, "", 10)
			r.text(Margin+35, b.Y, b.Text)
		}

	case BlockParagraph:
		r.color(textDark)
		r.pdf.SetFont(fontFamily, "", 10)
		for i, ln := range b.Lines {
			r.text(Margin, b.Y+float64(i)*lineHeight, ln)
		}

	case BlockTable:
		r.table(b.Table, b.Y)
	}
}

func (r *renderer) table(t *Table, y float64) {
	cols := len(t.Headers)
	w := columnWidth(cols)
	r.pdf.SetDrawColor(gridLine.R, gridLine.G, gridLine.B)

	// header row
	if t.Style == StylePlain {
		r.color(textDark)
	} else {
		r.pdf.SetFillColor(t.HeaderFill.R, t.HeaderFill.G, t.HeaderFill.B)
		r.pdf.Rect(Margin, y, w*float64(cols), rowHeight, "F")
		r.color(white)
	}
	r.pdf.SetFont(fontFamily, "B", t.FontSize)
	for i, h := range t.Headers {
		r.text(Margin+float64(i)*w+2, y+5.5, h)
	}
	y += rowHeight

	r.pdf.SetFont(fontFamily, "", t.FontSize)
	for n, row := range t.Rows {
		h := tableRowHeight(row, cols)
		if t.Style == StyleStriped && n%2 == 1 {
			r.pdf.SetFillColor(stripeFill.R, stripeFill.G, stripeFill.B)
			r.pdf.Rect(Margin, y, w*float64(cols), h, "F")
		}
		r.color(textDark)
		for i, lines := range cellLines(row, cols) {
			x := Margin + float64(i)*w
			if t.Style == StyleGrid {
				r.pdf.Rect(x, y, w, h, "D")
			}
			for j, ln := range lines {
				r.text(x+2, y+5.5+float64(j)*lineHeight, ln)
			}
		}
		y += h
	}
}

func (r *renderer) footer(page Page) {
	r.color(textFooter)
	r.pdf.SetFont(fontFamily, "", 8)
	r.text((PageWidth-r.width(page.Footer))/2, PageHeight-footerOffset, page.Footer)

	if page.Signature == nil {
		return
	}
	sig := page.Signature
	r.color(textMuted)
	r.pdf.SetFont(fontFamily, "", 10)
	r.text(Margin, signatureLineY, sig.Caption)
	r.color(textDark)
	r.pdf.SetFont(fontFamily, "B", 10)
	r.text(Margin, signatureLineY+5, sig.Preparer)

	r.color(textFooter)
	r.pdf.SetFont(fontFamily, "", 8)
	r.text(PageWidth-Margin-r.width(sig.Disclaimer), signatureLineY+5, sig.Disclaimer)
}

// ExportFileName builds <PRODUCT>_EMR_<MRN>_<unix millis>.pdf. Characters
// outside letters, digits, '-' and '_' in the MRN become '_'.
func ExportFileName(product, mrn string, at time.Time) string {
	clean := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_') {
			return r
		}
		return '_'
	}, strings.ToUpper(strings.TrimSpace(mrn)))
	return fmt.Sprintf("%s_EMR_%s_%d.pdf", strings.ToUpper(product), clean, at.UnixMilli())
}
