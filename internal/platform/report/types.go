package report

import "time"

// Page geometry in millimetres (A4 portrait).
const (
	PageWidth     = 210.0
	PageHeight    = 297.0
	Margin        = 15.0
	BandHeight    = 40.0
	ContentTop    = 25.0
	FirstSectionY = 55.0
	// ContentBottom leaves room for the signature block and footer.
	ContentBottom = PageHeight - 40.0

	headingHeight  = 5.0
	rowHeight      = 8.0
	lineHeight     = 5.0
	sectionGap     = 10.0
	footerOffset   = 15.0
	signatureLineY = PageHeight - 30.0
)

// Section identifiers in document order.
const (
	SectionHeader       = "header"
	SectionDemographics = "1"
	SectionVitals       = "2"
	SectionLabs         = "3"
	SectionAnalysis     = "4"
	SectionTreatment    = "treatment"
)

// BlockKind selects how a Block is drawn.
type BlockKind string

const (
	BlockBand      BlockKind = "band"
	BlockHeading   BlockKind = "heading"
	BlockTable     BlockKind = "table"
	BlockLabelLine BlockKind = "label_line"
	BlockParagraph BlockKind = "paragraph"
)

// TableStyle mirrors the three table looks used in the export.
type TableStyle string

const (
	StyleGrid    TableStyle = "grid"
	StylePlain   TableStyle = "plain"
	StyleStriped TableStyle = "striped"
)

// RGB is a fill or text colour.
type RGB struct {
	R, G, B int
}

// Table is a table fragment placed on one page. A table that does not fit
// continues on the next page with its headers repeated.
type Table struct {
	Headers    []string   `json:"headers"`
	Rows       [][]string `json:"rows"`
	Style      TableStyle `json:"style"`
	HeaderFill RGB        `json:"header_fill"`
	FontSize   float64    `json:"font_size"`
}

// Block is one positioned element of a page.
type Block struct {
	Kind    BlockKind `json:"kind"`
	Section string    `json:"section"`
	Y       float64   `json:"y"`
	Text    string    `json:"text,omitempty"`
	Label   string    `json:"label,omitempty"`
	Lines   []string  `json:"lines,omitempty"`
	Table   *Table    `json:"table,omitempty"`
}

// Signature is drawn at the bottom of the final page only.
type Signature struct {
	Caption    string `json:"caption"`
	Preparer   string `json:"preparer"`
	Disclaimer string `json:"disclaimer"`
}

// Page is one laid-out page.
type Page struct {
	Number    int        `json:"number"`
	Blocks    []Block    `json:"blocks"`
	Footer    string     `json:"footer"`
	Signature *Signature `json:"signature,omitempty"`
}

// Document is the assembled report. It carries everything needed to render
// the export; rendering does no further lookups.
type Document struct {
	Title     string    `json:"title"`
	Practice  string    `json:"practice"`
	Tagline   string    `json:"tagline"`
	Reference string    `json:"reference"`
	RecordID  string    `json:"record_id"`
	CreatedAt time.Time `json:"created_at"`
	Sections  []string  `json:"sections"`
	Pages     []Page    `json:"pages"`
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.Pages) }

// HasSection reports whether id was emitted.
func (d *Document) HasSection(id string) bool {
	for _, s := range d.Sections {
		if s == id {
			return true
		}
	}
	return false
}
