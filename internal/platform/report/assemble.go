// Package report turns a diagnosis record into the paginated EMR export and
// renders it as PDF.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alcortex/emr/internal/domain/diagnosis"
)

// Config holds the branding and attribution printed on every export.
type Config struct {
	Practice        string
	Tagline         string
	Preparer        string
	PreparerCaption string
}

// DefaultConfig returns the stock AlCortex branding.
func DefaultConfig() Config {
	return Config{
		Practice:        "AlCortex Pro",
		Tagline:         "Electronic Medical Record | Clinical Intelligence Suite",
		PreparerCaption: "Prepared by",
	}
}

// Assembler builds Documents. It holds only immutable configuration and is
// safe for concurrent use.
type Assembler struct {
	cfg Config
}

func NewAssembler(cfg Config) *Assembler {
	def := DefaultConfig()
	if cfg.Practice == "" {
		cfg.Practice = def.Practice
	}
	if cfg.Tagline == "" {
		cfg.Tagline = def.Tagline
	}
	if cfg.PreparerCaption == "" {
		cfg.PreparerCaption = def.PreparerCaption
	}
	if cfg.Preparer == "" {
		cfg.Preparer = cfg.Practice
	}
	return &Assembler{cfg: cfg}
}

// Assemble lays out record. examiner is the display name of the practitioner
// who ran the request. The same record always yields the same document.
func (a *Assembler) Assemble(record diagnosis.DiagnosisRecord, examiner string) (*Document, error) {
	if record.Result == nil {
		return nil, &diagnosis.PreconditionViolation{Op: "Assemble", Reason: "record has no diagnosis result"}
	}
	p := record.PatientData
	r := record.Result

	doc := &Document{
		Title:     "Electronic Medical Record",
		Practice:  a.cfg.Practice,
		Tagline:   a.cfg.Tagline,
		Reference: strings.ToUpper(p.MRN),
		RecordID:  record.ID,
		CreatedAt: record.Timestamp,
	}

	l := &layout{}
	l.newPage()

	l.add(Block{Kind: BlockBand, Section: SectionHeader, Y: 0, Text: a.cfg.Practice, Label: "Ref: " + doc.Reference})
	doc.Sections = append(doc.Sections, SectionHeader)
	l.y = FirstSectionY

	l.heading(SectionDemographics, "1. PATIENT DATA")
	l.table(SectionDemographics, Table{
		Headers:    []string{"Identity Field", "Verified Information"},
		Rows:       demographicRows(p, examiner),
		Style:      StyleGrid,
		HeaderFill: RGB{51, 65, 85},
		FontSize:   10,
	})
	doc.Sections = append(doc.Sections, SectionDemographics)

	l.heading(SectionVitals, "2. VITAL SIGNS & BIOMETRICS")
	l.table(SectionVitals, Table{
		Headers:  []string{"Metric", "Result", "Metric", "Result"},
		Rows:     vitalRows(p.Vitals),
		Style:    StylePlain,
		FontSize: 9,
	})
	doc.Sections = append(doc.Sections, SectionVitals)

	if labs := labRows(p.LabResults); len(labs) > 0 {
		l.heading(SectionLabs, "3. LABORATORY RESULTS")
		l.table(SectionLabs, Table{
			Headers:    []string{"Examination", "Measured Result"},
			Rows:       labs,
			Style:      StyleStriped,
			HeaderFill: RGB{15, 23, 42},
			FontSize:   10,
		})
		doc.Sections = append(doc.Sections, SectionLabs)
	}

	l.newPage()
	l.heading(SectionAnalysis, "4. AI DIAGNOSTIC ANALYSIS")
	l.y += headingHeight
	l.labelLine(SectionAnalysis, "Primary Diagnosis:", fmt.Sprintf("%s [ICD-10: %s]", r.PrimaryDiagnosis, r.ICD10Code), 10)
	l.labelLine(SectionAnalysis, "Clinical Reasoning:", "", 7)
	l.paragraph(SectionAnalysis, wrapText(r.ClinicalReasoning, int((PageWidth-2*Margin)/mmPerChar)))
	doc.Sections = append(doc.Sections, SectionAnalysis)

	l.heading(SectionTreatment, "Treatment & Management Plan")
	l.table(SectionTreatment, Table{
		Headers:    []string{"Medication", "Dosage", "Frequency", "Duration", "Warning"},
		Rows:       treatmentRows(r.Medications),
		Style:      StyleGrid,
		HeaderFill: RGB{2, 132, 199},
		FontSize:   9,
	})
	doc.Sections = append(doc.Sections, SectionTreatment)

	n := len(l.pages)
	for i := range l.pages {
		l.pages[i].Footer = fmt.Sprintf("Page %d of %d", i+1, n)
	}
	l.pages[n-1].Signature = &Signature{
		Caption:    a.cfg.PreparerCaption,
		Preparer:   a.cfg.Preparer,
		Disclaimer: fmt.Sprintf("This document was generated automatically by the %s system.", a.cfg.Practice),
	}
	doc.Pages = l.pages
	return doc, nil
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optNum(v *float64, unit string) string {
	if v == nil {
		return "-"
	}
	return num(*v) + " " + unit
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func demographicRows(p diagnosis.PatientInput, examiner string) [][]string {
	return [][]string{
		{"Patient Full Name", orDash(p.PatientName)},
		{"Medical Record Number (MRN)", orDash(p.MRN)},
		{"Age / Gender", fmt.Sprintf("%d years / %s", p.Age, orDash(string(p.Gender)))},
		{"Blood Type", orDash(string(p.BloodType))},
		{"Examining Practitioner", orDash(examiner)},
	}
}

// vitalRows pairs the measurements two per row in a fixed order.
func vitalRows(v diagnosis.Vitals) [][]string {
	return [][]string{
		{"Systolic BP", num(v.Systolic) + " mmHg", "Diastolic BP", num(v.Diastolic) + " mmHg"},
		{"Heart Rate", num(v.HeartRate) + " bpm", "SpO2", num(v.SpO2) + " %"},
		{"Body Temperature", num(v.Temperature) + " C", "Respiratory Rate", num(v.RespRate) + " /m"},
		{"Body Weight", optNum(v.Weight, "kg"), "Body Height", optNum(v.Height, "cm")},
	}
}

func labRows(labs diagnosis.LabResults) [][]string {
	entries := diagnosis.FilledLabs(labs)
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{strings.ToUpper(e.Key), e.Value})
	}
	return rows
}

func treatmentRows(meds []diagnosis.Medication) [][]string {
	rows := make([][]string, 0, len(meds))
	for _, m := range meds {
		warning := "Safe"
		if m.InteractionWarning != nil && strings.TrimSpace(*m.InteractionWarning) != "" {
			warning = *m.InteractionWarning
		}
		rows = append(rows, []string{m.Name, m.Dosage, m.Frequency, orDash(m.Duration), warning})
	}
	return rows
}
