package report

import (
	"bytes"
	"compress/zlib"
	"io"
	"strings"
	"testing"
	"time"
	"unicode/utf16"
)

func TestRenderPDF(t *testing.T) {
	doc, err := newTestAssembler().Assemble(testRecord(), "dr. Rina")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	a, err := RenderPDF(doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(a, []byte("%PDF-")) {
		t.Fatalf("expected PDF header, got %q", a[:8])
	}
	b, err := RenderPDF(doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("expected identical bytes across renders, sizes %d and %d", len(a), len(b))
	}
}

func TestRenderPDF_NonLatinText(t *testing.T) {
	rec := testRecord()
	rec.PatientData.PatientName = "Иванова Мария"
	rec.Result.PrimaryDiagnosis = "Пневмония"
	rec.Result.ClinicalReasoning = "Пациент с лихорадкой. Demam tinggi sejak 3 hari."
	doc, err := newTestAssembler().Assemble(rec, "д-р Смирнов")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	data, err := RenderPDF(doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	content := inflatedStreams(t, data)
	for _, want := range []string{
		rec.Result.ClinicalReasoning,
		rec.PatientData.PatientName,
		"д-р Смирнов",
		"Пневмония [ICD-10: J18.9]",
	} {
		if !bytes.Contains(content, pdfText(want)) {
			t.Errorf("expected %q in page content", want)
		}
	}
	if bytes.Contains(content, []byte("(....... . ..........")) {
		t.Error("cyrillic text was replaced with dots")
	}
}

// inflatedStreams returns every flate stream of a PDF, decompressed and
// concatenated. Streams that do not inflate are skipped.
func inflatedStreams(t *testing.T, data []byte) []byte {
	t.Helper()
	var out bytes.Buffer
	rest := data
	for {
		i := bytes.Index(rest, []byte("stream\n"))
		if i < 0 {
			break
		}
		rest = rest[i+len("stream\n"):]
		end := bytes.Index(rest, []byte("\nendstream"))
		if end < 0 {
			t.Fatal("unterminated stream")
		}
		zr, err := zlib.NewReader(bytes.NewReader(rest[:end]))
		if err == nil {
			if raw, err := io.ReadAll(zr); err == nil {
				out.Write(raw)
			}
			zr.Close()
		}
		rest = rest[end+len("\nendstream"):]
	}
	return out.Bytes()
}

// pdfText is s as a Tj string operand written with a Unicode font:
// UTF-16BE with PDF string escapes.
func pdfText(s string) []byte {
	var b strings.Builder
	for _, u := range utf16.Encode([]rune(s)) {
		b.WriteByte(byte(u >> 8))
		b.WriteByte(byte(u))
	}
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`, "\r", `\r`)
	return []byte("(" + r.Replace(b.String()) + ")")
}

func TestRenderPDF_EmptyDocument(t *testing.T) {
	if _, err := RenderPDF(&Document{}); err == nil {
		t.Fatal("expected error for empty document")
	}
}

func TestExportFileName(t *testing.T) {
	at := time.UnixMilli(1714557600123)
	tests := []struct {
		product, mrn, want string
	}{
		{"ALCORTEX", "rm-2024-001", "ALCORTEX_EMR_RM-2024-001_1714557600123.pdf"},
		{"alcortex", " 123/45 ", "ALCORTEX_EMR_123_45_1714557600123.pdf"},
		{"ALCORTEX", `a"b`, "ALCORTEX_EMR_A_B_1714557600123.pdf"},
	}
	for _, tt := range tests {
		if got := ExportFileName(tt.product, tt.mrn, at); got != tt.want {
			t.Errorf("ExportFileName(%q, %q): expected %s, got %s", tt.product, tt.mrn, tt.want, got)
		}
	}
}
