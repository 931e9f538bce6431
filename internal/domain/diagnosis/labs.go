package diagnosis

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// LabField describes one entry of a lab panel.
type LabField struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Unit    string   `json:"unit,omitempty"`
	Type    string   `json:"type"`
	Options []string `json:"options,omitempty"`
}

const (
	PanelHematology = "HEMATOLOGY"
	PanelUrinalysis = "URINALYSIS"
	PanelSputum     = "SPUTUM"
)

// LabPanels is the fixed catalog of lab fields accepted in LabResults.
var LabPanels = map[string][]LabField{
	PanelHematology: {
		{Key: "hb", Label: "Hemoglobin (Hb)", Unit: "g/dL", Type: "number"},
		{Key: "leukocyte", Label: "Leukocytes (WBC)", Unit: "/uL", Type: "number"},
		{Key: "erythrocyte", Label: "Erythrocytes (RBC)", Unit: "10^6/uL", Type: "number"},
		{Key: "hematocrit", Label: "Hematocrit (Hct)", Unit: "%", Type: "number"},
		{Key: "thrombocyte", Label: "Thrombocytes (PLT)", Unit: "/uL", Type: "number"},
		{Key: "creatinine", Label: "Serum Creatinine", Unit: "mg/dL", Type: "number"},
		{Key: "mcv", Label: "MCV", Unit: "fL", Type: "number"},
		{Key: "hba1c", Label: "HbA1c", Unit: "%", Type: "number"},
	},
	PanelUrinalysis: {
		{Key: "urineColor", Label: "Color", Type: "select", Options: []string{"Kuning Muda", "Kuning", "Kuning Tua", "Kemerahan", "Cokelat"}},
		{Key: "urineClarity", Label: "Clarity", Type: "select", Options: []string{"Jernih", "Agak Keruh", "Keruh", "Sangat Keruh"}},
		{Key: "urinePh", Label: "pH", Type: "number"},
		{Key: "urineProtein", Label: "Protein", Type: "select", Options: []string{"Negatif", "Trace", "1+", "2+", "3+", "4+"}},
		{Key: "urineGlucose", Label: "Glucose", Type: "select", Options: []string{"Negatif", "Normal", "Trace", "1+", "2+", "3+", "4+"}},
		{Key: "urineNitrite", Label: "Nitrite", Type: "select", Options: []string{"Negatif", "Positif"}},
		{Key: "urineWbc", Label: "Sediment WBC", Unit: "/lpb", Type: "number"},
	},
	PanelSputum: {
		{Key: "sputumColor", Label: "Sputum Color", Type: "select", Options: []string{"Bening", "Putih", "Kuning", "Hijau", "Kemerahan"}},
		{Key: "sputumBta", Label: "BTA (Acid Fast)", Type: "select", Options: []string{"Negatif", "Scanty", "1+", "2+", "3+"}},
		{Key: "sputumConsistency", Label: "Consistency", Type: "select", Options: []string{"Encer", "Mukoid", "Purulen", "Bercampur Darah"}},
	},
}

var labIndex = func() map[string]string {
	idx := make(map[string]string)
	for panel, fields := range LabPanels {
		for _, f := range fields {
			idx[f.Key] = panel
		}
	}
	return idx
}()

// PanelOf returns the panel a lab key belongs to.
func PanelOf(key string) (string, bool) {
	p, ok := labIndex[key]
	return p, ok
}

// ValidateLabKeys rejects keys that are not in the catalog.
func ValidateLabKeys(labs LabResults) error {
	var fields []FieldError
	for _, k := range lo.Keys(labs) {
		if _, ok := labIndex[k]; !ok {
			fields = append(fields, FieldError{Field: "labResults." + k, Message: "unknown lab field"})
		}
	}
	if len(fields) == 0 {
		return nil
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	return &ValidationError{Fields: fields}
}

// LabEntry is a filled lab value.
type LabEntry struct {
	Key   string
	Value string
}

// FilledLabs returns the entries with a non-blank value, sorted by key so the
// output is stable.
func FilledLabs(labs LabResults) []LabEntry {
	entries := lo.FilterMap(lo.Entries(labs), func(e lo.Entry[string, *string], _ int) (LabEntry, bool) {
		if e.Value == nil || strings.TrimSpace(*e.Value) == "" {
			return LabEntry{}, false
		}
		return LabEntry{Key: e.Key, Value: *e.Value}, true
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}
