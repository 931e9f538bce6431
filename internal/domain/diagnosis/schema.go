package diagnosis

import (
	"sort"
)

// SchemaType mirrors the engine's response-schema type vocabulary.
type SchemaType string

const (
	TypeObject  SchemaType = "OBJECT"
	TypeArray   SchemaType = "ARRAY"
	TypeString  SchemaType = "STRING"
	TypeInteger SchemaType = "INTEGER"
	TypeNumber  SchemaType = "NUMBER"
)

// Schema describes the shape the engine response must satisfy. The same value
// is sent to the engine and walked by the validator.
type Schema struct {
	Type        SchemaType         `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
}

// VersionedSchema pairs a schema with its contract version.
type VersionedSchema struct {
	Version string
	Schema  *Schema
}

const (
	DiagnosisSchemaVersion = "diagnosis-result/v1"
	AnalysisSchemaVersion  = "analysis-result/v1"
)

// PropertyNames returns the top-level property names in sorted order.
func (s *Schema) PropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for k := range s.Properties {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// IsRequired reports whether name is listed as required.
func (s *Schema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

func str(desc string) *Schema { return &Schema{Type: TypeString, Description: desc} }

func strList() *Schema { return &Schema{Type: TypeArray, Items: &Schema{Type: TypeString}} }

func bounded(t SchemaType, low, high float64, desc string) *Schema {
	return &Schema{Type: t, Minimum: &low, Maximum: &high, Description: desc}
}

func severitySchema() *Schema {
	return &Schema{
		Type:        TypeString,
		Description: "LOW, MODERATE, HIGH, CRITICAL",
		Enum:        []string{string(SeverityLow), string(SeverityModerate), string(SeverityHigh), string(SeverityCritical)},
	}
}

// DiagnosisSchema returns the response contract for a diagnostic request.
func DiagnosisSchema() VersionedSchema {
	return VersionedSchema{
		Version: DiagnosisSchemaVersion,
		Schema: &Schema{
			Type: TypeObject,
			Properties: map[string]*Schema{
				"primaryDiagnosis":      str(""),
				"icd10Code":             str(""),
				"differentialDiagnoses": strList(),
				"clinicalReasoning":     str(""),
				"triageLevel":           bounded(TypeInteger, 1, 4, "1 (Critical) to 4 (Non-Urgent)"),
				"severity":              severitySchema(),
				"confidence":            bounded(TypeNumber, 0, 100, "0 to 100"),
				"affectedSystems":       strList(),
				"patientEducation":      str(""),
				"medications": {
					Type: TypeArray,
					Items: &Schema{
						Type: TypeObject,
						Properties: map[string]*Schema{
							"name":               str(""),
							"dosage":             str(""),
							"frequency":          str(""),
							"duration":           str(""),
							"contraindications":  str(""),
							"sideEffects":        str(""),
							"interactionWarning": str(""),
						},
						Required: []string{"name", "dosage", "frequency"},
					},
				},
				"actions": {
					Type: TypeObject,
					Properties: map[string]*Schema{
						"tests":     strList(),
						"nonPharma": strList(),
						"referral":  str(""),
					},
				},
				"risks": {
					Type: TypeObject,
					Properties: map[string]*Schema{
						"heartDisease":   bounded(TypeNumber, 0, 100, ""),
						"stroke":         bounded(TypeNumber, 0, 100, ""),
						"kidneyFailure":  bounded(TypeNumber, 0, 100, ""),
						"cancer":         bounded(TypeNumber, 0, 100, ""),
						"diabetes":       bounded(TypeNumber, 0, 100, ""),
						"predictionText": str(""),
					},
					Required: []string{"heartDisease", "stroke", "kidneyFailure", "cancer", "diabetes"},
				},
				"timestamp": str(""),
			},
			Required: []string{"primaryDiagnosis", "icd10Code", "triageLevel", "severity", "confidence", "risks"},
		},
	}
}

// AnalysisSchema returns the response contract for an imaging analysis.
func AnalysisSchema() VersionedSchema {
	return VersionedSchema{
		Version: AnalysisSchemaVersion,
		Schema: &Schema{
			Type: TypeObject,
			Properties: map[string]*Schema{
				"modality":        {Type: TypeString, Enum: []string{string(ModalityRadiology), string(ModalityDermatology)}},
				"findings":        str(""),
				"diagnosis":       str(""),
				"recommendations": str(""),
				"severity":        severitySchema(),
			},
			Required: []string{"findings", "diagnosis", "severity"},
		},
	}
}
