package diagnosis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alcortex/emr/internal/platform/engine"
)

// Language is a supported output language tag.
type Language string

const (
	LangEnglish    Language = "en"
	LangIndonesian Language = "id"
	LangRussian    Language = "ru"
)

var languageNames = map[Language]string{
	LangEnglish:    "English",
	LangIndonesian: "Indonesian (Bahasa Indonesia)",
	LangRussian:    "Russian (Русский)",
}

// ResolveLanguage maps a tag to a supported language. Unknown tags fall back
// to English.
func ResolveLanguage(tag string) Language {
	l := Language(strings.ToLower(strings.TrimSpace(tag)))
	if _, ok := languageNames[l]; ok {
		return l
	}
	return LangEnglish
}

// Name is the language name written into the instruction.
func (l Language) Name() string { return languageNames[ResolveLanguage(string(l))] }

const diagnosisInstruction = `You are a professional medical diagnostic AI assistant.
Output must be in %s.
Evaluate risks based on Social History: Smoking (%s), Alcohol (%s), Activity (%s).
Cross-check 'currentMeds' for potential interactions.
Respond with a single JSON object conforming to the response schema %s.`

const imageInstruction = `Analyze this %s medical image. Provide clinical findings, likely diagnosis, and recommendations. Language: %s.
Respond with a single JSON object conforming to the response schema %s.`

// ClinicalFacts is the identity-minimized content sent to the engine. It
// carries no MRN, date of birth or patient id.
type ClinicalFacts struct {
	Name        string            `json:"name"`
	Age         int               `json:"age"`
	Gender      Gender            `json:"gender"`
	BloodType   BloodType         `json:"bloodType"`
	History     string            `json:"history"`
	Complaint   string            `json:"complaint"`
	CurrentMeds string            `json:"currentMeds"`
	Vitals      Vitals            `json:"vitals"`
	Labs        map[string]string `json:"labs"`
}

// StructuredRequest is the engine-independent diagnostic request.
type StructuredRequest struct {
	Language    Language
	Instruction string
	Facts       ClinicalFacts
	Content     string
	Schema      VersionedSchema
	Image       *engine.Image
}

// EngineRequest converts r into an engine call for model.
func (r *StructuredRequest) EngineRequest(model string) (*engine.Request, error) {
	schema, err := json.Marshal(r.Schema.Schema)
	if err != nil {
		return nil, fmt.Errorf("marshal response schema: %w", err)
	}
	return &engine.Request{
		Model:             model,
		SystemInstruction: r.Instruction,
		Text:              r.Content,
		Image:             r.Image,
		ResponseSchema:    schema,
	}, nil
}

// CheckRequired returns a ValidationError when the fields needed to build a
// request are missing.
func CheckRequired(input PatientInput) error {
	var fields []FieldError
	if strings.TrimSpace(input.PatientName) == "" {
		fields = append(fields, FieldError{Field: "patientName", Message: "is required"})
	}
	if strings.TrimSpace(input.MRN) == "" {
		fields = append(fields, FieldError{Field: "mrn", Message: "is required"})
	}
	if input.BloodType != "" && !validBloodTypes[input.BloodType] {
		fields = append(fields, FieldError{Field: "bloodType", Message: "unknown blood type"})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return ValidateLabKeys(input.LabResults)
}

// BuildDiagnosticRequest assembles the request for input in languageTag. It
// has no side effects.
func BuildDiagnosticRequest(input PatientInput, languageTag string) (*StructuredRequest, error) {
	if err := CheckRequired(input); err != nil {
		return nil, err
	}
	lang := ResolveLanguage(languageTag)
	schema := DiagnosisSchema()

	facts := ClinicalFacts{
		Name:        input.PatientName,
		Age:         input.Age,
		Gender:      input.Gender,
		BloodType:   input.BloodType,
		History:     input.History,
		Complaint:   input.Complaint,
		CurrentMeds: input.CurrentMeds,
		Vitals:      input.Vitals,
		Labs:        map[string]string{},
	}
	for _, e := range FilledLabs(input.LabResults) {
		facts.Labs[e.Key] = e.Value
	}

	content, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal clinical facts: %w", err)
	}

	return &StructuredRequest{
		Language: lang,
		Instruction: fmt.Sprintf(diagnosisInstruction, lang.Name(),
			orUnknown(string(input.SmokingStatus)),
			orUnknown(string(input.AlcoholConsumption)),
			orUnknown(string(input.PhysicalActivity)),
			schema.Version),
		Facts:   facts,
		Content: string(content),
		Schema:  schema,
	}, nil
}

// BuildImageRequest assembles an imaging analysis request.
func BuildImageRequest(modality Modality, image []byte, mimeType, languageTag string) (*StructuredRequest, error) {
	var fields []FieldError
	if modality != ModalityRadiology && modality != ModalityDermatology {
		fields = append(fields, FieldError{Field: "modality", Message: "must be RADIOLOGY or DERMATOLOGY"})
	}
	if len(image) == 0 {
		fields = append(fields, FieldError{Field: "image", Message: "is required"})
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	lang := ResolveLanguage(languageTag)
	schema := AnalysisSchema()
	return &StructuredRequest{
		Language: lang,
		Content:  fmt.Sprintf(imageInstruction, modality, lang.Name(), schema.Version),
		Schema:   schema,
		Image:    &engine.Image{MimeType: mimeType, Data: image},
	}, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
