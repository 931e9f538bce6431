package diagnosis

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func validInput() PatientInput {
	p := NewPatientInput()
	p.PatientName = "Siti Aminah"
	p.MRN = "rm-2024-001"
	p.DOB = "1975-04-12"
	p.Age = 49
	p.Gender = GenderFemale
	p.BloodType = BloodOPos
	p.Complaint = "Chest pain radiating to the left arm"
	p.History = "Hypertension"
	p.CurrentMeds = "Amlodipine 5 mg"
	return p
}

func TestBuildDiagnosticRequest(t *testing.T) {
	input := validInput()
	hb, blank := "11.2", "  "
	input.LabResults = LabResults{"hb": &hb, "mcv": &blank, "urineColor": nil}

	req, err := BuildDiagnosticRequest(input, "id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Language != LangIndonesian {
		t.Errorf("expected id, got %s", req.Language)
	}
	if !strings.Contains(req.Instruction, "Indonesian (Bahasa Indonesia)") {
		t.Errorf("expected language name in instruction: %s", req.Instruction)
	}
	if !strings.Contains(req.Instruction, "Smoking (Never)") {
		t.Errorf("expected social history in instruction: %s", req.Instruction)
	}
	if req.Schema.Version != DiagnosisSchemaVersion {
		t.Errorf("expected schema %s, got %s", DiagnosisSchemaVersion, req.Schema.Version)
	}
	if len(req.Facts.Labs) != 1 || req.Facts.Labs["hb"] != "11.2" {
		t.Errorf("expected only filled labs, got %v", req.Facts.Labs)
	}
	if strings.Contains(req.Content, input.MRN) || strings.Contains(req.Content, input.DOB) || strings.Contains(req.Content, input.PatientID) {
		t.Error("content must not carry MRN, DOB or patient id")
	}
	var facts ClinicalFacts
	if err := json.Unmarshal([]byte(req.Content), &facts); err != nil {
		t.Fatalf("content is not JSON: %v", err)
	}
	if facts.Name != "Siti Aminah" || facts.Age != 49 {
		t.Errorf("unexpected facts %+v", facts)
	}
}

func TestBuildDiagnosticRequest_Deterministic(t *testing.T) {
	input := validInput()
	a, _ := BuildDiagnosticRequest(input, "en")
	b, _ := BuildDiagnosticRequest(input, "en")
	if a.Content != b.Content || a.Instruction != b.Instruction {
		t.Error("expected identical requests for identical input")
	}
}

func TestBuildDiagnosticRequest_UnknownLanguageFallsBack(t *testing.T) {
	req, err := BuildDiagnosticRequest(validInput(), "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Language != LangEnglish {
		t.Errorf("expected fallback to en, got %s", req.Language)
	}
}

func TestBuildDiagnosticRequest_MissingFields(t *testing.T) {
	input := validInput()
	input.PatientName = " "
	input.MRN = ""

	_, err := BuildDiagnosticRequest(input, "en")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Fields) != 2 || ve.Fields[0].Field != "patientName" || ve.Fields[1].Field != "mrn" {
		t.Errorf("unexpected fields %+v", ve.Fields)
	}
}

func TestBuildDiagnosticRequest_UnknownLabKey(t *testing.T) {
	input := validInput()
	v := "1"
	input.LabResults = LabResults{"troponin": &v}

	_, err := BuildDiagnosticRequest(input, "en")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Fields[0].Field != "labResults.troponin" {
		t.Errorf("unexpected field %s", ve.Fields[0].Field)
	}
}

func TestBuildDiagnosticRequest_InvalidBloodType(t *testing.T) {
	input := validInput()
	input.BloodType = "C+"
	if _, err := BuildDiagnosticRequest(input, "en"); err == nil {
		t.Fatal("expected error for unknown blood type")
	}
}

func TestStructuredRequest_EngineRequest(t *testing.T) {
	req, _ := BuildDiagnosticRequest(validInput(), "en")
	er, err := req.EngineRequest("gemini-3-pro-preview")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if er.Model != "gemini-3-pro-preview" || er.Text != req.Content || er.SystemInstruction != req.Instruction {
		t.Errorf("unexpected engine request %+v", er)
	}
	var schema Schema
	if err := json.Unmarshal(er.ResponseSchema, &schema); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	if schema.Type != TypeObject || !schema.IsRequired("triageLevel") {
		t.Errorf("unexpected schema %+v", schema)
	}
}

func TestBuildImageRequest(t *testing.T) {
	req, err := BuildImageRequest(ModalityRadiology, []byte{0xff, 0xd8}, "", "ru")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Image == nil || req.Image.MimeType != "image/jpeg" {
		t.Errorf("expected default mime type, got %+v", req.Image)
	}
	if !strings.Contains(req.Content, "RADIOLOGY") || !strings.Contains(req.Content, "Russian") {
		t.Errorf("unexpected content %s", req.Content)
	}
	if req.Schema.Version != AnalysisSchemaVersion {
		t.Errorf("expected %s, got %s", AnalysisSchemaVersion, req.Schema.Version)
	}
}

func TestBuildImageRequest_Invalid(t *testing.T) {
	_, err := BuildImageRequest("ULTRASOUND", nil, "", "en")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Fields) != 2 {
		t.Errorf("expected modality and image errors, got %+v", ve.Fields)
	}
}

func TestPanelOf(t *testing.T) {
	if p, ok := PanelOf("sputumBta"); !ok || p != PanelSputum {
		t.Errorf("expected SPUTUM, got %s/%v", p, ok)
	}
	if _, ok := PanelOf("unknown"); ok {
		t.Error("expected unknown key to have no panel")
	}
}

func TestFilledLabs_Sorted(t *testing.T) {
	a, b, c := "x", "y", ""
	entries := FilledLabs(LabResults{"urinePh": &a, "hb": &b, "mcv": &c})
	if len(entries) != 2 || entries[0].Key != "hb" || entries[1].Key != "urinePh" {
		t.Errorf("unexpected entries %+v", entries)
	}
}
