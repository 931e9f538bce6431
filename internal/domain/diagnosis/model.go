package diagnosis

import (
	"time"

	"github.com/google/uuid"
)

// Gender of the patient as captured on the intake form.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// BloodType is the ABO/Rh group, or Unknown when not typed.
type BloodType string

const (
	BloodAPos    BloodType = "A+"
	BloodANeg    BloodType = "A-"
	BloodBPos    BloodType = "B+"
	BloodBNeg    BloodType = "B-"
	BloodABPos   BloodType = "AB+"
	BloodABNeg   BloodType = "AB-"
	BloodOPos    BloodType = "O+"
	BloodONeg    BloodType = "O-"
	BloodUnknown BloodType = "Unknown"
)

var validBloodTypes = map[BloodType]bool{
	BloodAPos: true, BloodANeg: true, BloodBPos: true, BloodBNeg: true,
	BloodABPos: true, BloodABNeg: true, BloodOPos: true, BloodONeg: true,
	BloodUnknown: true,
}

type SmokingStatus string

const (
	SmokingNever   SmokingStatus = "Never"
	SmokingFormer  SmokingStatus = "Former"
	SmokingCurrent SmokingStatus = "Current"
)

type AlcoholConsumption string

const (
	AlcoholNone   AlcoholConsumption = "None"
	AlcoholSocial AlcoholConsumption = "Social"
	AlcoholHeavy  AlcoholConsumption = "Heavy"
)

type PhysicalActivity string

const (
	ActivitySedentary PhysicalActivity = "Sedentary"
	ActivityModerate  PhysicalActivity = "Moderate"
	ActivityActive    PhysicalActivity = "Active"
)

// InputType records how the intake was captured.
type InputType string

const (
	InputManual InputType = "MANUAL"
	InputVoice  InputType = "VOICE"
)

// Severity is shared by diagnostic and imaging results.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityModerate Severity = "MODERATE"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

var validSeverities = map[Severity]bool{
	SeverityLow: true, SeverityModerate: true, SeverityHigh: true, SeverityCritical: true,
}

// Valid reports whether s is one of the four severity values.
func (s Severity) Valid() bool { return validSeverities[s] }

// Modality of an imaging analysis.
type Modality string

const (
	ModalityRadiology   Modality = "RADIOLOGY"
	ModalityDermatology Modality = "DERMATOLOGY"
)

// Vitals holds the bedside measurements. Weight and Height are optional.
type Vitals struct {
	Systolic    float64  `json:"systolic"`
	Diastolic   float64  `json:"diastolic"`
	HeartRate   float64  `json:"heartRate"`
	RespRate    float64  `json:"respRate"`
	Temperature float64  `json:"temperature"`
	SpO2        float64  `json:"spo2"`
	Weight      *float64 `json:"weight,omitempty"`
	Height      *float64 `json:"height,omitempty"`
}

// LabResults maps catalog keys (see LabPanels) to the entered value. A nil
// value means the field was touched but left blank.
type LabResults map[string]*string

// PatientInput is one encounter's intake data.
type PatientInput struct {
	PatientID          string             `json:"patientId"`
	PatientName        string             `json:"patientName"`
	MRN                string             `json:"mrn"`
	DOB                string             `json:"dob"`
	Age                int                `json:"age"`
	Gender             Gender             `json:"gender"`
	BloodType          BloodType          `json:"bloodType"`
	SmokingStatus      SmokingStatus      `json:"smokingStatus"`
	AlcoholConsumption AlcoholConsumption `json:"alcoholConsumption"`
	PhysicalActivity   PhysicalActivity   `json:"physicalActivity"`
	Complaint          string             `json:"complaint"`
	History            string             `json:"history"`
	CurrentMeds        string             `json:"currentMeds"`
	Allergies          string             `json:"allergies"`
	Vitals             Vitals             `json:"vitals"`
	LabResults         LabResults         `json:"labResults"`
	InputType          InputType          `json:"inputType"`
}

// dobLayout is the HTML date input format used by the intake form.
const dobLayout = "2006-01-02"

// NewPatientInput returns an intake form with a fresh patient id and the
// default vitals shown on an empty form.
func NewPatientInput() PatientInput {
	weight, height := 70.0, 170.0
	return PatientInput{
		PatientID:          uuid.New().String(),
		Gender:             GenderMale,
		BloodType:          BloodUnknown,
		SmokingStatus:      SmokingNever,
		AlcoholConsumption: AlcoholNone,
		PhysicalActivity:   ActivityModerate,
		Vitals: Vitals{
			Systolic:    120,
			Diastolic:   80,
			HeartRate:   72,
			RespRate:    16,
			Temperature: 36.5,
			SpO2:        98,
			Weight:      &weight,
			Height:      &height,
		},
		LabResults: LabResults{},
		InputType:  InputManual,
	}
}

// SetDOB sets the date of birth and re-derives Age from it relative to now.
func (p *PatientInput) SetDOB(dob string, now time.Time) error {
	p.DOB = dob
	return p.DeriveAge(now)
}

// DeriveAge recomputes Age from DOB. Age is the difference in calendar years,
// matching the intake form. An empty DOB leaves Age untouched.
func (p *PatientInput) DeriveAge(now time.Time) error {
	if p.DOB == "" {
		return nil
	}
	birth, err := time.Parse(dobLayout, p.DOB)
	if err != nil {
		return &ValidationError{Fields: []FieldError{{Field: "dob", Message: "must be a YYYY-MM-DD date"}}}
	}
	p.Age = now.Year() - birth.Year()
	return nil
}

// Medication is one line of the proposed treatment plan.
type Medication struct {
	Name               string  `json:"name"`
	Dosage             string  `json:"dosage"`
	Frequency          string  `json:"frequency"`
	Duration           string  `json:"duration"`
	Contraindications  string  `json:"contraindications"`
	SideEffects        string  `json:"sideEffects"`
	InteractionWarning *string `json:"interactionWarning,omitempty"`
}

// Actions are the non-medication follow-ups.
type Actions struct {
	Tests     []string `json:"tests"`
	NonPharma []string `json:"nonPharma"`
	Referral  *string  `json:"referral"`
}

// Risks is the five-dimension risk matrix. Each dimension is an independent
// 0-100 estimate; no relationship between them is assumed.
type Risks struct {
	HeartDisease   float64 `json:"heartDisease"`
	Stroke         float64 `json:"stroke"`
	KidneyFailure  float64 `json:"kidneyFailure"`
	Cancer         float64 `json:"cancer"`
	Diabetes       float64 `json:"diabetes"`
	PredictionText string  `json:"predictionText"`
}

// Named returns the numeric risk dimensions in display order.
func (r Risks) Named() []NamedRisk {
	return []NamedRisk{
		{Name: "heartDisease", Value: r.HeartDisease},
		{Name: "stroke", Value: r.Stroke},
		{Name: "kidneyFailure", Value: r.KidneyFailure},
		{Name: "cancer", Value: r.Cancer},
		{Name: "diabetes", Value: r.Diabetes},
	}
}

type NamedRisk struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// DiagnosisResult is the validated output of one diagnostic request.
// triageLevel and severity are supplied independently by the engine and are
// never reconciled with each other.
type DiagnosisResult struct {
	PrimaryDiagnosis      string       `json:"primaryDiagnosis"`
	ICD10Code             string       `json:"icd10Code"`
	DifferentialDiagnoses []string     `json:"differentialDiagnoses"`
	ClinicalReasoning     string       `json:"clinicalReasoning"`
	TriageLevel           int          `json:"triageLevel"`
	Severity              Severity     `json:"severity"`
	Confidence            float64      `json:"confidence"`
	AffectedSystems       []string     `json:"affectedSystems"`
	PatientEducation      string       `json:"patientEducation"`
	Medications           []Medication `json:"medications"`
	Actions               Actions      `json:"actions"`
	Risks                 Risks        `json:"risks"`
	Timestamp             string       `json:"timestamp"`
}

// AnalysisResult is the output of an imaging analysis.
type AnalysisResult struct {
	Modality        Modality `json:"modality"`
	Findings        string   `json:"findings"`
	Diagnosis       string   `json:"diagnosis"`
	Recommendations string   `json:"recommendations"`
	Severity        Severity `json:"severity"`
}

// DiagnosisRecord is the durable unit of record. PatientData and Result are
// value copies; later edits to a working form never reach stored records.
type DiagnosisRecord struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId"`
	PatientData PatientInput     `json:"patientData"`
	Result      *DiagnosisResult `json:"result"`
	Timestamp   time.Time        `json:"timestamp"`
}

// NewRecord snapshots input and result into a new record owned by userID.
func NewRecord(userID string, input PatientInput, result DiagnosisResult, at time.Time) DiagnosisRecord {
	return DiagnosisRecord{
		ID:          uuid.New().String(),
		UserID:      userID,
		PatientData: input.Clone(),
		Result:      result.Clone(),
		Timestamp:   at.UTC(),
	}
}

// Clone returns a deep copy of the intake.
func (p PatientInput) Clone() PatientInput {
	out := p
	if p.Vitals.Weight != nil {
		w := *p.Vitals.Weight
		out.Vitals.Weight = &w
	}
	if p.Vitals.Height != nil {
		h := *p.Vitals.Height
		out.Vitals.Height = &h
	}
	out.LabResults = make(LabResults, len(p.LabResults))
	for k, v := range p.LabResults {
		if v == nil {
			out.LabResults[k] = nil
			continue
		}
		s := *v
		out.LabResults[k] = &s
	}
	return out
}

// Clone returns a deep copy of the result.
func (r DiagnosisResult) Clone() *DiagnosisResult {
	out := r
	out.DifferentialDiagnoses = append([]string{}, r.DifferentialDiagnoses...)
	out.AffectedSystems = append([]string{}, r.AffectedSystems...)
	out.Medications = make([]Medication, len(r.Medications))
	for i, m := range r.Medications {
		if m.InteractionWarning != nil {
			w := *m.InteractionWarning
			m.InteractionWarning = &w
		}
		out.Medications[i] = m
	}
	out.Actions.Tests = append([]string{}, r.Actions.Tests...)
	out.Actions.NonPharma = append([]string{}, r.Actions.NonPharma...)
	if r.Actions.Referral != nil {
		ref := *r.Actions.Referral
		out.Actions.Referral = &ref
	}
	return &out
}
