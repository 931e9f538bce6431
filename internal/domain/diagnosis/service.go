package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/alcortex/emr/internal/platform/engine"
	"github.com/alcortex/emr/internal/platform/notify"
)

// Engine is the external reasoning engine.
type Engine interface {
	Generate(ctx context.Context, req *engine.Request) (string, error)
}

// Notifier receives urgent-case events.
type Notifier interface {
	Publish(ctx context.Context, evt notify.Event) error
}

// ServiceConfig holds the engine models and defaults used by the Service.
type ServiceConfig struct {
	Model           string
	ImageModel      string
	DefaultLanguage string
}

// Display is the UI-facing classification derived from a result.
type Display struct {
	TriageClass TriageClass `json:"triageClass"`
	Urgent      bool        `json:"urgent"`
	RiskBars    []RiskBar   `json:"riskBars"`
}

// Classify derives the display state for result.
func Classify(result *DiagnosisResult) (*Display, error) {
	urgent, err := IsUrgent(result)
	if err != nil {
		return nil, err
	}
	class, _ := TriageColorClass(result.TriageLevel)
	return &Display{TriageClass: class, Urgent: urgent, RiskBars: RiskBars(result.Risks)}, nil
}

// Outcome is the result of a diagnostic request. Saved is false when the
// record could not be persisted; the result is still valid.
type Outcome struct {
	Record  DiagnosisRecord `json:"record"`
	Display Display         `json:"display"`
	Saved   bool            `json:"saved"`
}

type Service struct {
	engine   Engine
	records  RecordRepository
	notifier Notifier
	cfg      ServiceConfig
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(eng Engine, records RecordRepository, notifier Notifier, cfg ServiceConfig, logger zerolog.Logger) *Service {
	return &Service{
		engine:   eng,
		records:  records,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With().Str("component", "diagnosis").Logger(),
		now:      time.Now,
	}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) language(sess Session, tag string) string {
	if tag != "" {
		return tag
	}
	if sess.Language != "" {
		return string(sess.Language)
	}
	return s.cfg.DefaultLanguage
}

// Diagnose runs one diagnostic request for sess. The record is persisted only
// after the engine output validates. A StoreWriteError is returned together
// with the outcome so the caller can still show the unsaved result.
func (s *Service) Diagnose(ctx context.Context, sess Session, input PatientInput, lang string) (*Outcome, error) {
	if sess.UserID == "" {
		return nil, &PreconditionViolation{Op: "Diagnose", Reason: "session has no user"}
	}
	now := s.now()
	if err := input.DeriveAge(now); err != nil {
		return nil, err
	}

	req, err := BuildDiagnosticRequest(input, s.language(sess, lang))
	if err != nil {
		return nil, err
	}
	engReq, err := req.EngineRequest(s.cfg.Model)
	if err != nil {
		return nil, err
	}

	log := s.logger.With().Str("user_id", sess.UserID).Str("lang", string(req.Language)).Logger()
	log.Info().Msg("diagnostic request started")

	raw, err := s.engine.Generate(ctx, engReq)
	if err != nil {
		log.Error().Err(err).Msg("engine call failed")
		return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}

	result, err := ValidateDiagnosis(raw)
	if err != nil {
		var sv *SchemaViolation
		if errors.As(err, &sv) {
			log.Warn().Int("issues", len(sv.Issues)).Str("schema", sv.SchemaVersion).Msg("engine response rejected")
		} else {
			log.Warn().Err(err).Msg("engine response rejected")
		}
		return nil, err
	}
	if result.Timestamp == "" {
		result.Timestamp = now.UTC().Format(time.RFC3339)
	}

	display, err := Classify(result)
	if err != nil {
		return nil, err
	}

	record := NewRecord(sess.UserID, input, *result, now)
	outcome := &Outcome{Record: record, Display: *display, Saved: true}

	if err := s.records.Append(ctx, sess, record); err != nil {
		outcome.Saved = false
		var swe *StoreWriteError
		if !errors.As(err, &swe) {
			err = &StoreWriteError{RecordID: record.ID, Err: err}
		}
		log.Error().Err(err).Str("record_id", record.ID).Msg("record not saved")
		return outcome, err
	}

	log.Info().
		Str("record_id", record.ID).
		Int("triage_level", result.TriageLevel).
		Str("severity", string(result.Severity)).
		Msg("diagnostic record saved")

	if display.Urgent {
		s.notifyUrgent(ctx, record)
	}
	return outcome, nil
}

func (s *Service) notifyUrgent(ctx context.Context, record DiagnosisRecord) {
	if s.notifier == nil {
		return
	}
	evt := notify.Event{
		Type:             notify.EventUrgentCase,
		RecordID:         record.ID,
		UserID:           record.UserID,
		PatientID:        record.PatientData.PatientID,
		TriageLevel:      record.Result.TriageLevel,
		Severity:         string(record.Result.Severity),
		PrimaryDiagnosis: record.Result.PrimaryDiagnosis,
		ICD10Code:        record.Result.ICD10Code,
		OccurredAt:       record.Timestamp,
	}
	if err := s.notifier.Publish(ctx, evt); err != nil {
		s.logger.Warn().Err(err).Str("record_id", record.ID).Msg("urgent case notification failed")
	}
}

// AnalyzeImage runs an imaging analysis. Results are not persisted.
func (s *Service) AnalyzeImage(ctx context.Context, sess Session, modality Modality, image []byte, mimeType, lang string) (*AnalysisResult, error) {
	req, err := BuildImageRequest(modality, image, mimeType, s.language(sess, lang))
	if err != nil {
		return nil, err
	}
	engReq, err := req.EngineRequest(s.cfg.ImageModel)
	if err != nil {
		return nil, err
	}

	raw, err := s.engine.Generate(ctx, engReq)
	if err != nil {
		s.logger.Error().Err(err).Str("modality", string(modality)).Msg("image analysis failed")
		return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	result, err := ValidateAnalysis(raw)
	if err != nil {
		s.logger.Warn().Err(err).Str("modality", string(modality)).Msg("image analysis rejected")
		return nil, err
	}
	if result.Modality == "" {
		result.Modality = modality
	}
	return result, nil
}

// History returns the session user's records, most recent first.
func (s *Service) History(ctx context.Context, sess Session) ([]DiagnosisRecord, error) {
	return s.records.ListByUser(ctx, sess.UserID)
}

// AllRecords returns every record regardless of owner.
func (s *Service) AllRecords(ctx context.Context) ([]DiagnosisRecord, error) {
	return s.records.ListAll(ctx)
}

// Record returns one of the session user's records.
func (s *Service) Record(ctx context.Context, sess Session, id string) (*DiagnosisRecord, error) {
	records, err := s.records.ListByUser(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
	}
	return nil, ErrRecordNotFound
}

// Dashboard summarizes the session user's records.
func (s *Service) Dashboard(ctx context.Context, sess Session) (*DashboardStats, error) {
	records, err := s.records.ListByUser(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	return Summarize(records)
}
