package diagnosis

import (
	"fmt"
	"math"

	"github.com/samber/lo"
)

// TriageClass is the styling token for a triage level.
type TriageClass string

const (
	TriageCritical TriageClass = "critical"
	TriageHigh     TriageClass = "high"
	TriageModerate TriageClass = "moderate"
	TriageRoutine  TriageClass = "routine"
)

var triageClasses = map[int]TriageClass{
	1: TriageCritical,
	2: TriageHigh,
	3: TriageModerate,
	4: TriageRoutine,
}

// TriageColorClass maps a level to its class. Levels outside 1-4 are an
// error; they are never defaulted.
func TriageColorClass(level int) (TriageClass, error) {
	c, ok := triageClasses[level]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrInvalidTriageLevel, level)
	}
	return c, nil
}

// IsUrgent reports whether the result is triage level 1 or 2.
func IsUrgent(result *DiagnosisResult) (bool, error) {
	if result == nil {
		return false, &PreconditionViolation{Op: "IsUrgent", Reason: "nil result"}
	}
	if _, err := TriageColorClass(result.TriageLevel); err != nil {
		return false, err
	}
	return result.TriageLevel <= 2, nil
}

// RiskBand is the three-way bucket used for risk bars.
type RiskBand string

const (
	RiskHigh   RiskBand = "high"
	RiskMedium RiskBand = "medium"
	RiskLow    RiskBand = "low"
)

// BandFor buckets a 0-100 risk percentage: >70 high, >40 medium, else low.
func BandFor(v float64) RiskBand {
	switch {
	case v > 70:
		return RiskHigh
	case v > 40:
		return RiskMedium
	default:
		return RiskLow
	}
}

// RiskBar is one rendered row of the risk matrix.
type RiskBar struct {
	Name  string   `json:"name"`
	Value float64  `json:"value"`
	Band  RiskBand `json:"band"`
}

// RiskBars returns the five risk dimensions with their bands.
func RiskBars(r Risks) []RiskBar {
	return lo.Map(r.Named(), func(n NamedRisk, _ int) RiskBar {
		return RiskBar{Name: n.Name, Value: n.Value, Band: BandFor(n.Value)}
	})
}

// roundHalfUp rounds .5 towards positive infinity.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// AverageRisk is the rounded mean heart-disease risk across records, or 0
// when there are none. Records without a result are skipped.
func AverageRisk(records []DiagnosisRecord) int {
	withResult := lo.Filter(records, func(r DiagnosisRecord, _ int) bool { return r.Result != nil })
	if len(withResult) == 0 {
		return 0
	}
	sum := lo.SumBy(withResult, func(r DiagnosisRecord) float64 { return r.Result.Risks.HeartDisease })
	return roundHalfUp(sum / float64(len(withResult)))
}

// DashboardStats is the aggregate summary over a set of records.
type DashboardStats struct {
	TotalPatients int         `json:"totalPatients"`
	UrgentCases   int         `json:"urgentCases"`
	StableCases   int         `json:"stableCases"`
	AvgRisk       int         `json:"avgRisk"`
	ByTriage      map[int]int `json:"byTriage"`
}

// Summarize computes dashboard statistics. A record with an invalid triage
// level fails the whole summary.
func Summarize(records []DiagnosisRecord) (*DashboardStats, error) {
	stats := &DashboardStats{
		TotalPatients: len(records),
		ByTriage:      map[int]int{1: 0, 2: 0, 3: 0, 4: 0},
		AvgRisk:       AverageRisk(records),
	}
	for _, r := range records {
		urgent, err := IsUrgent(r.Result)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID, err)
		}
		if urgent {
			stats.UrgentCases++
		}
		stats.ByTriage[r.Result.TriageLevel]++
	}
	stats.StableCases = stats.TotalPatients - stats.UrgentCases
	return stats, nil
}
