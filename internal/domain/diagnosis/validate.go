package diagnosis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValidateDiagnosis parses raw engine output and checks it against the
// diagnosis schema. Missing or mistyped mandatory fields produce a
// SchemaViolation; nothing is defaulted. Optional fields that are absent come
// back as empty values.
func ValidateDiagnosis(raw string) (*DiagnosisResult, error) {
	schema := DiagnosisSchema()
	if err := checkAgainst(raw, schema); err != nil {
		return nil, err
	}
	var out DiagnosisResult
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, &SchemaViolation{SchemaVersion: schema.Version, Issues: []SchemaIssue{{Path: "$", Message: err.Error()}}}
	}
	normalizeDiagnosis(&out)
	return &out, nil
}

// ValidateAnalysis is the imaging counterpart of ValidateDiagnosis.
func ValidateAnalysis(raw string) (*AnalysisResult, error) {
	schema := AnalysisSchema()
	if err := checkAgainst(raw, schema); err != nil {
		return nil, err
	}
	var out AnalysisResult
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, &SchemaViolation{SchemaVersion: schema.Version, Issues: []SchemaIssue{{Path: "$", Message: err.Error()}}}
	}
	return &out, nil
}

func checkAgainst(raw string, vs VersionedSchema) error {
	if strings.TrimSpace(raw) == "" {
		return ErrEmptyResponse
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return &SchemaViolation{SchemaVersion: vs.Version, Issues: []SchemaIssue{{Path: "$", Message: "malformed JSON: " + err.Error()}}}
	}
	if dec.More() {
		return &SchemaViolation{SchemaVersion: vs.Version, Issues: []SchemaIssue{{Path: "$", Message: "trailing data after JSON value"}}}
	}

	var issues []SchemaIssue
	walk(doc, vs.Schema, "$", &issues)
	if len(issues) > 0 {
		return &SchemaViolation{SchemaVersion: vs.Version, Issues: issues}
	}
	return nil
}

func walk(v interface{}, s *Schema, path string, issues *[]SchemaIssue) {
	add := func(format string, args ...interface{}) {
		*issues = append(*issues, SchemaIssue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	switch s.Type {
	case TypeObject:
		obj, ok := v.(map[string]interface{})
		if !ok {
			add("expected object, got %s", jsonKind(v))
			return
		}
		for _, name := range s.Required {
			if val, present := obj[name]; !present || val == nil {
				*issues = append(*issues, SchemaIssue{Path: path + "." + name, Message: "required field is missing"})
			}
		}
		for _, name := range s.PropertyNames() {
			val, present := obj[name]
			if !present || val == nil {
				continue
			}
			walk(val, s.Properties[name], path+"."+name, issues)
		}

	case TypeArray:
		arr, ok := v.([]interface{})
		if !ok {
			add("expected array, got %s", jsonKind(v))
			return
		}
		for i, item := range arr {
			walk(item, s.Items, fmt.Sprintf("%s[%d]", path, i), issues)
		}

	case TypeString:
		sv, ok := v.(string)
		if !ok {
			add("expected string, got %s", jsonKind(v))
			return
		}
		if len(s.Enum) > 0 && !contains(s.Enum, sv) {
			add("value %q not in %v", sv, s.Enum)
		}

	case TypeInteger:
		n, ok := v.(json.Number)
		if !ok {
			add("expected integer, got %s", jsonKind(v))
			return
		}
		i, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			add("expected integer, got %s", n.String())
			return
		}
		checkRange(float64(i), s, add)

	case TypeNumber:
		n, ok := v.(json.Number)
		if !ok {
			add("expected number, got %s", jsonKind(v))
			return
		}
		f, err := n.Float64()
		if err != nil {
			add("expected number, got %s", n.String())
			return
		}
		checkRange(f, s, add)
	}
}

func checkRange(f float64, s *Schema, add func(string, ...interface{})) {
	if s.Minimum != nil && f < *s.Minimum {
		add("value %v below minimum %v", f, *s.Minimum)
	}
	if s.Maximum != nil && f > *s.Maximum {
		add("value %v above maximum %v", f, *s.Maximum)
	}
}

func jsonKind(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func normalizeDiagnosis(r *DiagnosisResult) {
	if r.DifferentialDiagnoses == nil {
		r.DifferentialDiagnoses = []string{}
	}
	if r.AffectedSystems == nil {
		r.AffectedSystems = []string{}
	}
	if r.Medications == nil {
		r.Medications = []Medication{}
	}
	if r.Actions.Tests == nil {
		r.Actions.Tests = []string{}
	}
	if r.Actions.NonPharma == nil {
		r.Actions.NonPharma = []string{}
	}
}
