package compare

import (
	"fmt"
	"sort"

	"github.com/orglens/orgsync/types"
)

// FieldSpec is the schema-level description of one field used by the
// pre-flight compatibility check
type FieldSpec struct {
	Name        string   `json:"name"`
	Label       string   `json:"label,omitempty"`
	Type        string   `json:"type"`
	Required    bool     `json:"required"`
	ReferenceTo []string `json:"reference_to,omitempty"`
}

// FieldSpecFromRecord builds a FieldSpec from a field-describe record.
// The platform reports optionality as "nillable"; a non-nillable,
// non-defaulted field is required on write.
func FieldSpecFromRecord(r types.Record) FieldSpec {
	return FieldSpec{
		Name:        r.GetString("name"),
		Label:       r.GetString("label"),
		Type:        r.GetString("type"),
		Required:    !r.GetBool("nillable") && !r.GetBool("defaultedOnCreate"),
		ReferenceTo: r.GetStrings("referenceTo"),
	}
}

// FieldPair holds the source and target sides of one matched field
type FieldPair struct {
	Source FieldSpec `json:"source"`
	Target FieldSpec `json:"target"`
}

// Severity classifies a compatibility recommendation
type Severity string

const (
	// SeverityBlocking marks findings that make migration unsafe
	SeverityBlocking Severity = "blocking"

	// SeverityAdvisory marks findings to review before migrating
	SeverityAdvisory Severity = "advisory"
)

// Recommendation is one pre-flight finding. Severity is a pure function
// of two signals: required-and-missing blocks, everything else advises.
type Recommendation struct {
	Severity Severity `json:"severity"`
	Field    string   `json:"field"`
	Message  string   `json:"message"`
}

// CompatibilityReport classifies every source field against the target
// schema
type CompatibilityReport struct {
	Exact              []FieldPair      `json:"exact"`
	Compatible         []FieldPair      `json:"compatible"`
	TypeMismatch       []FieldPair      `json:"type_mismatch"`
	MissingInTarget    []FieldSpec      `json:"missing_in_target"`
	AdditionalInTarget []FieldSpec      `json:"additional_in_target"`
	Recommendations    []Recommendation `json:"recommendations"`
}

// HasBlocking reports whether any recommendation blocks migration
func (r *CompatibilityReport) HasBlocking() bool {
	for _, rec := range r.Recommendations {
		if rec.Severity == SeverityBlocking {
			return true
		}
	}
	return false
}

// MapCompatibility classifies each source field as exact, compatible,
// type-mismatched or missing in the target.
//
// A pair is exact only when types match and, for reference fields, the
// sorted set of allowed target types is identical. Picklist-to-picklist
// pairs are compatible without value-level checking; value drift is an
// explicit separate check through Reconcile/DecodeDependency. Reference
// pairs whose allowed-type sets differ are compatible but not exact, and
// raise no recommendation: only missing fields and type mismatches feed
// severity.
func MapCompatibility(sourceFields, targetFields []FieldSpec) *CompatibilityReport {
	report := &CompatibilityReport{}

	targetByName := make(map[string]FieldSpec, len(targetFields))
	for _, f := range targetFields {
		targetByName[f.Name] = f
	}
	matchedTarget := make(map[string]struct{}, len(sourceFields))

	for _, src := range sourceFields {
		tgt, ok := targetByName[src.Name]
		if !ok {
			report.MissingInTarget = append(report.MissingInTarget, src)
			report.Recommendations = append(report.Recommendations, missingRecommendation(src))
			continue
		}
		matchedTarget[src.Name] = struct{}{}

		pair := FieldPair{Source: src, Target: tgt}
		switch {
		case src.Type != tgt.Type:
			report.TypeMismatch = append(report.TypeMismatch, pair)
			report.Recommendations = append(report.Recommendations, Recommendation{
				Severity: SeverityAdvisory,
				Field:    src.Name,
				Message: fmt.Sprintf("type differs between environments: source %s, target %s",
					src.Type, tgt.Type),
			})

		case isPicklistType(src.Type):
			report.Compatible = append(report.Compatible, pair)

		case src.Type == "reference" && !referenceSetsEqual(src.ReferenceTo, tgt.ReferenceTo):
			report.Compatible = append(report.Compatible, pair)

		default:
			report.Exact = append(report.Exact, pair)
		}
	}

	for _, tgt := range targetFields {
		if _, ok := matchedTarget[tgt.Name]; !ok {
			report.AdditionalInTarget = append(report.AdditionalInTarget, tgt)
		}
	}

	return report
}

func missingRecommendation(src FieldSpec) Recommendation {
	if src.Required {
		return Recommendation{
			Severity: SeverityBlocking,
			Field:    src.Name,
			Message:  "required field is missing in the target environment",
		}
	}
	return Recommendation{
		Severity: SeverityAdvisory,
		Field:    src.Name,
		Message:  "field is missing in the target environment; its values will be dropped",
	}
}

func isPicklistType(fieldType string) bool {
	return fieldType == "picklist" || fieldType == "multipicklist"
}

// referenceSetsEqual compares the allowed target types of two reference
// fields as sorted sets
func referenceSetsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
