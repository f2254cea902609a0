package compare

import (
	"github.com/orglens/orgsync/core"
	"github.com/orglens/orgsync/types"
)

// PermissionResult carries the reconciliation of a profile's or
// permission set's grants: object-level and field-level deltas plus a
// combined summary over both
type PermissionResult struct {
	Object   *Result `json:"object"`
	Field    *Result `json:"field"`
	Combined Summary `json:"combined_summary"`
}

// Summary aggregates the counters of one or more reconciliation results.
// Object and field grants key on different natural keys, so summing never
// double-counts a key that legitimately differs between the two kinds.
type Summary struct {
	TotalItems  int `json:"total_items"`
	Matches     int `json:"matches"`
	Differences int `json:"differences"`
	SourceOnly  int `json:"source_only"`
	TargetOnly  int `json:"target_only"`
}

// Add accumulates one result's counters into the summary
func (s *Summary) Add(r *Result) {
	if r == nil {
		return
	}
	s.TotalItems += r.TotalItems
	s.Matches += r.Matches
	s.Differences += r.Differences
	s.SourceOnly += r.SourceOnly
	s.TargetOnly += r.TargetOnly
}

// ReconcilePermissions diffs the object-level and field-level grants of
// two environments under fixed compare-field sets. Object grants key on
// the subject object type alone; field grants key on the composite
// (object type, field name) to avoid cross-object collisions.
func ReconcilePermissions(sourceObject, targetObject, sourceField, targetField *types.Collection) *PermissionResult {
	objectResult := Reconcile(sourceObject, targetObject,
		types.KeyByAttribute("SobjectType"), core.ObjectGrantFields)

	fieldResult := Reconcile(sourceField, targetField,
		fieldGrantKey, core.FieldGrantFields)

	result := &PermissionResult{
		Object: objectResult,
		Field:  fieldResult,
	}
	result.Combined.Add(objectResult)
	result.Combined.Add(fieldResult)
	return result
}

// fieldGrantKey keys field-level grants. Platform responses carry the
// field as "Object.Field" in the Field attribute; some older API versions
// return the bare field name next to SobjectType instead.
func fieldGrantKey(r types.Record) string {
	field := r.GetString("Field")
	object := r.GetString("SobjectType")
	if field == "" {
		return ""
	}
	if object == "" || hasDotPrefix(field, object) {
		return field
	}
	return object + "." + field
}

// hasDotPrefix reports whether field is already qualified as object.name
func hasDotPrefix(field, object string) bool {
	prefix := object + "."
	return len(field) > len(prefix) && field[:len(prefix)] == prefix
}
