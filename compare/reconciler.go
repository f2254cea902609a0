// Package compare implements the key-based reconciliation engine: generic
// collection diffing, picklist dependency decoding, permission-grant
// reconciliation and field compatibility mapping.
package compare

import (
	"reflect"
	"sort"

	"github.com/orglens/orgsync/types"
)

// Status classifies one reconciliation item
type Status string

const (
	// StatusMatched means the record exists on both sides with equal
	// compared attributes
	StatusMatched Status = "matched"

	// StatusChanged means the record exists on both sides with at
	// least one differing compared attribute
	StatusChanged Status = "changed"

	// StatusSourceOnly means the key exists only in the source
	StatusSourceOnly Status = "source_only"

	// StatusTargetOnly means the key exists only in the target
	StatusTargetOnly Status = "target_only"
)

// statusRank orders items: changed, source_only, target_only, matched.
// The ordering is a contract so diffs are stable and diffable themselves.
var statusRank = map[Status]int{
	StatusChanged:    0,
	StatusSourceOnly: 1,
	StatusTargetOnly: 2,
	StatusMatched:    3,
}

// Item is one reconciled record pair. For one-sided items the missing
// side is populated with explicit false/empty defaults typed from the
// present side, so renderers never branch on absence.
type Item struct {
	Key               string       `json:"key"`
	Status            Status       `json:"status"`
	Source            types.Record `json:"source_values,omitempty"`
	Target            types.Record `json:"target_values,omitempty"`
	ChangedAttributes []string     `json:"changed_attributes,omitempty"`
}

// Result is a classified delta between two collections. Items are fully
// ordered at construction; downstream code never re-sorts.
type Result struct {
	TotalItems  int    `json:"total_items"`
	Matches     int    `json:"matches"`
	Differences int    `json:"differences"`
	SourceOnly  int    `json:"source_only"`
	TargetOnly  int    `json:"target_only"`
	Items       []Item `json:"items"`
}

// Reconcile diffs two collections under a natural key. Only compareFields
// are compared for keys present on both sides; array-valued attributes
// compare by deep structural equality. The function is side-effect free
// and commutative in everything but the source/target labeling.
func Reconcile(source, target *types.Collection, keyFn types.KeyFunc, compareFields []string) *Result {
	sourceByKey := indexByKey(source, keyFn)
	targetByKey := indexByKey(target, keyFn)

	keys := keyUnion(sourceByKey, targetByKey)

	result := &Result{
		TotalItems: len(keys),
		Items:      make([]Item, 0, len(keys)),
	}

	for _, key := range keys {
		src, inSource := sourceByKey[key]
		tgt, inTarget := targetByKey[key]

		switch {
		case inSource && inTarget:
			changed := changedAttributes(src, tgt, compareFields)
			item := Item{
				Key:    key,
				Source: src,
				Target: tgt,
			}
			if len(changed) > 0 {
				item.Status = StatusChanged
				item.ChangedAttributes = changed
				result.Differences++
			} else {
				item.Status = StatusMatched
				result.Matches++
			}
			result.Items = append(result.Items, item)

		case inSource:
			result.SourceOnly++
			result.Items = append(result.Items, Item{
				Key:    key,
				Status: StatusSourceOnly,
				Source: src,
				Target: absenceDefaults(src, compareFields),
			})

		default:
			result.TargetOnly++
			result.Items = append(result.Items, Item{
				Key:    key,
				Status: StatusTargetOnly,
				Source: absenceDefaults(tgt, compareFields),
				Target: tgt,
			})
		}
	}

	sort.SliceStable(result.Items, func(i, j int) bool {
		a, b := result.Items[i], result.Items[j]
		if statusRank[a.Status] != statusRank[b.Status] {
			return statusRank[a.Status] < statusRank[b.Status]
		}
		return a.Key < b.Key
	})

	return result
}

// FieldUnion returns the sorted union of attribute names present on
// either side, minus the excluded key attributes. Callers that do not
// name compare fields explicitly use it to compare every non-key
// attribute.
func FieldUnion(source, target *types.Collection, exclude ...string) []string {
	excluded := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		excluded[name] = struct{}{}
	}

	seen := make(map[string]struct{})
	var fields []string
	collect := func(c *types.Collection) {
		if c == nil {
			return
		}
		for _, rec := range c.Records {
			for name := range rec {
				if _, skip := excluded[name]; skip {
					continue
				}
				if _, ok := seen[name]; !ok {
					seen[name] = struct{}{}
					fields = append(fields, name)
				}
			}
		}
	}
	collect(source)
	collect(target)

	sort.Strings(fields)
	return fields
}

// indexByKey builds the key -> record map of one side. Records with an
// empty key are unkeyable and dropped from reconciliation.
func indexByKey(c *types.Collection, keyFn types.KeyFunc) map[string]types.Record {
	byKey := make(map[string]types.Record, c.Len())
	if c == nil {
		return byKey
	}
	for _, rec := range c.Records {
		if key := keyFn(rec); key != "" {
			byKey[key] = rec
		}
	}
	return byKey
}

// keyUnion returns the sorted union of both sides' keys
func keyUnion(source, target map[string]types.Record) []string {
	seen := make(map[string]struct{}, len(source)+len(target))
	keys := make([]string, 0, len(source)+len(target))
	for k := range source {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	for k := range target {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// changedAttributes returns the compared attributes whose values differ,
// in compareFields order
func changedAttributes(src, tgt types.Record, compareFields []string) []string {
	var changed []string
	for _, field := range compareFields {
		if !valuesEqual(src[field], tgt[field]) {
			changed = append(changed, field)
		}
	}
	return changed
}

// valuesEqual compares two attribute values by structure, tolerating the
// representation drift between hand-built records and JSON-decoded ones
// (int vs float64, []string vs []interface{})
func valuesEqual(a, b interface{}) bool {
	return reflect.DeepEqual(normalizeValue(a), normalizeValue(b))
}

func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = normalizeValue(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[k] = normalizeValue(item)
		}
		return out
	case types.Record:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[k] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}

// absenceDefaults builds the missing side of a one-sided item: every
// compared attribute gets the explicit zero value matching the present
// side's type (boolean grants become false, never nil)
func absenceDefaults(present types.Record, compareFields []string) types.Record {
	defaults := make(types.Record, len(compareFields))
	for _, field := range compareFields {
		defaults[field] = zeroFor(present[field])
	}
	return defaults
}

func zeroFor(v interface{}) interface{} {
	switch v.(type) {
	case bool:
		return false
	case string:
		return ""
	case int, int32, int64, float32, float64:
		return float64(0)
	case []string, []interface{}:
		return []interface{}{}
	case map[string]interface{}, types.Record:
		return map[string]interface{}{}
	default:
		return nil
	}
}
