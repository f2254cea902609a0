// Package types defines the data model shared by the orgsync engine:
// loosely-typed platform records, entity collections, environment handles
// and the normalized dependency-mapping shape.
package types

import (
	"fmt"
	"sort"
)

// EntityType identifies one kind of platform metadata or data entity
type EntityType string

const (
	// EntityObject is a top-level object (table) definition
	EntityObject EntityType = "object"

	// EntityField is a field definition on an object
	EntityField EntityType = "field"

	// EntityPicklistValue is one enumerated value of a picklist field
	EntityPicklistValue EntityType = "picklist_value"

	// EntityValidationRule is a declarative validation rule
	EntityValidationRule EntityType = "validation_rule"

	// EntityFlow is an automation flow definition
	EntityFlow EntityType = "flow"

	// EntityProfile is a profile (permission container)
	EntityProfile EntityType = "profile"

	// EntityPermissionSet is a permission set
	EntityPermissionSet EntityType = "permission_set"

	// EntityObjectPermission is an object-level permission grant
	EntityObjectPermission EntityType = "object_permission"

	// EntityFieldPermission is a field-level permission grant
	EntityFieldPermission EntityType = "field_permission"

	// EntityRelationship is a child-relationship descriptor of an object
	EntityRelationship EntityType = "relationship"

	// EntityRecord is a plain data record (migration root or child)
	EntityRecord EntityType = "record"
)

// Record is a flat attribute map as returned by the remote platform.
// Values are scalars, nested maps or arrays of either; records carry no
// identity beyond the natural key of their entity type.
type Record map[string]interface{}

// GetString returns a string attribute, or "" when absent or not a string
func (r Record) GetString(key string) string {
	if v, ok := r[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetBool returns a boolean attribute, or false when absent or not a bool
func (r Record) GetBool(key string) bool {
	if v, ok := r[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// GetStrings returns a string-array attribute. Arrays decoded from JSON
// arrive as []interface{}; both representations are accepted.
func (r Record) GetStrings(key string) []string {
	switch v := r[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Clone returns a shallow copy of the record
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ID returns the record's platform identifier attribute
func (r Record) ID() string {
	return r.GetString("Id")
}

// Collection is a read-only snapshot of records of one declared entity type
type Collection struct {
	Type    EntityType `json:"type"`
	Records []Record   `json:"records"`
}

// NewCollection creates a collection over the given records
func NewCollection(entityType EntityType, records []Record) *Collection {
	return &Collection{
		Type:    entityType,
		Records: records,
	}
}

// Len returns the number of records in the collection
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Records)
}

// KeyFunc derives the natural key of a record. The key joins the "same"
// logical record across two environments.
type KeyFunc func(Record) string

// KeyByAttribute returns a KeyFunc reading a single attribute
func KeyByAttribute(attr string) KeyFunc {
	return func(r Record) string {
		return r.GetString(attr)
	}
}

// KeyByAttributes returns a KeyFunc over a composite attribute pair,
// joined with a dot (e.g. object type + field name for field grants)
func KeyByAttributes(attrs ...string) KeyFunc {
	return func(r Record) string {
		parts := make([]string, 0, len(attrs))
		for _, attr := range attrs {
			parts = append(parts, r.GetString(attr))
		}
		return joinKey(parts)
	}
}

func joinKey(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	key := parts[0]
	for _, p := range parts[1:] {
		key = fmt.Sprintf("%s.%s", key, p)
	}
	return key
}

// SortedKeys returns the record keys of a collection under a KeyFunc,
// sorted lexicographically. Empty keys are skipped.
func (c *Collection) SortedKeys(keyFn KeyFunc) []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Records))
	for _, rec := range c.Records {
		if k := keyFn(rec); k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
