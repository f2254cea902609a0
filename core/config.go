package core

import "time"

// EngineConfig carries the fixed knobs of the engine: batch sizes,
// deny-lists and managed-attribute lists. It is passed into each
// component at construction so tests can vary it.
type EngineConfig struct {
	// BatchSize is the number of records per bulk write call
	BatchSize int `json:"batch_size"`

	// ChunkSize is the number of identifiers per structured-query
	// lookup; callers of Querier chunk, never Querier itself
	ChunkSize int `json:"chunk_size"`

	// CallTimeout bounds every remote fetch/query/write call
	CallTimeout time.Duration `json:"call_timeout"`

	// SystemRelationshipSuffixes deny-lists child types whose name
	// ends in one of these (history/sharing/feed/tag/event tables)
	SystemRelationshipSuffixes []string `json:"system_relationship_suffixes"`

	// ManagedAttributes are server-managed attributes stripped from
	// exported records before writing
	ManagedAttributes []string `json:"managed_attributes"`

	// ExternalIDField, when non-empty, receives the original record
	// identifier on write so re-runs upsert instead of duplicating
	ExternalIDField string `json:"external_id_field,omitempty"`

	// AuxReference configures the auxiliary reference dimension
	// remapped by name across environments; nil disables the remap
	AuxReference *AuxReferenceConfig `json:"aux_reference,omitempty"`

	// StrictAux turns unmapped auxiliary references into run-blocking
	// errors instead of silent degradation
	StrictAux bool `json:"strict_aux"`
}

// AuxReferenceConfig names the one auxiliary ("lookup") dimension whose
// cross-environment identity resolves by a natural name, not identifier
type AuxReferenceConfig struct {
	// Field is the foreign-key attribute on root/child records
	Field string `json:"field"`

	// LookupType is the referenced entity type
	LookupType string `json:"lookup_type"`

	// NameField is the natural-key attribute of the lookup type
	NameField string `json:"name_field"`
}

// DefaultEngineConfig provides default configuration
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		BatchSize:   200,
		ChunkSize:   200,
		CallTimeout: 2 * time.Minute,
		SystemRelationshipSuffixes: []string{
			"History",
			"Feed",
			"Share",
			"Tag",
			"Event",
			"ChangeEvent",
		},
		ManagedAttributes: []string{
			"Id",
			"CreatedDate",
			"CreatedById",
			"LastModifiedDate",
			"LastModifiedById",
			"SystemModstamp",
		},
	}
}

// ObjectGrantFields are the compared attributes of object-level grants
var ObjectGrantFields = []string{
	"PermissionsCreate",
	"PermissionsRead",
	"PermissionsEdit",
	"PermissionsDelete",
	"PermissionsViewAllRecords",
	"PermissionsModifyAllRecords",
}

// FieldGrantFields are the compared attributes of field-level grants
var FieldGrantFields = []string{
	"PermissionsRead",
	"PermissionsEdit",
}
