package types

// Relationship describes one child entity type referencing a root type
// via a foreign key, as reported by the platform's object describe.
type Relationship struct {
	// ChildType is the API name of the child entity type
	ChildType string `json:"child_type"`

	// ForeignKeyField is the child attribute holding the root identifier
	ForeignKeyField string `json:"foreign_key_field"`

	// RelationshipName is the platform's name for the relationship,
	// empty for some system relationships
	RelationshipName string `json:"relationship_name,omitempty"`

	// CascadeDelete reports whether the platform deletes children with
	// their parent
	CascadeDelete bool `json:"cascade_delete"`
}
