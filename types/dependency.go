package types

// DependencyMapping is the normalized "controlling value -> enabled
// dependent values" relationship between two picklist fields. Both source
// encodings (bitfield and explicit value settings) decode to this one
// shape so mappings from either path diff without special-casing.
type DependencyMapping struct {
	DependentField   string            `json:"dependent_field"`
	ControllingField string            `json:"controlling_field"`
	Entries          []DependencyEntry `json:"entries"`
}

// DependencyEntry lists the dependent values enabled for one controlling
// value. Entries with zero enabled values are never emitted.
type DependencyEntry struct {
	ControllingValue string   `json:"controlling_value"`
	EnabledValues    []string `json:"enabled_dependent_values"`
}

// Entry returns the entry for a controlling value, or nil
func (m *DependencyMapping) Entry(controllingValue string) *DependencyEntry {
	for i := range m.Entries {
		if m.Entries[i].ControllingValue == controllingValue {
			return &m.Entries[i]
		}
	}
	return nil
}

// DependencyEncoding tags the source representation a dependency mapping
// was decoded from
type DependencyEncoding string

const (
	// EncodingBitfield marks the packed per-value validity vector form
	EncodingBitfield DependencyEncoding = "bitfield"

	// EncodingExplicit marks the explicit per-pair value settings form
	EncodingExplicit DependencyEncoding = "explicit"
)

// PicklistEntry is one value of a picklist field as described by the
// remote platform. ValidFor carries the base64 bitfield that marks, per
// controlling-value index, whether this value is enabled.
type PicklistEntry struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Active   bool   `json:"active"`
	ValidFor string `json:"validFor,omitempty"`
}

// ValueSetting is one explicit dependency declaration: the dependent
// value is enabled for each listed controlling value.
type ValueSetting struct {
	ControllingValues []string `json:"controllingFieldValue"`
	Value             string   `json:"valueName"`
}

// DependencySource is the tagged union of the two encodings. Exactly one
// of Bitfield/Explicit is set, per Encoding.
type DependencySource struct {
	Encoding         DependencyEncoding `json:"encoding"`
	DependentField   string             `json:"dependent_field"`
	ControllingField string             `json:"controlling_field"`

	Bitfield *BitfieldSource `json:"bitfield,omitempty"`
	Explicit *ExplicitSource `json:"explicit,omitempty"`
}

// BitfieldSource holds the inputs of the bitfield form: the controlling
// field's ordered values and the dependent field's entries with their
// validity vectors.
type BitfieldSource struct {
	ControllingValues []string        `json:"controlling_values"`
	DependentValues   []PicklistEntry `json:"dependent_values"`
}

// ExplicitSource holds the inputs of the explicit form: the dependent
// field's own value set plus the declared settings.
type ExplicitSource struct {
	DependentValues []string       `json:"dependent_values"`
	Settings        []ValueSetting `json:"settings"`
}
