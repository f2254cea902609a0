package compare

import (
	"encoding/base64"
	"sort"

	"github.com/orglens/orgsync/core"
	"github.com/orglens/orgsync/types"
)

// DecodeDependency normalizes either encoding of a controlling/dependent
// picklist relationship into one DependencyMapping. Anomalies in the
// source data come back as warnings; only a structurally unusable source
// (unknown encoding, nil payload) returns an error.
func DecodeDependency(src *types.DependencySource) (*types.DependencyMapping, []*core.ValidationWarning, error) {
	if src == nil {
		return nil, nil, core.NewConfigurationError("dependency source cannot be nil")
	}

	switch src.Encoding {
	case types.EncodingBitfield:
		if src.Bitfield == nil {
			return nil, nil, core.NewConfigurationError("bitfield dependency source has no bitfield payload")
		}
		mapping, warnings := DecodeValidFor(src.DependentField, src.ControllingField, src.Bitfield.ControllingValues, src.Bitfield.DependentValues)
		return mapping, warnings, nil

	case types.EncodingExplicit:
		if src.Explicit == nil {
			return nil, nil, core.NewConfigurationError("explicit dependency source has no settings payload")
		}
		mapping, warnings := DecodeValueSettings(src.DependentField, src.ControllingField, src.Explicit.DependentValues, src.Explicit.Settings)
		return mapping, warnings, nil

	default:
		return nil, nil, core.NewConfigurationError("unknown dependency encoding %q", src.Encoding)
	}
}

// DecodeValidFor decodes the bitfield form. Each dependent value carries a
// base64 validity vector; bit i (byte i/8, bit i%8, LSB first) marks the
// value enabled when the controlling field holds controlling value i.
// Undecodable vectors never fail the comparison: the value is treated as
// disabled everywhere and the anomaly is reported as a warning.
func DecodeValidFor(dependentField, controllingField string, controlling []string, dependents []types.PicklistEntry) (*types.DependencyMapping, []*core.ValidationWarning) {
	mapping := &types.DependencyMapping{
		DependentField:   dependentField,
		ControllingField: controllingField,
	}
	var warnings []*core.ValidationWarning

	vectors := make([][]byte, len(dependents))
	for i, dep := range dependents {
		if dep.ValidFor == "" {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(dep.ValidFor)
		if err != nil {
			warnings = append(warnings, core.NewValidationWarning(dep.Value,
				"undecodable validity bitfield on dependent value: %v", err))
			continue
		}
		vectors[i] = decoded
	}

	for ctrlIdx, ctrlValue := range controlling {
		var enabled []string
		for depIdx, dep := range dependents {
			if bitSet(vectors[depIdx], ctrlIdx) {
				enabled = append(enabled, dep.Value)
			}
		}
		if len(enabled) == 0 {
			continue
		}
		sort.Strings(enabled)
		mapping.Entries = append(mapping.Entries, types.DependencyEntry{
			ControllingValue: ctrlValue,
			EnabledValues:    enabled,
		})
	}

	return mapping, warnings
}

// bitSet reads bit i of a validity vector; indexes beyond the vector are
// disabled
func bitSet(vector []byte, i int) bool {
	byteIdx := i / 8
	if byteIdx >= len(vector) {
		return false
	}
	return vector[byteIdx]>>(uint(i%8))&1 == 1
}

// DecodeValueSettings decodes the explicit-mapping form. Settings with
// several controlling values fan out into one pair per controlling value,
// grouped by controlling value in first-seen order afterward. Dependent
// values referenced by a setting but absent from the dependent field's
// own value set are kept and reported, never silently dropped.
func DecodeValueSettings(dependentField, controllingField string, dependentValues []string, settings []types.ValueSetting) (*types.DependencyMapping, []*core.ValidationWarning) {
	mapping := &types.DependencyMapping{
		DependentField:   dependentField,
		ControllingField: controllingField,
	}
	var warnings []*core.ValidationWarning

	known := make(map[string]struct{}, len(dependentValues))
	for _, v := range dependentValues {
		known[v] = struct{}{}
	}

	var order []string
	grouped := make(map[string][]string)
	reported := make(map[string]struct{})

	for _, setting := range settings {
		if _, ok := known[setting.Value]; !ok && len(dependentValues) > 0 {
			if _, dup := reported[setting.Value]; !dup {
				reported[setting.Value] = struct{}{}
				warnings = append(warnings, core.NewValidationWarning(setting.Value,
					"dependent value referenced by a setting does not exist in field %s", dependentField))
			}
		}
		for _, ctrl := range setting.ControllingValues {
			if _, seen := grouped[ctrl]; !seen {
				order = append(order, ctrl)
			}
			grouped[ctrl] = append(grouped[ctrl], setting.Value)
		}
	}

	for _, ctrl := range order {
		enabled := dedupe(grouped[ctrl])
		if len(enabled) == 0 {
			continue
		}
		sort.Strings(enabled)
		mapping.Entries = append(mapping.Entries, types.DependencyEntry{
			ControllingValue: ctrl,
			EnabledValues:    enabled,
		})
	}

	return mapping, warnings
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
