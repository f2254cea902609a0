package rpc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orglens/orgsync"
	"github.com/orglens/orgsync/compare"
	"github.com/orglens/orgsync/core"
	"github.com/orglens/orgsync/migrate"
	orgtest "github.com/orglens/orgsync/testing"
	"github.com/orglens/orgsync/types"
)

var (
	engineSource = &types.Environment{Label: "source", TenantID: "00Dsrc"}
	engineTarget = &types.Environment{Label: "target", TenantID: "00Dtgt"}
)

func call[Resp any](t *testing.T, engine Engine, function string, req interface{}) *Resp {
	t.Helper()

	input, err := json.Marshal(req)
	require.NoError(t, err)

	output, err := engine.CallFunction(context.Background(), function, input)
	require.NoError(t, err)

	var resp Resp
	require.NoError(t, json.Unmarshal(output, &resp))
	return &resp
}

func TestCallFunctionCompareWithSuppliedCollections(t *testing.T) {
	engine := NewStandardEngine(orgtest.NewFakeConnection(), nil)

	req := &CompareRequest{
		EntityType:    types.EntityField,
		KeyAttributes: []string{"DeveloperName"},
		Source: &types.Collection{Type: types.EntityField, Records: []types.Record{
			{"DeveloperName": "Status__c", "Label": "Status"},
			{"DeveloperName": "Owner__c", "Label": "Owner"},
		}},
		Target: &types.Collection{Type: types.EntityField, Records: []types.Record{
			{"DeveloperName": "Status__c", "Label": "State"},
		}},
	}

	resp := call[CompareResponse](t, engine, FuncCompare, req)
	require.True(t, resp.Success)
	require.Nil(t, resp.Error)
	require.Equal(t, 2, resp.Result.TotalItems)
	require.Equal(t, 1, resp.Result.Differences)
	require.Equal(t, 1, resp.Result.SourceOnly)
}

func TestCallFunctionCompareFetchesWhenCollectionsAbsent(t *testing.T) {
	fake := orgtest.NewFakeConnection()
	fake.SeedCollection(engineSource, types.EntityObject, &types.Collection{
		Type:    types.EntityObject,
		Records: []types.Record{{"QualifiedApiName": "Invoice__c"}},
	})
	fake.SeedCollection(engineTarget, types.EntityObject, &types.Collection{
		Type:    types.EntityObject,
		Records: []types.Record{{"QualifiedApiName": "Invoice__c"}},
	})
	engine := NewStandardEngine(fake, nil)

	req := &CompareRequest{
		EntityType:    types.EntityObject,
		KeyAttributes: []string{"QualifiedApiName"},
		SourceEnv:     engineSource,
		TargetEnv:     engineTarget,
	}

	resp := call[CompareResponse](t, engine, FuncCompare, req)
	require.True(t, resp.Success)
	require.Equal(t, 1, resp.Result.Matches)
}

func TestCallFunctionCompareDefaultsToAllNonKeyFields(t *testing.T) {
	engine := NewStandardEngine(orgtest.NewFakeConnection(), nil)

	// No compare_fields supplied: every non-key attribute is compared,
	// so the label drift must not be classified as matched.
	req := &CompareRequest{
		EntityType:    types.EntityField,
		KeyAttributes: []string{"DeveloperName"},
		Source: &types.Collection{Type: types.EntityField, Records: []types.Record{
			{"DeveloperName": "Status__c", "Label": "Status"},
		}},
		Target: &types.Collection{Type: types.EntityField, Records: []types.Record{
			{"DeveloperName": "Status__c", "Label": "State"},
		}},
	}

	resp := call[CompareResponse](t, engine, FuncCompare, req)
	require.True(t, resp.Success)
	require.Equal(t, 0, resp.Result.Matches)
	require.Equal(t, 1, resp.Result.Differences)
	require.Equal(t, []string{"Label"}, resp.Result.Items[0].ChangedAttributes)
}

func TestCallFunctionCompareRequiresKeyAttributes(t *testing.T) {
	engine := NewStandardEngine(orgtest.NewFakeConnection(), nil)

	resp := call[CompareResponse](t, engine, FuncCompare, &CompareRequest{})
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
}

func TestCallFunctionDecodeDependencies(t *testing.T) {
	engine := NewStandardEngine(orgtest.NewFakeConnection(), nil)

	req := &DecodeDependenciesRequest{
		DependentField:   "State__c",
		ControllingField: "Country__c",
		Source: &types.DependencySource{
			Encoding: types.EncodingExplicit,
			Explicit: &types.ExplicitSource{
				DependentValues: []string{"Berlin", "Paris"},
				Settings: []types.ValueSetting{
					{ControllingValues: []string{"DE"}, Value: "Berlin"},
					{ControllingValues: []string{"FR"}, Value: "Paris"},
				},
			},
		},
	}

	resp := call[DecodeDependenciesResponse](t, engine, FuncDecodeDependencies, req)
	require.True(t, resp.Success)
	require.Equal(t, "State__c", resp.Mapping.DependentField)
	require.Equal(t, "Country__c", resp.Mapping.ControllingField)
	require.Len(t, resp.Mapping.Entries, 2)
}

func TestCallFunctionDecodeDependenciesKeepsSourceFieldNames(t *testing.T) {
	engine := NewStandardEngine(orgtest.NewFakeConnection(), nil)

	// Field names populated only on the source must survive when the
	// request's top-level fields are empty.
	req := &DecodeDependenciesRequest{
		Source: &types.DependencySource{
			DependentField:   "State__c",
			ControllingField: "Country__c",
			Encoding:         types.EncodingExplicit,
			Explicit: &types.ExplicitSource{
				DependentValues: []string{"Berlin"},
				Settings: []types.ValueSetting{
					{ControllingValues: []string{"DE"}, Value: "Berlin"},
				},
			},
		},
	}

	resp := call[DecodeDependenciesResponse](t, engine, FuncDecodeDependencies, req)
	require.True(t, resp.Success)
	require.Equal(t, "State__c", resp.Mapping.DependentField)
	require.Equal(t, "Country__c", resp.Mapping.ControllingField)
}

func TestCallFunctionDiscoverRelationships(t *testing.T) {
	fake := orgtest.NewFakeConnection()
	fake.SeedRelationships(engineSource, "Project__c",
		types.Relationship{ChildType: "Task__c", ForeignKeyField: "Project__c", RelationshipName: "Tasks"},
		types.Relationship{ChildType: "Project__History", ForeignKeyField: "ParentId"},
	)
	engine := NewStandardEngine(fake, nil)

	req := &DiscoverRelationshipsRequest{Environment: engineSource, RootType: "Project__c"}
	resp := call[DiscoverRelationshipsResponse](t, engine, FuncDiscoverRelationships, req)
	require.True(t, resp.Success)
	require.Len(t, resp.Relationships, 1)
	require.Equal(t, "Task__c", resp.Relationships[0].ChildType)
}

func TestCallFunctionCheckCompatibility(t *testing.T) {
	engine := NewStandardEngine(orgtest.NewFakeConnection(), nil)

	req := &CheckCompatibilityRequest{
		ObjectType: "Invoice__c",
		Source: []compare.FieldSpec{
			{Name: "Amount__c", Type: "currency", Required: true},
		},
		Target: []compare.FieldSpec{},
	}

	resp := call[CheckCompatibilityResponse](t, engine, FuncCheckCompatibility, req)
	require.True(t, resp.Success)
	require.True(t, resp.Report.HasBlocking())
	require.Len(t, resp.Report.MissingInTarget, 1)
}

func TestCallFunctionMigrate(t *testing.T) {
	fake := orgtest.NewFakeConnection()
	fake.SeedRecords(engineSource, "Project__c", types.Record{"Id": "src-1", "Name": "Alpha"})
	engine := NewStandardEngine(fake, nil)

	req := &MigrateRequest{Request: &migrate.MigrationRequest{
		Source:   engineSource,
		Target:   engineTarget,
		RootType: "Project__c",
		RootIDs:  []string{"src-1"},
		Relationships: []types.Relationship{
			{ChildType: "Task__c", ForeignKeyField: "Project__c"},
		},
	}}

	resp := call[MigrateResponse](t, engine, FuncMigrate, req)
	require.True(t, resp.Success)
	require.Equal(t, migrate.PhaseDone, resp.Result.Phase)
	require.Equal(t, 1, resp.Result.Success)
}

func TestCallFunctionMigrateRejectsBadRequest(t *testing.T) {
	engine := NewStandardEngine(orgtest.NewFakeConnection(), nil)

	resp := call[MigrateResponse](t, engine, FuncMigrate, &MigrateRequest{})
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
}

func TestCallFunctionUnknown(t *testing.T) {
	engine := NewStandardEngine(orgtest.NewFakeConnection(), nil)

	_, err := engine.CallFunction(context.Background(), "Bogus", nil)
	require.Error(t, err)
}

func TestGetInfoReportsEngineIdentity(t *testing.T) {
	engine := NewStandardEngine(orgtest.NewFakeConnection(), nil)

	info, err := engine.GetInfo()
	require.NoError(t, err)
	require.Equal(t, orgsync.Name, info.Name)
	require.Equal(t, orgsync.Version, info.Version)
	require.Equal(t, orgsync.ProtocolVersion, info.ProtocolVersion)
}

func TestCallFunctionPing(t *testing.T) {
	engine := NewStandardEngine(orgtest.NewFakeConnection(), nil)

	resp := call[PingResponse](t, engine, FuncPing, &PingRequest{})
	require.True(t, resp.Healthy)
}

func TestConfigureAppliesSettings(t *testing.T) {
	engine := NewStandardEngine(orgtest.NewFakeConnection(), nil)

	err := engine.Configure(context.Background(), map[string]interface{}{
		"batch_size":        float64(50),
		"external_id_field": "Legacy_Id__c",
		"strict_aux":        true,
		"aux_reference": map[string]interface{}{
			"field":       "RecordTypeId",
			"lookup_type": "RecordType",
			"name_field":  "DeveloperName",
		},
	})
	require.NoError(t, err)
	require.Equal(t, 50, engine.cfg.BatchSize)
	require.Equal(t, "Legacy_Id__c", engine.cfg.ExternalIDField)
	require.True(t, engine.cfg.StrictAux)
	require.Equal(t, "RecordType", engine.cfg.AuxReference.LookupType)
}

func TestConfigureRejectsBadValues(t *testing.T) {
	engine := NewStandardEngine(orgtest.NewFakeConnection(), nil)

	err := engine.Configure(context.Background(), map[string]interface{}{"batch_size": float64(0)})
	require.True(t, core.IsConfigurationError(err))

	err = engine.Configure(context.Background(), map[string]interface{}{
		"aux_reference": map[string]interface{}{"field": "RecordTypeId"},
	})
	require.True(t, core.IsConfigurationError(err))
}
