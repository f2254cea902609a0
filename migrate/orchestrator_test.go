package migrate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orglens/orgsync/core"
	"github.com/orglens/orgsync/core/auth"
	orgtest "github.com/orglens/orgsync/testing"
	"github.com/orglens/orgsync/types"
)

var (
	sourceEnv = &types.Environment{Label: "source", TenantID: "00Dsrc"}
	targetEnv = &types.Environment{Label: "target", TenantID: "00Dtgt"}
)

// migrationFixture wires a fake connection with three root projects, two
// tasks and a record-type lookup resolvable by developer name on both
// sides
func migrationFixture(t *testing.T) (*orgtest.FakeConnection, *core.EngineConfig, *MigrationRequest) {
	t.Helper()

	cfg := core.DefaultEngineConfig()
	cfg.ExternalIDField = "Legacy_Id__c"
	cfg.AuxReference = &core.AuxReferenceConfig{
		Field:      "RecordTypeId",
		LookupType: "RecordType",
		NameField:  "DeveloperName",
	}

	fake := orgtest.NewFakeConnection()
	fake.ExternalIDField = "Legacy_Id__c"

	fake.SeedRecords(sourceEnv, "Project__c",
		types.Record{"Id": "src-1", "Name": "Alpha", "RecordTypeId": "rt-src-1", "CreatedDate": "2026-01-01"},
		types.Record{"Id": "src-2", "Name": "Beta", "RecordTypeId": "rt-src-1"},
		types.Record{"Id": "src-3", "Name": "Gamma"},
	)
	fake.SeedRecords(sourceEnv, "RecordType",
		types.Record{"Id": "rt-src-1", "DeveloperName": "Standard"},
	)
	fake.SeedRecords(targetEnv, "RecordType",
		types.Record{"Id": "rt-tgt-9", "DeveloperName": "Standard"},
	)
	fake.SeedRecords(sourceEnv, "Task__c",
		types.Record{"Id": "t-1", "Project__c": "src-1", "Subject": "Kickoff"},
		types.Record{"Id": "t-2", "Project__c": "src-2", "Subject": "Review"},
	)

	req := &MigrationRequest{
		Source:     sourceEnv,
		Target:     targetEnv,
		RootType:   "Project__c",
		RootIDs:    []string{"src-1", "src-2", "src-3"},
		RootFields: []string{"Name"},
		Relationships: []types.Relationship{
			{ChildType: "Task__c", ForeignKeyField: "Project__c"},
		},
		ChildFields: map[string][]string{"Task__c": {"Subject"}},
	}
	return fake, cfg, req
}

func drain(o *Orchestrator) []ProgressEvent {
	var events []ProgressEvent
	for ev := range o.Events() {
		events = append(events, ev)
	}
	return events
}

func TestRun_ConfigurationErrors(t *testing.T) {
	fake := orgtest.NewFakeConnection()

	cases := []struct {
		name string
		req  *MigrationRequest
	}{
		{"nil request", nil},
		{"missing environments", &MigrationRequest{RootType: "X", RootIDs: []string{"1"}}},
		{
			"identical environments",
			&MigrationRequest{
				Source: sourceEnv, Target: sourceEnv,
				RootType: "X", RootIDs: []string{"1"},
				Relationships: []types.Relationship{{ChildType: "Y", ForeignKeyField: "X__c"}},
			},
		},
		{
			"zero root identifiers",
			&MigrationRequest{
				Source: sourceEnv, Target: targetEnv, RootType: "X",
				Relationships: []types.Relationship{{ChildType: "Y", ForeignKeyField: "X__c"}},
			},
		},
		{
			"no relationships selected",
			&MigrationRequest{
				Source: sourceEnv, Target: targetEnv,
				RootType: "X", RootIDs: []string{"1"},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := NewOrchestrator(fake, nil)
			result, err := o.Run(context.Background(), tc.req)
			require.Error(t, err)
			require.True(t, core.IsConfigurationError(err))
			require.Nil(t, result)
		})
	}
}

func TestRun_EndToEnd(t *testing.T) {
	fake, cfg, req := migrationFixture(t)
	o := NewOrchestrator(fake, cfg)

	result, err := o.Run(context.Background(), req)

	require.NoError(t, err)
	require.Equal(t, PhaseDone, result.Phase)
	require.True(t, result.Clean())

	// 3 roots + 2 children written.
	require.Equal(t, 5, result.Success)
	require.Equal(t, 0, result.Failed)
	require.Equal(t, map[string]string{
		"src-1": "tgt-src-1",
		"src-2": "tgt-src-2",
		"src-3": "tgt-src-3",
	}, result.IDMap)

	// Auxiliary reference resolved by developer name across environments.
	require.Equal(t, map[string]string{"rt-src-1": "rt-tgt-9"}, result.AuxMap)

	written := fake.Written("Project__c")
	require.Len(t, written, 3)
	for _, rec := range written {
		require.NotContains(t, rec, "CreatedDate")
		require.NotEqual(t, "rt-src-1", rec.GetString("RecordTypeId"))
	}

	tasks := fake.Written("Task__c")
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		require.True(t, strings.HasPrefix(task.GetString("Project__c"), "tgt-src-"),
			"child foreign key must point at a migrated parent")
	}
}

func TestRun_PartialBatchIsolation(t *testing.T) {
	fake, cfg, req := migrationFixture(t)
	fake.FailWrite("Project__c", "src-2", "DUPLICATE_VALUE: duplicate external id")
	o := NewOrchestrator(fake, cfg)

	result, err := o.Run(context.Background(), req)

	require.NoError(t, err)
	require.Equal(t, PhaseDone, result.Phase)
	require.False(t, result.Clean())

	// Records 1 and 3 map; record 2 contributes exactly one error.
	require.Equal(t, map[string]string{
		"src-1": "tgt-src-1",
		"src-3": "tgt-src-3",
	}, result.IDMap)

	var rootErrors []string
	for _, e := range result.Errors {
		if strings.Contains(e, "src-2") {
			rootErrors = append(rootErrors, e)
		}
	}
	require.Len(t, rootErrors, 1)
	require.Contains(t, rootErrors[0], "DUPLICATE_VALUE")
}

func TestRun_OrphanChildSkipped(t *testing.T) {
	fake, cfg, req := migrationFixture(t)
	fake.FailWrite("Project__c", "src-2", "REQUIRED_FIELD_MISSING")
	o := NewOrchestrator(fake, cfg)

	result, err := o.Run(context.Background(), req)

	require.NoError(t, err)
	require.Equal(t, PhaseDone, result.Phase)

	// Task t-2 pointed only at the failed root: skipped, not failed.
	require.Equal(t, 1, result.Skipped)
	tasks := fake.Written("Task__c")
	require.Len(t, tasks, 1)
	require.Equal(t, "tgt-src-1", tasks[0].GetString("Project__c"))

	var orphanLog bool
	for _, entry := range result.Log {
		if strings.Contains(entry.Message, "orphaned") && strings.Contains(entry.Message, "t-2") {
			orphanLog = true
		}
	}
	require.True(t, orphanLog, "orphan skip must appear in the session log")
}

func TestRun_ZeroRootsExportedFails(t *testing.T) {
	fake, cfg, req := migrationFixture(t)
	req.RootIDs = []string{"missing-1", "missing-2"}
	o := NewOrchestrator(fake, cfg)

	result, err := o.Run(context.Background(), req)

	require.NoError(t, err, "remote outcomes never reject past the entry point")
	require.Equal(t, PhaseFailed, result.Phase)
	require.NotEmpty(t, result.Errors)
}

func TestRun_RootExportTransportFailureIsFatal(t *testing.T) {
	fake, cfg, req := migrationFixture(t)
	fake.FailQuery("Project__c", errors.New("503 service unavailable"))
	o := NewOrchestrator(fake, cfg)

	result, err := o.Run(context.Background(), req)

	require.NoError(t, err)
	require.Equal(t, PhaseFailed, result.Phase)
	require.Equal(t, 0, fake.WriteCalls("Project__c"))
}

func TestRun_WriteTransportUnreachableFails(t *testing.T) {
	fake, cfg, req := migrationFixture(t)
	fake.FailWriteTransport("Project__c", errors.New("connection refused"))
	o := NewOrchestrator(fake, cfg)

	result, err := o.Run(context.Background(), req)

	require.NoError(t, err)
	require.Equal(t, PhaseFailed, result.Phase)
	require.Equal(t, 3, result.Failed)
	require.Empty(t, result.IDMap)
}

func TestRun_ChildExportFailureIsNotFatal(t *testing.T) {
	fake, cfg, req := migrationFixture(t)
	fake.FailQuery("Task__c", errors.New("timeout"))
	o := NewOrchestrator(fake, cfg)

	result, err := o.Run(context.Background(), req)

	require.NoError(t, err)
	require.Equal(t, PhaseDone, result.Phase)
	require.Len(t, result.IDMap, 3)

	var logged bool
	for _, e := range result.Errors {
		if strings.Contains(e, "Task__c") {
			logged = true
		}
	}
	require.True(t, logged)
}

func TestRun_AuxResolutionDegradesSoftly(t *testing.T) {
	fake, cfg, req := migrationFixture(t)
	fake.FailQuery("RecordType", errors.New("403 insufficient access"))
	o := NewOrchestrator(fake, cfg)

	result, err := o.Run(context.Background(), req)

	require.NoError(t, err)
	require.Equal(t, PhaseDone, result.Phase)
	require.Empty(t, result.AuxMap)

	// Without a map, the reference is written unmapped.
	written := fake.Written("Project__c")
	require.Equal(t, "rt-src-1", written[0].GetString("RecordTypeId"))
}

func TestRun_StrictAuxBlocksOnUnmappedReferences(t *testing.T) {
	fake, cfg, req := migrationFixture(t)
	cfg.StrictAux = true
	fake.FailQuery("RecordType", errors.New("403 insufficient access"))
	o := NewOrchestrator(fake, cfg)

	result, err := o.Run(context.Background(), req)

	require.NoError(t, err)
	require.Equal(t, PhaseFailed, result.Phase)
	require.Equal(t, 0, fake.WriteCalls("Project__c"))
}

func TestRun_BatchingHonorsConfiguredSize(t *testing.T) {
	fake, cfg, req := migrationFixture(t)
	cfg.BatchSize = 2
	o := NewOrchestrator(fake, cfg)

	result, err := o.Run(context.Background(), req)

	require.NoError(t, err)
	require.Equal(t, PhaseDone, result.Phase)
	// 3 roots at batch size 2 -> 2 calls.
	require.Equal(t, 2, fake.WriteCalls("Project__c"))
}

func TestRun_EmitsProgressEvents(t *testing.T) {
	fake, cfg, req := migrationFixture(t)
	o := NewOrchestrator(fake, cfg)

	result, err := o.Run(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, PhaseDone, result.Phase)

	events := drain(o)
	require.NotEmpty(t, events)

	var batchEvents int
	for _, ev := range events {
		require.Equal(t, result.SessionID, ev.SessionID)
		if ev.Batch > 0 {
			batchEvents++
		}
	}
	// One root batch and one child batch at the default size.
	require.Equal(t, 2, batchEvents)
	require.Equal(t, PhaseDone, events[len(events)-1].Phase)
}

func TestRun_RecordsInitiatingSubject(t *testing.T) {
	fake, cfg, req := migrationFixture(t)
	o := NewOrchestrator(fake, cfg)

	ctx := auth.WithAuth(context.Background(), auth.AuthInfo{
		Claims: auth.Claims{Subject: "admin@example.com"},
	})
	result, err := o.Run(ctx, req)

	require.NoError(t, err)
	var logged bool
	for _, entry := range result.Log {
		if strings.Contains(entry.Message, "admin@example.com") {
			logged = true
		}
	}
	require.True(t, logged)
}

func TestRun_CountersPartition(t *testing.T) {
	fake, cfg, req := migrationFixture(t)
	fake.FailWrite("Project__c", "src-3", "STORAGE_LIMIT_EXCEEDED")
	o := NewOrchestrator(fake, cfg)

	result, err := o.Run(context.Background(), req)

	require.NoError(t, err)
	// 2 roots + 2 children succeed; src-3 fails; no orphans since
	// neither task points at src-3.
	require.Equal(t, 4, result.Success)
	require.Equal(t, 1, result.Failed)
	require.Equal(t, 0, result.Skipped)
}

// truncatingConnection delegates to the fake but drops the trailing write
// outcomes of one entity type, imitating a writer that answers short
type truncatingConnection struct {
	*orgtest.FakeConnection
	entityType string
	drop       int
}

func (c *truncatingConnection) Write(ctx context.Context, env *types.Environment, entityType string, records []types.Record, opts *core.WriteOptions) ([]core.SaveResult, error) {
	results, err := c.FakeConnection.Write(ctx, env, entityType, records, opts)
	if err != nil || entityType != c.entityType {
		return results, err
	}
	keep := len(results) - c.drop
	if keep < 0 {
		keep = 0
	}
	return results[:keep], nil
}

func TestRun_MissingWriteOutcomesCountAsFailed(t *testing.T) {
	fake, cfg, req := migrationFixture(t)
	conn := &truncatingConnection{FakeConnection: fake, entityType: "Project__c", drop: 1}
	o := NewOrchestrator(conn, cfg)

	result, err := o.Run(context.Background(), req)

	require.NoError(t, err)
	// The writer answered for 2 of 3 roots; the silent third is a
	// failure, not a gap, so the counters still partition the batch.
	require.Equal(t, 1, result.Failed)
	require.Len(t, result.IDMap, 2)
	require.Equal(t, 3, result.Failed+len(result.IDMap))

	var reported bool
	for _, e := range result.Errors {
		if strings.Contains(e, "no write outcome") {
			reported = true
		}
	}
	require.True(t, reported)
}
