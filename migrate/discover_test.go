package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orglens/orgsync/core"
	orgtest "github.com/orglens/orgsync/testing"
	"github.com/orglens/orgsync/types"
)

func TestDiscoverRelationships_FiltersSystemTables(t *testing.T) {
	env := &types.Environment{Label: "source", TenantID: "00Dsrc"}
	fake := orgtest.NewFakeConnection()
	fake.SeedRelationships(env, "Project__c",
		types.Relationship{ChildType: "Task__c", ForeignKeyField: "Project__c"},
		types.Relationship{ChildType: "Project__History", ForeignKeyField: "ParentId"},
		types.Relationship{ChildType: "Project__Share", ForeignKeyField: "ParentId"},
		types.Relationship{ChildType: "Project__Feed", ForeignKeyField: "ParentId"},
		types.Relationship{ChildType: "Invoice__c", ForeignKeyField: "Project__c"},
		types.Relationship{ChildType: "NoForeignKey__c"},
	)

	rels, err := DiscoverRelationships(context.Background(), fake, env, "Project__c", core.DefaultEngineConfig())

	require.NoError(t, err)
	require.Len(t, rels, 2)
	// Order is as received from the platform.
	require.Equal(t, "Task__c", rels[0].ChildType)
	require.Equal(t, "Invoice__c", rels[1].ChildType)
}

func TestDiscoverRelationships_EmptyRootTypeIsConfigurationError(t *testing.T) {
	fake := orgtest.NewFakeConnection()
	env := &types.Environment{Label: "source"}

	_, err := DiscoverRelationships(context.Background(), fake, env, "", nil)

	require.Error(t, err)
	require.True(t, core.IsConfigurationError(err))
}

func TestDiscoverRelationships_NoRelationships(t *testing.T) {
	fake := orgtest.NewFakeConnection()
	env := &types.Environment{Label: "source"}

	rels, err := DiscoverRelationships(context.Background(), fake, env, "Project__c", nil)

	require.NoError(t, err)
	require.Empty(t, rels)
}
