package compare

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orglens/orgsync/types"
)

func objectGrant(object string, read, edit bool) types.Record {
	return types.Record{
		"SobjectType":                 object,
		"PermissionsCreate":           false,
		"PermissionsRead":             read,
		"PermissionsEdit":             edit,
		"PermissionsDelete":           false,
		"PermissionsViewAllRecords":   false,
		"PermissionsModifyAllRecords": false,
	}
}

func fieldGrant(object, field string, read, edit bool) types.Record {
	return types.Record{
		"SobjectType":     object,
		"Field":           object + "." + field,
		"PermissionsRead": read,
		"PermissionsEdit": edit,
	}
}

func TestReconcilePermissions_CombinedSummary(t *testing.T) {
	sourceObject := types.NewCollection(types.EntityObjectPermission, []types.Record{
		objectGrant("Account", true, true),
		objectGrant("Case", true, false),
	})
	targetObject := types.NewCollection(types.EntityObjectPermission, []types.Record{
		objectGrant("Account", true, true),
		objectGrant("Case", true, true), // edit differs
	})

	sourceField := types.NewCollection(types.EntityFieldPermission, []types.Record{
		fieldGrant("Account", "Rating", true, false),
		fieldGrant("Case", "Origin", true, true),
	})
	targetField := types.NewCollection(types.EntityFieldPermission, []types.Record{
		fieldGrant("Account", "Rating", true, false),
	})

	result := ReconcilePermissions(sourceObject, targetObject, sourceField, targetField)

	require.Equal(t, 1, result.Object.Matches)
	require.Equal(t, 1, result.Object.Differences)
	require.Equal(t, 1, result.Field.Matches)
	require.Equal(t, 1, result.Field.SourceOnly)

	require.Equal(t, 4, result.Combined.TotalItems)
	require.Equal(t, 2, result.Combined.Matches)
	require.Equal(t, 1, result.Combined.Differences)
	require.Equal(t, 1, result.Combined.SourceOnly)
	require.Equal(t, 0, result.Combined.TargetOnly)
}

func TestReconcilePermissions_FieldKeyIsComposite(t *testing.T) {
	// Same field name on two objects must not collide.
	sourceField := types.NewCollection(types.EntityFieldPermission, []types.Record{
		fieldGrant("Account", "Status", true, true),
		fieldGrant("Case", "Status", true, false),
	})
	targetField := types.NewCollection(types.EntityFieldPermission, []types.Record{
		fieldGrant("Account", "Status", true, true),
		fieldGrant("Case", "Status", true, false),
	})

	result := ReconcilePermissions(nil, nil, sourceField, targetField)

	require.Equal(t, 2, result.Field.TotalItems)
	require.Equal(t, 2, result.Field.Matches)
}

func TestFieldGrantKey_BareFieldNamesAreQualified(t *testing.T) {
	require.Equal(t, "Account.Rating", fieldGrantKey(types.Record{
		"SobjectType": "Account",
		"Field":       "Rating",
	}))
	require.Equal(t, "Account.Rating", fieldGrantKey(types.Record{
		"SobjectType": "Account",
		"Field":       "Account.Rating",
	}))
	require.Equal(t, "", fieldGrantKey(types.Record{"SobjectType": "Account"}))
}

func TestReconcilePermissions_MissingGrantDefaultsFalse(t *testing.T) {
	sourceObject := types.NewCollection(types.EntityObjectPermission, []types.Record{
		objectGrant("Invoice__c", true, true),
	})

	result := ReconcilePermissions(sourceObject, nil, nil, nil)

	require.Equal(t, 1, result.Object.SourceOnly)
	item := result.Object.Items[0]
	for _, field := range []string{"PermissionsRead", "PermissionsEdit", "PermissionsCreate"} {
		require.Equal(t, false, item.Target[field], "grant %s must default to false", field)
	}
}
