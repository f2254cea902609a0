package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orglens/orgsync/compare"
	"github.com/orglens/orgsync/migrate"
	"github.com/orglens/orgsync/types"
)

func TestNewMigrationRecord(t *testing.T) {
	result := &migrate.MigrationResult{
		SessionID: "sess-42",
		RootType:  "Project__c",
		Phase:     migrate.PhaseDone,
		Success:   5,
		IDMap:     map[string]string{"src-1": "tgt-1"},
		StartedAt: time.Now().UTC(),
	}
	source := &types.Environment{Label: "prod"}
	target := &types.Environment{Label: "sandbox"}

	record, err := NewMigrationRecord(result, source, target)
	require.NoError(t, err)
	require.NoError(t, record.Validate())
	require.Equal(t, "sess-42", record.ID)
	require.Equal(t, KindMigration, record.Kind)
	require.Equal(t, "Project__c", record.Subject)
	require.Equal(t, "prod", record.SourceLabel)
	require.Equal(t, "sandbox", record.TargetLabel)

	restored, err := record.MigrationResult()
	require.NoError(t, err)
	require.Equal(t, result.SessionID, restored.SessionID)
	require.Equal(t, result.IDMap, restored.IDMap)

	// A migration payload must not deserialize as a comparison.
	_, err = record.ComparisonResult()
	require.Error(t, err)
}

func TestNewMigrationRecordRejectsNilResult(t *testing.T) {
	_, err := NewMigrationRecord(nil, nil, nil)
	require.Error(t, err)
}

func TestNewComparisonRecord(t *testing.T) {
	result := &compare.Result{
		TotalItems:  2,
		Matches:     1,
		Differences: 1,
		Items: []compare.Item{
			{Key: "Account", Status: compare.StatusChanged},
			{Key: "Contact", Status: compare.StatusMatched},
		},
	}

	record, err := NewComparisonRecord("cmp-1", "CustomField", result,
		&types.Environment{Label: "prod"}, &types.Environment{Label: "uat"})
	require.NoError(t, err)
	require.Equal(t, KindComparison, record.Kind)
	require.Equal(t, "CustomField", record.Subject)

	restored, err := record.ComparisonResult()
	require.NoError(t, err)
	require.Equal(t, 2, restored.TotalItems)
	require.Len(t, restored.Items, 2)
}

func TestNewComparisonRecordRequiresID(t *testing.T) {
	_, err := NewComparisonRecord("", "CustomField", &compare.Result{}, nil, nil)
	require.Error(t, err)
}

func TestRecordValidate(t *testing.T) {
	valid := &Record{ID: "a", Kind: KindComparison, Payload: []byte(`{}`)}
	require.NoError(t, valid.Validate())

	require.Error(t, (&Record{Kind: KindComparison, Payload: []byte(`{}`)}).Validate())
	require.Error(t, (&Record{ID: "a", Kind: "bogus", Payload: []byte(`{}`)}).Validate())
	require.Error(t, (&Record{ID: "a", Kind: KindMigration}).Validate())
}
