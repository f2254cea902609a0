// Package audit archives run outcomes so that comparison and migration
// results survive the process that produced them. A Record is an opaque
// JSON payload plus enough envelope fields to list and filter runs
// without deserializing them.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/orglens/orgsync/compare"
	"github.com/orglens/orgsync/migrate"
	"github.com/orglens/orgsync/types"
)

// Kind classifies what a record archives
type Kind string

const (
	KindComparison Kind = "comparison"
	KindMigration  Kind = "migration"
)

// Record is one archived run outcome
type Record struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	Subject string `json:"subject"`

	// SourceLabel and TargetLabel identify the environments of the run;
	// credentials are never part of a record
	SourceLabel string `json:"source_label"`
	TargetLabel string `json:"target_label"`

	// Payload is the serialized result, owned by the producing package
	Payload json.RawMessage `json:"payload"`

	CreatedAt time.Time `json:"created_at"`
}

// Store persists records. Implementations must be safe for concurrent
// use and must not mutate records handed to Put.
type Store interface {
	Put(ctx context.Context, record *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// NewMigrationRecord envelopes a finished migration run
func NewMigrationRecord(result *migrate.MigrationResult, source, target *types.Environment) (*Record, error) {
	if result == nil {
		return nil, fmt.Errorf("migration result cannot be nil")
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize migration result: %w", err)
	}

	return &Record{
		ID:          result.SessionID,
		Kind:        KindMigration,
		Subject:     result.RootType,
		SourceLabel: envLabel(source),
		TargetLabel: envLabel(target),
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// NewComparisonRecord envelopes a reconciliation outcome. The id is
// caller-chosen since comparisons carry no session identifier.
func NewComparisonRecord(id, subject string, result *compare.Result, source, target *types.Environment) (*Record, error) {
	if result == nil {
		return nil, fmt.Errorf("comparison result cannot be nil")
	}
	if id == "" {
		return nil, fmt.Errorf("record id cannot be empty")
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize comparison result: %w", err)
	}

	return &Record{
		ID:          id,
		Kind:        KindComparison,
		Subject:     subject,
		SourceLabel: envLabel(source),
		TargetLabel: envLabel(target),
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// MigrationResult deserializes the payload of a migration record
func (r *Record) MigrationResult() (*migrate.MigrationResult, error) {
	if r.Kind != KindMigration {
		return nil, fmt.Errorf("record %s is a %s record, not a migration", r.ID, r.Kind)
	}
	var result migrate.MigrationResult
	if err := json.Unmarshal(r.Payload, &result); err != nil {
		return nil, fmt.Errorf("failed to parse migration payload: %w", err)
	}
	return &result, nil
}

// ComparisonResult deserializes the payload of a comparison record
func (r *Record) ComparisonResult() (*compare.Result, error) {
	if r.Kind != KindComparison {
		return nil, fmt.Errorf("record %s is a %s record, not a comparison", r.ID, r.Kind)
	}
	var result compare.Result
	if err := json.Unmarshal(r.Payload, &result); err != nil {
		return nil, fmt.Errorf("failed to parse comparison payload: %w", err)
	}
	return &result, nil
}

// Validate checks a record before storage
func (r *Record) Validate() error {
	switch {
	case r == nil:
		return fmt.Errorf("record cannot be nil")
	case r.ID == "":
		return fmt.Errorf("record id cannot be empty")
	case r.Kind != KindComparison && r.Kind != KindMigration:
		return fmt.Errorf("unknown record kind: %s", r.Kind)
	case len(r.Payload) == 0:
		return fmt.Errorf("record payload cannot be empty")
	}
	return nil
}

func envLabel(env *types.Environment) string {
	if env == nil {
		return ""
	}
	return env.Label
}
