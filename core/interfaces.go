// Package core provides the collaborator interfaces, configuration and
// error taxonomy of the orgsync engine.
//
// The engine consumes the remote platform exclusively through the
// capabilities defined here; transports, session acquisition and response
// parsing are implemented by the host application.
package core

import (
	"context"

	"github.com/orglens/orgsync/types"
)

// MetadataFetcher returns typed entity collections from one environment
type MetadataFetcher interface {
	// Fetch returns the collection of the given entity type. The filter
	// narrows the fetch (e.g. parent object for fields, profile id for
	// permission grants); nil means unfiltered.
	Fetch(ctx context.Context, env *types.Environment, entityType types.EntityType, filter *FetchFilter) (*types.Collection, error)

	// ChildRelationships returns the full child-relationship list of a
	// root entity type, unfiltered
	ChildRelationships(ctx context.Context, env *types.Environment, rootType string) ([]types.Relationship, error)
}

// FetchFilter narrows a metadata fetch
type FetchFilter struct {
	// ObjectType scopes the fetch to one object (fields, picklist
	// values, relationships)
	ObjectType string `json:"object_type,omitempty"`

	// FieldName scopes the fetch to one field (picklist values)
	FieldName string `json:"field_name,omitempty"`

	// ParentID scopes permission-grant fetches to one profile or
	// permission set
	ParentID string `json:"parent_id,omitempty"`
}

// Querier runs structured queries against one environment's record store
type Querier interface {
	// Query returns records matching the structured query. Callers are
	// responsible for chunking identifier lists; implementations never
	// split a query themselves.
	Query(ctx context.Context, env *types.Environment, q *StructuredQuery) ([]types.Record, error)
}

// StructuredQuery selects records of one entity type. When In is set the
// query matches records whose InField value is contained in In.
type StructuredQuery struct {
	EntityType string   `json:"entity_type"`
	Fields     []string `json:"fields"`
	InField    string   `json:"in_field,omitempty"`
	In         []string `json:"in,omitempty"`
}

// BulkWriter performs batched record writes against one environment
type BulkWriter interface {
	// Write upserts up to the batch limit of records in one call with
	// per-record outcome. With AllOrNone false (the only mode the
	// engine uses) each record succeeds or fails independently.
	Write(ctx context.Context, env *types.Environment, entityType string, records []types.Record, opts *WriteOptions) ([]SaveResult, error)
}

// WriteOptions controls a bulk write call
type WriteOptions struct {
	// AllOrNone requests transactional batch semantics; the engine
	// always passes false
	AllOrNone bool `json:"all_or_none"`

	// ExternalIDField, when set, requests an upsert keyed on that
	// attribute instead of a plain insert
	ExternalIDField string `json:"external_id_field,omitempty"`
}

// SaveResult is the per-record outcome of a bulk write
type SaveResult struct {
	Success bool     `json:"success"`
	ID      string   `json:"id,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// Connection bundles the three capabilities an engine run needs against
// one environment
type Connection interface {
	MetadataFetcher
	Querier
	BulkWriter
}
