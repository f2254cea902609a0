// Package testing provides an in-memory fake of the engine's platform
// capabilities for use in tests: seedable per-environment metadata and
// record stores with scripted per-record write outcomes and transport
// failure injection.
package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/orglens/orgsync/core"
	"github.com/orglens/orgsync/types"
)

// FakeConnection implements core.Connection over in-memory state keyed
// by environment label
type FakeConnection struct {
	mu sync.Mutex

	// ExternalIDField, when set, makes generated identifiers derive
	// from the written record's external reference so tests can assert
	// identifier maps without counting
	ExternalIDField string

	collections   map[string]map[types.EntityType]*types.Collection
	relationships map[string]map[string][]types.Relationship
	records       map[string]map[string][]types.Record
	written       map[string][]types.Record

	failMessages map[string]map[string]string
	writeErr     map[string]error
	queryErr     map[string]error
	fetchErr     map[types.EntityType]error

	writeCalls map[string]int
	nextID     int
}

// NewFakeConnection creates an empty fake connection
func NewFakeConnection() *FakeConnection {
	return &FakeConnection{
		collections:   make(map[string]map[types.EntityType]*types.Collection),
		relationships: make(map[string]map[string][]types.Relationship),
		records:       make(map[string]map[string][]types.Record),
		written:       make(map[string][]types.Record),
		failMessages:  make(map[string]map[string]string),
		writeErr:      make(map[string]error),
		queryErr:      make(map[string]error),
		fetchErr:      make(map[types.EntityType]error),
		writeCalls:    make(map[string]int),
	}
}

// SeedCollection registers the collection a Fetch of entityType returns
// for one environment
func (f *FakeConnection) SeedCollection(env *types.Environment, entityType types.EntityType, c *types.Collection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.collections[env.Label] == nil {
		f.collections[env.Label] = make(map[types.EntityType]*types.Collection)
	}
	f.collections[env.Label][entityType] = c
}

// SeedRelationships registers the child-relationship list of a root type
func (f *FakeConnection) SeedRelationships(env *types.Environment, rootType string, rels ...types.Relationship) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.relationships[env.Label] == nil {
		f.relationships[env.Label] = make(map[string][]types.Relationship)
	}
	f.relationships[env.Label][rootType] = rels
}

// SeedRecords registers queryable records of one entity type
func (f *FakeConnection) SeedRecords(env *types.Environment, entityType string, records ...types.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.records[env.Label] == nil {
		f.records[env.Label] = make(map[string][]types.Record)
	}
	f.records[env.Label][entityType] = append(f.records[env.Label][entityType], records...)
}

// FailWrite scripts a per-record rejection: any written record of
// entityType whose external reference equals externalID fails with the
// given remote message
func (f *FakeConnection) FailWrite(entityType, externalID, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMessages[entityType] == nil {
		f.failMessages[entityType] = make(map[string]string)
	}
	f.failMessages[entityType][externalID] = message
}

// FailWriteTransport makes every Write of entityType fail at the
// transport level
func (f *FakeConnection) FailWriteTransport(entityType string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr[entityType] = err
}

// FailQuery makes every Query of entityType fail at the transport level
func (f *FakeConnection) FailQuery(entityType string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryErr[entityType] = err
}

// FailFetch makes every Fetch of entityType fail at the transport level
func (f *FakeConnection) FailFetch(entityType types.EntityType, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchErr[entityType] = err
}

// Written returns the records successfully written for one entity type,
// in write order
func (f *FakeConnection) Written(entityType string) []types.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.Record, len(f.written[entityType]))
	copy(out, f.written[entityType])
	return out
}

// WriteCalls returns how many Write calls one entity type received
func (f *FakeConnection) WriteCalls(entityType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeCalls[entityType]
}

// Fetch implements core.MetadataFetcher
func (f *FakeConnection) Fetch(ctx context.Context, env *types.Environment, entityType types.EntityType, filter *core.FetchFilter) (*types.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fetchErr[entityType]; err != nil {
		return nil, err
	}
	if byType, ok := f.collections[env.Label]; ok {
		if c, ok := byType[entityType]; ok {
			return c, nil
		}
	}
	return types.NewCollection(entityType, nil), nil
}

// ChildRelationships implements core.MetadataFetcher
func (f *FakeConnection) ChildRelationships(ctx context.Context, env *types.Environment, rootType string) ([]types.Relationship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if byRoot, ok := f.relationships[env.Label]; ok {
		return byRoot[rootType], nil
	}
	return nil, nil
}

// Query implements core.Querier with in-list filtering and field
// projection
func (f *FakeConnection) Query(ctx context.Context, env *types.Environment, q *core.StructuredQuery) ([]types.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.queryErr[q.EntityType]; err != nil {
		return nil, err
	}

	var rows []types.Record
	if byType, ok := f.records[env.Label]; ok {
		rows = byType[q.EntityType]
	}

	allowed := make(map[string]struct{}, len(q.In))
	for _, v := range q.In {
		allowed[v] = struct{}{}
	}

	var out []types.Record
	for _, row := range rows {
		if q.InField != "" {
			if _, ok := allowed[row.GetString(q.InField)]; !ok {
				continue
			}
		}
		out = append(out, project(row, q.Fields))
	}
	return out, nil
}

func project(row types.Record, fields []string) types.Record {
	if len(fields) == 0 {
		return row.Clone()
	}
	out := make(types.Record, len(fields))
	for _, field := range fields {
		if v, ok := row[field]; ok {
			out[field] = v
		}
	}
	return out
}

// Write implements core.BulkWriter with per-record outcomes
func (f *FakeConnection) Write(ctx context.Context, env *types.Environment, entityType string, records []types.Record, opts *core.WriteOptions) ([]core.SaveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.writeCalls[entityType]++
	if err := f.writeErr[entityType]; err != nil {
		return nil, err
	}

	results := make([]core.SaveResult, 0, len(records))
	for _, rec := range records {
		externalID := ""
		if f.ExternalIDField != "" {
			externalID = rec.GetString(f.ExternalIDField)
		}

		if msg, ok := f.failMessages[entityType][externalID]; ok {
			results = append(results, core.SaveResult{
				Success: false,
				Errors:  []string{msg},
			})
			continue
		}

		f.nextID++
		newID := fmt.Sprintf("tgt-%06d", f.nextID)
		if externalID != "" {
			newID = "tgt-" + externalID
		}

		stored := rec.Clone()
		stored["Id"] = newID
		f.written[entityType] = append(f.written[entityType], stored)
		results = append(results, core.SaveResult{Success: true, ID: newID})
	}
	return results, nil
}
