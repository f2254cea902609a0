// Package rpc provides the RPC interface definitions for the orgsync engine
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/orglens/orgsync"
	"github.com/orglens/orgsync/compare"
	"github.com/orglens/orgsync/core"
	"github.com/orglens/orgsync/migrate"
	"github.com/orglens/orgsync/types"
)

// Engine defines the interface an engine plugin must implement. Hosts
// talk to the engine through four methods; the domain operations all
// flow through CallFunction with JSON payloads so the wire surface
// stays stable as operations are added.
type Engine interface {
	// Configure the engine with host-supplied settings
	Configure(ctx context.Context, config map[string]interface{}) error

	// GetInfo returns the engine's identity and protocol versions
	GetInfo() (*orgsync.EngineInfo, error)

	// CallFunction dispatches a named operation to the engine
	CallFunction(ctx context.Context, function string, input json.RawMessage) (json.RawMessage, error)

	// Close cleans up engine resources
	Close() error
}

// Function names dispatched through CallFunction
const (
	FuncCompare               = "Compare"
	FuncComparePermissions    = "ComparePermissions"
	FuncDecodeDependencies    = "DecodeDependencies"
	FuncDiscoverRelationships = "DiscoverRelationships"
	FuncCheckCompatibility    = "CheckCompatibility"
	FuncMigrate               = "Migrate"
	FuncPing                  = "Ping"
)

// ServeConfig contains configuration for serving an engine plugin
type ServeConfig struct {
	Engine Engine
	Logger interface{} // Compatible with hclog.Logger
	Debug  bool
}

// StandardEngine is the in-process engine: it binds the comparison and
// migration operations to one platform connection. Plugins embed it;
// hosts running without plugin isolation can use it directly.
type StandardEngine struct {
	conn core.Connection
	cfg  *core.EngineConfig
}

// NewStandardEngine creates an engine over the given connection
func NewStandardEngine(conn core.Connection, cfg *core.EngineConfig) *StandardEngine {
	if cfg == nil {
		cfg = core.DefaultEngineConfig()
	}
	return &StandardEngine{conn: conn, cfg: cfg}
}

// Configure applies host-supplied settings over the defaults
func (e *StandardEngine) Configure(ctx context.Context, config map[string]interface{}) error {
	if batchSize, ok := configInt(config, "batch_size"); ok {
		if batchSize <= 0 {
			return core.NewConfigurationError("batch_size must be positive, got %d", batchSize)
		}
		e.cfg.BatchSize = batchSize
	}

	if chunkSize, ok := configInt(config, "chunk_size"); ok {
		if chunkSize <= 0 {
			return core.NewConfigurationError("chunk_size must be positive, got %d", chunkSize)
		}
		e.cfg.ChunkSize = chunkSize
	}

	if externalID, ok := config["external_id_field"].(string); ok {
		e.cfg.ExternalIDField = externalID
	}

	if strictAux, ok := config["strict_aux"].(bool); ok {
		e.cfg.StrictAux = strictAux
	}

	if auxConfig, ok := config["aux_reference"].(map[string]interface{}); ok {
		aux := &core.AuxReferenceConfig{}
		if field, ok := auxConfig["field"].(string); ok {
			aux.Field = field
		}
		if lookupType, ok := auxConfig["lookup_type"].(string); ok {
			aux.LookupType = lookupType
		}
		if nameField, ok := auxConfig["name_field"].(string); ok {
			aux.NameField = nameField
		}
		if aux.Field == "" || aux.LookupType == "" || aux.NameField == "" {
			return core.NewConfigurationError("aux_reference requires field, lookup_type and name_field")
		}
		e.cfg.AuxReference = aux
	}

	return nil
}

// GetInfo returns the engine's identity and protocol versions
func (e *StandardEngine) GetInfo() (*orgsync.EngineInfo, error) {
	return orgsync.GetEngineInfo(), nil
}

// CallFunction dispatches a named operation
func (e *StandardEngine) CallFunction(ctx context.Context, function string, input json.RawMessage) (json.RawMessage, error) {
	switch function {
	case FuncCompare:
		return callTyped(input, func(req *CompareRequest) (*CompareResponse, error) {
			return e.compare(ctx, req)
		})
	case FuncComparePermissions:
		return callTyped(input, func(req *ComparePermissionsRequest) (*ComparePermissionsResponse, error) {
			return e.comparePermissions(ctx, req)
		})
	case FuncDecodeDependencies:
		return callTyped(input, func(req *DecodeDependenciesRequest) (*DecodeDependenciesResponse, error) {
			return e.decodeDependencies(req)
		})
	case FuncDiscoverRelationships:
		return callTyped(input, func(req *DiscoverRelationshipsRequest) (*DiscoverRelationshipsResponse, error) {
			return e.discoverRelationships(ctx, req)
		})
	case FuncCheckCompatibility:
		return callTyped(input, func(req *CheckCompatibilityRequest) (*CheckCompatibilityResponse, error) {
			return e.checkCompatibility(req)
		})
	case FuncMigrate:
		return callTyped(input, func(req *MigrateRequest) (*MigrateResponse, error) {
			return e.migrate(ctx, req)
		})
	case FuncPing:
		return callTyped(input, func(req *PingRequest) (*PingResponse, error) {
			return &PingResponse{Success: true, Healthy: true}, nil
		})
	default:
		return nil, fmt.Errorf("unknown function: %s", function)
	}
}

// Close cleans up engine resources
func (e *StandardEngine) Close() error {
	return nil
}

func (e *StandardEngine) compare(ctx context.Context, req *CompareRequest) (*CompareResponse, error) {
	if len(req.KeyAttributes) == 0 {
		return &CompareResponse{Error: &RPCError{Message: "key_attributes cannot be empty"}}, nil
	}

	source, target := req.Source, req.Target
	if source == nil || target == nil {
		if req.SourceEnv == nil || req.TargetEnv == nil {
			return &CompareResponse{Error: &RPCError{
				Message: "either both collections or both environments must be supplied",
			}}, nil
		}

		var filter *core.FetchFilter
		if req.Filter != nil {
			filter = &core.FetchFilter{
				ObjectType: req.Filter.ObjectType,
				FieldName:  req.Filter.FieldName,
				ParentID:   req.Filter.ParentID,
			}
		}

		var err error
		source, err = e.conn.Fetch(ctx, req.SourceEnv, req.EntityType, filter)
		if err != nil {
			return &CompareResponse{Error: &RPCError{Message: "source fetch failed", Details: err.Error()}}, nil
		}
		target, err = e.conn.Fetch(ctx, req.TargetEnv, req.EntityType, filter)
		if err != nil {
			return &CompareResponse{Error: &RPCError{Message: "target fetch failed", Details: err.Error()}}, nil
		}
	}

	compareFields := req.CompareFields
	if len(compareFields) == 0 {
		compareFields = compare.FieldUnion(source, target, req.KeyAttributes...)
	}

	keyFn := types.KeyByAttributes(req.KeyAttributes...)
	result := compare.Reconcile(source, target, keyFn, compareFields)
	return &CompareResponse{Success: true, Result: result}, nil
}

func (e *StandardEngine) comparePermissions(ctx context.Context, req *ComparePermissionsRequest) (*ComparePermissionsResponse, error) {
	if req.SourceEnv == nil || req.TargetEnv == nil {
		return &ComparePermissionsResponse{Error: &RPCError{
			Message: "both source and target environments are required",
		}}, nil
	}
	if req.ParentID == "" {
		return &ComparePermissionsResponse{Error: &RPCError{Message: "parent_id cannot be empty"}}, nil
	}

	filter := &core.FetchFilter{ParentID: req.ParentID}

	fetch := func(env *types.Environment, entityType types.EntityType) (*types.Collection, error) {
		return e.conn.Fetch(ctx, env, entityType, filter)
	}

	sourceObject, err := fetch(req.SourceEnv, types.EntityObjectPermission)
	if err != nil {
		return &ComparePermissionsResponse{Error: &RPCError{Message: "source object permission fetch failed", Details: err.Error()}}, nil
	}
	targetObject, err := fetch(req.TargetEnv, types.EntityObjectPermission)
	if err != nil {
		return &ComparePermissionsResponse{Error: &RPCError{Message: "target object permission fetch failed", Details: err.Error()}}, nil
	}
	sourceField, err := fetch(req.SourceEnv, types.EntityFieldPermission)
	if err != nil {
		return &ComparePermissionsResponse{Error: &RPCError{Message: "source field permission fetch failed", Details: err.Error()}}, nil
	}
	targetField, err := fetch(req.TargetEnv, types.EntityFieldPermission)
	if err != nil {
		return &ComparePermissionsResponse{Error: &RPCError{Message: "target field permission fetch failed", Details: err.Error()}}, nil
	}

	result := compare.ReconcilePermissions(sourceObject, targetObject, sourceField, targetField)
	return &ComparePermissionsResponse{Success: true, Result: result}, nil
}

func (e *StandardEngine) decodeDependencies(req *DecodeDependenciesRequest) (*DecodeDependenciesResponse, error) {
	mapping, warnings, err := compare.DecodeDependency(req.Source)
	if err != nil {
		return &DecodeDependenciesResponse{Error: &RPCError{
			Message: "dependency decoding failed",
			Details: err.Error(),
		}}, nil
	}

	if req.DependentField != "" {
		mapping.DependentField = req.DependentField
	}
	if req.ControllingField != "" {
		mapping.ControllingField = req.ControllingField
	}

	resp := &DecodeDependenciesResponse{Success: true, Mapping: mapping}
	for _, w := range warnings {
		resp.Warnings = append(resp.Warnings, w.Error())
	}
	return resp, nil
}

func (e *StandardEngine) discoverRelationships(ctx context.Context, req *DiscoverRelationshipsRequest) (*DiscoverRelationshipsResponse, error) {
	rels, err := migrate.DiscoverRelationships(ctx, e.conn, req.Environment, req.RootType, e.cfg)
	if err != nil {
		return &DiscoverRelationshipsResponse{Error: &RPCError{
			Message: "relationship discovery failed",
			Details: err.Error(),
		}}, nil
	}
	return &DiscoverRelationshipsResponse{Success: true, Relationships: rels}, nil
}

func (e *StandardEngine) checkCompatibility(req *CheckCompatibilityRequest) (*CheckCompatibilityResponse, error) {
	report := compare.MapCompatibility(req.Source, req.Target)
	return &CheckCompatibilityResponse{Success: true, Report: report}, nil
}

func (e *StandardEngine) migrate(ctx context.Context, req *MigrateRequest) (*MigrateResponse, error) {
	orchestrator := migrate.NewOrchestrator(e.conn, e.cfg)
	result, err := orchestrator.Run(ctx, req.Request)
	if err != nil {
		return &MigrateResponse{Error: &RPCError{
			Message: "migration rejected",
			Details: err.Error(),
		}}, nil
	}
	return &MigrateResponse{Success: true, Result: result}, nil
}

// callTyped decodes the input into a typed request, runs the handler and
// encodes the typed response
func callTyped[Req any, Resp any](input json.RawMessage, handler func(*Req) (*Resp, error)) (json.RawMessage, error) {
	var req Req
	if len(input) > 0 {
		if err := json.Unmarshal(input, &req); err != nil {
			return nil, fmt.Errorf("failed to unmarshal request: %w", err)
		}
	}

	resp, err := handler(&req)
	if err != nil {
		return nil, err
	}

	output, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return output, nil
}

func configInt(config map[string]interface{}, key string) (int, bool) {
	switch v := config[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

// Verify that StandardEngine implements Engine
var _ Engine = (*StandardEngine)(nil)
