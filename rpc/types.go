// Package rpc provides request/response types for the orgsync engine RPC interface
package rpc

import (
	"github.com/orglens/orgsync/compare"
	"github.com/orglens/orgsync/migrate"
	"github.com/orglens/orgsync/types"
)

// =============================================================================
// COMPARISON REQUEST/RESPONSE TYPES
// =============================================================================

// CompareRequest asks the engine to reconcile one entity type across two
// environments. When Source and Target are set the engine reconciles the
// supplied collections; otherwise it fetches both sides itself.
type CompareRequest struct {
	EntityType types.EntityType `json:"entity_type"`

	SourceEnv *types.Environment `json:"source_env,omitempty"`
	TargetEnv *types.Environment `json:"target_env,omitempty"`

	Source *types.Collection `json:"source,omitempty"`
	Target *types.Collection `json:"target,omitempty"`

	// KeyAttributes name the attributes whose dot-joined values identify
	// a record across environments
	KeyAttributes []string `json:"key_attributes"`

	// CompareFields restricts the drift check to these attributes; empty
	// means every attribute except the key is compared
	CompareFields []string `json:"compare_fields,omitempty"`

	// Filter narrows what is fetched when the engine fetches both sides
	Filter *FetchFilterPayload `json:"filter,omitempty"`
}

// FetchFilterPayload mirrors the engine's fetch filter over the wire
type FetchFilterPayload struct {
	ObjectType string `json:"object_type,omitempty"`
	FieldName  string `json:"field_name,omitempty"`
	ParentID   string `json:"parent_id,omitempty"`
}

// CompareResponse returns a reconciliation outcome
type CompareResponse struct {
	Success bool            `json:"success"`
	Result  *compare.Result `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// ComparePermissionsRequest asks the engine to reconcile profile or
// permission-set grants across two environments
type ComparePermissionsRequest struct {
	SourceEnv *types.Environment `json:"source_env"`
	TargetEnv *types.Environment `json:"target_env"`

	// ParentID selects whose grants are compared (a profile or
	// permission set identifier valid in both environments)
	ParentID string `json:"parent_id"`
}

// ComparePermissionsResponse returns the layered permission outcome
type ComparePermissionsResponse struct {
	Success bool                      `json:"success"`
	Result  *compare.PermissionResult `json:"result,omitempty"`
	Error   *RPCError                 `json:"error,omitempty"`
}

// =============================================================================
// DEPENDENCY DECODING REQUEST/RESPONSE TYPES
// =============================================================================

// DecodeDependenciesRequest carries one controlling/dependent field pair
// in whichever encoding the platform returned it
type DecodeDependenciesRequest struct {
	DependentField   string                  `json:"dependent_field"`
	ControllingField string                  `json:"controlling_field"`
	Source           *types.DependencySource `json:"source"`
}

// DecodeDependenciesResponse returns the normalized mapping plus any
// per-value warnings raised while decoding
type DecodeDependenciesResponse struct {
	Success  bool                     `json:"success"`
	Mapping  *types.DependencyMapping `json:"mapping,omitempty"`
	Warnings []string                 `json:"warnings,omitempty"`
	Error    *RPCError                `json:"error,omitempty"`
}

// =============================================================================
// RELATIONSHIP DISCOVERY REQUEST/RESPONSE TYPES
// =============================================================================

// DiscoverRelationshipsRequest asks for the migratable child
// relationships of one root type
type DiscoverRelationshipsRequest struct {
	Environment *types.Environment `json:"environment"`
	RootType    string             `json:"root_type"`
}

// DiscoverRelationshipsResponse returns the filtered relationship list
type DiscoverRelationshipsResponse struct {
	Success       bool                 `json:"success"`
	Relationships []types.Relationship `json:"relationships,omitempty"`
	Error         *RPCError            `json:"error,omitempty"`
}

// =============================================================================
// COMPATIBILITY REQUEST/RESPONSE TYPES
// =============================================================================

// CheckCompatibilityRequest carries the field inventories of the same
// object in two environments
type CheckCompatibilityRequest struct {
	ObjectType string              `json:"object_type"`
	Source     []compare.FieldSpec `json:"source"`
	Target     []compare.FieldSpec `json:"target"`
}

// CheckCompatibilityResponse returns the field-level compatibility report
type CheckCompatibilityResponse struct {
	Success bool                         `json:"success"`
	Report  *compare.CompatibilityReport `json:"report,omitempty"`
	Error   *RPCError                    `json:"error,omitempty"`
}

// =============================================================================
// MIGRATION REQUEST/RESPONSE TYPES
// =============================================================================

// MigrateRequest wraps a migration run request
type MigrateRequest struct {
	Request *migrate.MigrationRequest `json:"request"`
}

// MigrateResponse returns the full run outcome. Success reflects the RPC
// exchange, not the run: a Failed run still arrives as a successful
// response with the failure inside Result.
type MigrateResponse struct {
	Success bool                     `json:"success"`
	Result  *migrate.MigrationResult `json:"result,omitempty"`
	Error   *RPCError                `json:"error,omitempty"`
}

// =============================================================================
// HEALTH CHECK REQUEST/RESPONSE TYPES
// =============================================================================

// PingRequest represents a health check request
type PingRequest struct {
	IncludeDetails bool `json:"include_details"`
}

// PingResponse represents a health check response
type PingResponse struct {
	Success bool      `json:"success"`
	Healthy bool      `json:"healthy"`
	Details string    `json:"details,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

// =============================================================================
// ERROR TYPES
// =============================================================================

// RPCError represents an error in RPC communication
type RPCError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *RPCError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}
