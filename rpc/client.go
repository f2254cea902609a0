// Package rpc provides the RPC client side for the orgsync engine
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/rpc"

	"github.com/hashicorp/go-hclog"

	"github.com/orglens/orgsync"
	"github.com/orglens/orgsync/migrate"
	"github.com/orglens/orgsync/types"
)

// EngineClient implements the Engine interface as an RPC client
type EngineClient struct {
	Client *rpc.Client
	Logger hclog.Logger
}

// ConfigureRequest represents the request for Configure RPC call
type ConfigureRequest struct {
	Config map[string]interface{} `json:"config"`
}

// ConfigureResponse represents the response for Configure RPC call
type ConfigureResponse struct {
	Error *RPCError `json:"error,omitempty"`
}

// GetInfoRequest represents the request for GetInfo RPC call
type GetInfoRequest struct{}

// GetInfoResponse represents the response for GetInfo RPC call
type GetInfoResponse struct {
	Info  *orgsync.EngineInfo `json:"info,omitempty"`
	Error *RPCError           `json:"error,omitempty"`
}

// CallFunctionRequest represents the request for CallFunction RPC call
type CallFunctionRequest struct {
	Function string          `json:"function"`
	Input    json.RawMessage `json:"input,omitempty"`
}

// CallFunctionResponse represents the response for CallFunction RPC call
type CallFunctionResponse struct {
	Output json.RawMessage `json:"output,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

// CloseRequest represents the request for Close RPC call
type CloseRequest struct{}

// CloseResponse represents the response for Close RPC call
type CloseResponse struct {
	Error *RPCError `json:"error,omitempty"`
}

// Configure calls the engine's Configure method via RPC
func (c *EngineClient) Configure(ctx context.Context, config map[string]interface{}) error {
	req := &ConfigureRequest{Config: config}
	var resp ConfigureResponse

	err := c.Client.Call("Plugin.Configure", req, &resp)
	if err != nil {
		return err
	}

	if resp.Error != nil {
		return resp.Error
	}

	return nil
}

// GetInfo calls the engine's GetInfo method via RPC
func (c *EngineClient) GetInfo() (*orgsync.EngineInfo, error) {
	req := &GetInfoRequest{}
	var resp GetInfoResponse

	err := c.Client.Call("Plugin.GetInfo", req, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Error != nil {
		return nil, resp.Error
	}

	return resp.Info, nil
}

// CallFunction calls the engine's CallFunction method via RPC
func (c *EngineClient) CallFunction(ctx context.Context, function string, input json.RawMessage) (json.RawMessage, error) {
	req := &CallFunctionRequest{
		Function: function,
		Input:    input,
	}
	var resp CallFunctionResponse

	err := c.Client.Call("Plugin.CallFunction", req, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Error != nil {
		return nil, resp.Error
	}

	return resp.Output, nil
}

// Close calls the engine's Close method via RPC
func (c *EngineClient) Close() error {
	req := &CloseRequest{}
	var resp CloseResponse

	err := c.Client.Call("Plugin.Close", req, &resp)
	if err != nil {
		return err
	}

	if resp.Error != nil {
		return resp.Error
	}

	return nil
}

// =============================================================================
// TYPED OPERATION WRAPPERS
// =============================================================================

// Compare calls the Compare function with a typed request
func (c *EngineClient) Compare(ctx context.Context, req *CompareRequest) (*CompareResponse, error) {
	return callRemote[CompareRequest, CompareResponse](ctx, c, FuncCompare, req)
}

// ComparePermissions calls the ComparePermissions function with a typed request
func (c *EngineClient) ComparePermissions(ctx context.Context, req *ComparePermissionsRequest) (*ComparePermissionsResponse, error) {
	return callRemote[ComparePermissionsRequest, ComparePermissionsResponse](ctx, c, FuncComparePermissions, req)
}

// DecodeDependencies calls the DecodeDependencies function with a typed request
func (c *EngineClient) DecodeDependencies(ctx context.Context, req *DecodeDependenciesRequest) (*DecodeDependenciesResponse, error) {
	return callRemote[DecodeDependenciesRequest, DecodeDependenciesResponse](ctx, c, FuncDecodeDependencies, req)
}

// DiscoverRelationships calls the DiscoverRelationships function with a typed request
func (c *EngineClient) DiscoverRelationships(ctx context.Context, env *types.Environment, rootType string) (*DiscoverRelationshipsResponse, error) {
	req := &DiscoverRelationshipsRequest{Environment: env, RootType: rootType}
	return callRemote[DiscoverRelationshipsRequest, DiscoverRelationshipsResponse](ctx, c, FuncDiscoverRelationships, req)
}

// CheckCompatibility calls the CheckCompatibility function with a typed request
func (c *EngineClient) CheckCompatibility(ctx context.Context, req *CheckCompatibilityRequest) (*CheckCompatibilityResponse, error) {
	return callRemote[CheckCompatibilityRequest, CheckCompatibilityResponse](ctx, c, FuncCheckCompatibility, req)
}

// Migrate calls the Migrate function with a typed request
func (c *EngineClient) Migrate(ctx context.Context, req *migrate.MigrationRequest) (*MigrateResponse, error) {
	return callRemote[MigrateRequest, MigrateResponse](ctx, c, FuncMigrate, &MigrateRequest{Request: req})
}

// Ping calls the Ping function
func (c *EngineClient) Ping(ctx context.Context) (*PingResponse, error) {
	return callRemote[PingRequest, PingResponse](ctx, c, FuncPing, &PingRequest{})
}

// callRemote marshals a typed request through CallFunction and unmarshals
// the typed response
func callRemote[Req any, Resp any](ctx context.Context, c *EngineClient, function string, req *Req) (*Resp, error) {
	input, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	output, err := c.CallFunction(ctx, function, json.RawMessage(input))
	if err != nil {
		return nil, err
	}

	var resp Resp
	if err := json.Unmarshal(output, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &resp, nil
}

// Verify that EngineClient implements Engine
var _ Engine = (*EngineClient)(nil)
