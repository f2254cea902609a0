// Package rpc provides the RPC server side for the orgsync engine
package rpc

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
)

// EngineServer implements the RPC server side for Engine
type EngineServer struct {
	Engine Engine
	Logger hclog.Logger
}

// Configure handles the Configure RPC call
func (s *EngineServer) Configure(req *ConfigureRequest, resp *ConfigureResponse) error {
	s.Logger.Debug("Configure called", "config_keys", getConfigKeys(req.Config))

	ctx := context.Background()
	err := s.Engine.Configure(ctx, req.Config)
	if err != nil {
		s.Logger.Error("Configure failed", "error", err)
		resp.Error = &RPCError{
			Message: "Configuration failed",
			Details: err.Error(),
		}
		return nil
	}

	s.Logger.Debug("Configure completed successfully")
	return nil
}

// GetInfo handles the GetInfo RPC call
func (s *EngineServer) GetInfo(req *GetInfoRequest, resp *GetInfoResponse) error {
	s.Logger.Debug("GetInfo called")

	info, err := s.Engine.GetInfo()
	if err != nil {
		s.Logger.Error("GetInfo failed", "error", err)
		resp.Error = &RPCError{
			Message: "Failed to get engine info",
			Details: err.Error(),
		}
		return nil
	}

	resp.Info = info
	s.Logger.Debug("GetInfo completed", "name", info.Name, "version", info.Version)
	return nil
}

// CallFunction handles the CallFunction RPC call
func (s *EngineServer) CallFunction(req *CallFunctionRequest, resp *CallFunctionResponse) error {
	s.Logger.Debug("CallFunction called", "function", req.Function)

	ctx := context.Background()
	output, err := s.Engine.CallFunction(ctx, req.Function, req.Input)
	if err != nil {
		s.Logger.Error("CallFunction failed", "function", req.Function, "error", err)
		resp.Error = &RPCError{
			Message: fmt.Sprintf("Function '%s' failed", req.Function),
			Details: err.Error(),
		}
		return nil
	}

	resp.Output = output
	s.Logger.Debug("CallFunction completed", "function", req.Function)
	return nil
}

// Close handles the Close RPC call
func (s *EngineServer) Close(req *CloseRequest, resp *CloseResponse) error {
	s.Logger.Debug("Close called")

	err := s.Engine.Close()
	if err != nil {
		s.Logger.Error("Close failed", "error", err)
		resp.Error = &RPCError{
			Message: "Failed to close engine",
			Details: err.Error(),
		}
		return nil
	}

	s.Logger.Debug("Close completed successfully")
	return nil
}

// getConfigKeys extracts the keys from a configuration map for logging
func getConfigKeys(config map[string]interface{}) []string {
	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	return keys
}
