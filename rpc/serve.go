// Package rpc provides plugin serving functionality for the orgsync engine
package rpc

import (
	"log"
	"net/rpc"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"github.com/orglens/orgsync"
)

// ServeEngine serves an engine as an RPC plugin
// This is the main entry point for engine plugins
func ServeEngine(config *ServeConfig) {
	if config == nil {
		log.Fatal("ServeConfig cannot be nil")
	}

	if config.Engine == nil {
		log.Fatal("Engine cannot be nil in ServeConfig")
	}

	logger := getLogger(config.Logger, config.Debug)

	info, err := config.Engine.GetInfo()
	if err != nil {
		logger.Error("failed to get engine info", "error", err)
		log.Fatalf("Failed to get engine info: %v", err)
	}

	logger.Info("starting engine plugin",
		"name", info.Name,
		"version", info.Version,
		"api_version", info.APIVersion,
	)

	pluginMap := map[string]plugin.Plugin{
		"engine": &OrgsyncEnginePlugin{
			Engine: config.Engine,
			Logger: logger,
		},
	}

	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: OrgsyncEngineHandshake,
		Plugins:         pluginMap,
		Logger:          logger,
	})
}

// getLogger creates or converts a logger for plugin use
func getLogger(logger interface{}, debug bool) hclog.Logger {
	if hclogger, ok := logger.(hclog.Logger); ok {
		return hclogger
	}

	level := hclog.Info
	if debug {
		level = hclog.Debug
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:  "orgsync-engine",
		Level: level,
	})
}

// OrgsyncEngineHandshake is the handshake configuration for engine plugins
var OrgsyncEngineHandshake = plugin.HandshakeConfig{
	ProtocolVersion:  uint(orgsync.ProtocolVersion),
	MagicCookieKey:   "ORGSYNC_PLUGIN",
	MagicCookieValue: "orgsync-engine-plugin",
}

// OrgsyncEnginePlugin implements the plugin.Plugin interface
type OrgsyncEnginePlugin struct {
	Engine Engine
	Logger hclog.Logger
}

// Server returns the RPC server for this plugin
func (p *OrgsyncEnginePlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &EngineServer{
		Engine: p.Engine,
		Logger: p.Logger,
	}, nil
}

// Client returns the RPC client for this plugin
func (p *OrgsyncEnginePlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &EngineClient{
		Client: c,
		Logger: p.Logger,
	}, nil
}
