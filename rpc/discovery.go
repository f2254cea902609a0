// Package rpc - discovery provides high-level client functionality for
// finding and connecting to engine plugin binaries
package rpc

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
)

// Client provides high-level engine plugin discovery and management
type Client struct {
	logger hclog.Logger
	// plugins maps engine names to their plugin clients
	plugins map[string]*plugin.Client
	// engines maps engine names to their RPC clients
	engines map[string]Engine
	// mutex protects concurrent access
	mutex sync.RWMutex
}

// NewClient creates a new RPC client for engine discovery and management
func NewClient() *Client {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "orgsync-rpc-client",
		Level:  hclog.Info,
		Output: os.Stderr,
	})

	return &Client{
		logger:  logger,
		plugins: make(map[string]*plugin.Client),
		engines: make(map[string]Engine),
	}
}

// DiscoverEngines discovers available engine plugins in standard paths
func (c *Client) DiscoverEngines() ([]string, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var engines []string
	for _, searchPath := range searchPaths() {
		if _, err := os.Stat(searchPath); os.IsNotExist(err) {
			continue
		}

		entries, err := os.ReadDir(searchPath)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}

			name := entry.Name()
			if strings.HasPrefix(name, "orgsync-engine-") {
				engineName := strings.TrimPrefix(name, "orgsync-engine-")

				binaryPath := filepath.Join(searchPath, name)
				if isExecutable(binaryPath) {
					engines = append(engines, engineName)
				}
			}
		}
	}

	// Remove duplicates
	seen := make(map[string]bool)
	var unique []string
	for _, engine := range engines {
		if !seen[engine] {
			seen[engine] = true
			unique = append(unique, engine)
		}
	}

	return unique, nil
}

// Connect connects to a specific engine plugin
func (c *Client) Connect(engineName string) (Engine, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if engine, exists := c.engines[engineName]; exists {
		return engine, nil
	}

	binaryName := fmt.Sprintf("orgsync-engine-%s", engineName)
	binaryPath, err := c.findEngineBinary(binaryName)
	if err != nil {
		return nil, fmt.Errorf("failed to find engine binary '%s': %w", binaryName, err)
	}

	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: OrgsyncEngineHandshake,
		Plugins: map[string]plugin.Plugin{
			"engine": &OrgsyncEnginePlugin{},
		},
		Cmd:    exec.Command(binaryPath),
		Logger: c.logger.Named(engineName),
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to connect to engine plugin: %w", err)
	}

	raw, err := rpcClient.Dispense("engine")
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to dispense engine: %w", err)
	}

	engine := raw.(Engine)

	c.plugins[engineName] = client
	c.engines[engineName] = engine

	return engine, nil
}

// Close closes all engine connections
func (c *Client) Close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for name, client := range c.plugins {
		c.logger.Debug("closing engine connection", "engine", name)
		client.Kill()
	}

	c.plugins = make(map[string]*plugin.Client)
	c.engines = make(map[string]Engine)
}

// findEngineBinary finds an engine binary in standard search paths
func (c *Client) findEngineBinary(binaryName string) (string, error) {
	for _, searchPath := range searchPaths() {
		binaryPath := filepath.Join(searchPath, binaryName)
		if isExecutable(binaryPath) {
			return binaryPath, nil
		}
	}

	return "", fmt.Errorf("binary '%s' not found in search paths", binaryName)
}

func searchPaths() []string {
	paths := []string{
		"./bin",
		".",
		"/usr/local/bin",
	}

	if path := os.Getenv("PATH"); path != "" {
		paths = append(paths, strings.Split(path, string(os.PathListSeparator))...)
	}

	return paths
}

// isExecutable checks if a file exists and is executable
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.Mode().IsRegular() && (info.Mode().Perm()&0111) != 0
}
