// Package orgsync provides the engine for cross-environment metadata
// reconciliation and dependency-aware record migration.
package orgsync

const (
	// Name is the engine name reported to hosts
	Name = "orgsync"

	// Version represents the current engine version
	Version = "v0.1.0"

	// APIVersion represents the API compatibility version
	APIVersion = "v1"

	// ProtocolVersion represents the RPC protocol version used when the
	// engine is served as a plugin
	ProtocolVersion = 1
)

// EngineInfo provides information about the engine build
type EngineInfo struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	APIVersion      string `json:"api_version"`
	ProtocolVersion int    `json:"protocol_version"`
	GoVersion       string `json:"go_version"`
}

// GetEngineInfo returns information about the current engine
func GetEngineInfo() *EngineInfo {
	return &EngineInfo{
		Name:            Name,
		Version:         Version,
		APIVersion:      APIVersion,
		ProtocolVersion: ProtocolVersion,
		GoVersion:       "1.24",
	}
}
