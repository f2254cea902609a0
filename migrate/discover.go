// Package migrate implements the record migration engine: relationship
// discovery, the migration session and the multi-phase orchestrator.
package migrate

import (
	"context"
	"strings"

	"github.com/orglens/orgsync/core"
	"github.com/orglens/orgsync/helpers/logging"
	"github.com/orglens/orgsync/types"
)

// DiscoverRelationships enumerates the child entity types referencing a
// root type via a foreign key. Relationships whose child type carries a
// system suffix (history/sharing/feed/tag/event tables) or that lack a
// foreign-key field are dropped; some platform responses omit the field.
// Output order is as received from the platform.
func DiscoverRelationships(ctx context.Context, fetcher core.MetadataFetcher, env *types.Environment, rootType string, cfg *core.EngineConfig) ([]types.Relationship, error) {
	if rootType == "" {
		return nil, core.NewConfigurationError("root type cannot be empty")
	}
	if cfg == nil {
		cfg = core.DefaultEngineConfig()
	}

	callCtx, cancel := context.WithTimeout(ctx, cfg.CallTimeout)
	defer cancel()

	all, err := fetcher.ChildRelationships(callCtx, env, rootType)
	if err != nil {
		return nil, core.NewTransportError("child relationship fetch", rootType, err)
	}

	kept := make([]types.Relationship, 0, len(all))
	dropped := 0
	for _, rel := range all {
		if rel.ForeignKeyField == "" || isSystemChildType(rel.ChildType, cfg.SystemRelationshipSuffixes) {
			dropped++
			continue
		}
		kept = append(kept, rel)
	}

	logging.DiscoveryLogger.DebugWithFields("discovered child relationships",
		"root_type", rootType, "kept", len(kept), "dropped", dropped)

	return kept, nil
}

func isSystemChildType(childType string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(childType, suffix) {
			return true
		}
	}
	return false
}
