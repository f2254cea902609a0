package backends

import (
	"context"
	"fmt"
	"strings"

	"github.com/orglens/orgsync/audit"
)

// StoreType represents the type of record store
type StoreType string

const (
	StoreTypeMemory   StoreType = "memory"
	StoreTypeLocal    StoreType = "local"
	StoreTypePostgres StoreType = "postgres"
	StoreTypeS3       StoreType = "s3"
)

// StoreFactory provides methods for creating and configuring record stores
type StoreFactory struct {
	creators map[StoreType]StoreCreator
}

// StoreCreator is a function that creates a new store instance
type StoreCreator func() audit.Store

// NewStoreFactory creates a new factory with the default stores registered
func NewStoreFactory() *StoreFactory {
	factory := &StoreFactory{
		creators: make(map[StoreType]StoreCreator),
	}

	factory.RegisterStore(StoreTypeMemory, func() audit.Store {
		return NewMemoryStore()
	})

	factory.RegisterStore(StoreTypeLocal, func() audit.Store {
		return NewLocalStore()
	})

	factory.RegisterStore(StoreTypePostgres, func() audit.Store {
		return NewPostgresStore()
	})

	factory.RegisterStore(StoreTypeS3, func() audit.Store {
		return NewS3Store()
	})

	return factory
}

// RegisterStore registers a new store type with its creator function
func (f *StoreFactory) RegisterStore(storeType StoreType, creator StoreCreator) {
	if f.creators == nil {
		f.creators = make(map[StoreType]StoreCreator)
	}
	f.creators[storeType] = creator
}

// CreateStore creates a new store instance of the specified type
func (f *StoreFactory) CreateStore(storeType StoreType) (audit.Store, error) {
	creator, exists := f.creators[storeType]
	if !exists {
		return nil, fmt.Errorf("unknown store type: %s", storeType)
	}

	store := creator()
	if store == nil {
		return nil, fmt.Errorf("store creator returned nil for type: %s", storeType)
	}

	return store, nil
}

// CreateAndConfigureStore creates a new store and configures it
func (f *StoreFactory) CreateAndConfigureStore(ctx context.Context, storeType StoreType, config map[string]interface{}) (audit.Store, error) {
	store, err := f.CreateStore(storeType)
	if err != nil {
		return nil, err
	}

	if configurable, ok := store.(ConfigurableStore); ok {
		if err := configurable.Configure(ctx, config); err != nil {
			return nil, fmt.Errorf("failed to configure %s store: %w", storeType, err)
		}
	}

	return store, nil
}

// ListAvailableStores returns a list of all registered store types
func (f *StoreFactory) ListAvailableStores() []StoreType {
	var types []StoreType
	for storeType := range f.creators {
		types = append(types, storeType)
	}
	return types
}

// IsStoreAvailable checks if a store type is available
func (f *StoreFactory) IsStoreAvailable(storeType StoreType) bool {
	_, exists := f.creators[storeType]
	return exists
}

// ConfigurableStore represents a store that can be configured
type ConfigurableStore interface {
	Configure(ctx context.Context, config map[string]interface{}) error
}

// ParseStoreType parses a string into a StoreType
func ParseStoreType(s string) (StoreType, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	switch s {
	case "memory":
		return StoreTypeMemory, nil
	case "local", "file", "filesystem":
		return StoreTypeLocal, nil
	case "postgres", "postgresql", "pg":
		return StoreTypePostgres, nil
	case "s3", "aws", "amazon":
		return StoreTypeS3, nil
	default:
		return "", fmt.Errorf("unknown store type: %s", s)
	}
}

// String returns the string representation of a StoreType
func (st StoreType) String() string {
	return string(st)
}

// Validate validates a StoreType
func (st StoreType) Validate() error {
	switch st {
	case StoreTypeMemory, StoreTypeLocal, StoreTypePostgres, StoreTypeS3:
		return nil
	default:
		return fmt.Errorf("invalid store type: %s", st)
	}
}

// DefaultStoreFactory returns a default factory with all standard stores registered
var DefaultStoreFactory = NewStoreFactory()

// CreateStore creates a store using the default factory
func CreateStore(storeType StoreType) (audit.Store, error) {
	return DefaultStoreFactory.CreateStore(storeType)
}

// CreateAndConfigureStore creates and configures a store using the default factory
func CreateAndConfigureStore(ctx context.Context, storeType StoreType, config map[string]interface{}) (audit.Store, error) {
	return DefaultStoreFactory.CreateAndConfigureStore(ctx, storeType, config)
}

// StoreConfig represents a store configuration
type StoreConfig struct {
	Type   StoreType              `json:"type"`
	Config map[string]interface{} `json:"config"`
}

// Validate validates a store configuration
func (sc *StoreConfig) Validate() error {
	if err := sc.Type.Validate(); err != nil {
		return fmt.Errorf("invalid store type: %w", err)
	}

	if sc.Config == nil {
		sc.Config = make(map[string]interface{})
	}

	return nil
}

// CreateStoreFromConfig creates a store from a configuration
func CreateStoreFromConfig(ctx context.Context, config *StoreConfig) (audit.Store, error) {
	if config == nil {
		return nil, fmt.Errorf("store config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}

	return CreateAndConfigureStore(ctx, config.Type, config.Config)
}

// GetDefaultConfig returns default configuration for a store type
func GetDefaultConfig(storeType StoreType) map[string]interface{} {
	switch storeType {
	case StoreTypeMemory:
		return map[string]interface{}{
			// Memory store needs no configuration
		}

	case StoreTypeLocal:
		return map[string]interface{}{
			"dir":         "orgsync-runs",
			"permissions": 0644,
		}

	case StoreTypePostgres:
		return map[string]interface{}{
			"host":     "localhost",
			"port":     5432,
			"schema":   "public",
			"ssl_mode": "prefer",
		}

	case StoreTypeS3:
		return map[string]interface{}{
			"region":        "us-east-1",
			"max_retries":   3,
			"storage_class": "STANDARD",
			"encrypt":       true,
		}

	default:
		return map[string]interface{}{}
	}
}

// GetRequiredFields returns the required configuration fields for a store type
func GetRequiredFields(storeType StoreType) []string {
	switch storeType {
	case StoreTypeMemory:
		return []string{}

	case StoreTypeLocal:
		return []string{"dir"}

	case StoreTypePostgres:
		return []string{"database", "username"}

	case StoreTypeS3:
		return []string{"bucket"}

	default:
		return []string{}
	}
}

// ValidateConfig validates configuration for a specific store type
func ValidateConfig(storeType StoreType, config map[string]interface{}) error {
	requiredFields := GetRequiredFields(storeType)

	for _, field := range requiredFields {
		if _, exists := config[field]; !exists {
			return fmt.Errorf("required field '%s' missing for %s store", field, storeType)
		}
	}

	switch storeType {
	case StoreTypePostgres:
		if port, exists := config["port"]; exists {
			switch v := port.(type) {
			case float64:
				if v <= 0 || v > 65535 {
					return fmt.Errorf("invalid port number: %v", v)
				}
			case int:
				if v <= 0 || v > 65535 {
					return fmt.Errorf("invalid port number: %d", v)
				}
			default:
				return fmt.Errorf("port must be a number")
			}
		}

	case StoreTypeS3:
		if region, exists := config["region"]; exists {
			if regionStr, ok := region.(string); ok && regionStr == "" {
				return fmt.Errorf("region cannot be empty")
			}
		}
	}

	return nil
}
