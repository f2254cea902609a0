package types

// Environment is an opaque connection handle for one tenant instance of
// the remote platform. It is immutable once obtained, owned by the caller
// and passed by reference into every fetch/write operation. The engine
// never persists it.
type Environment struct {
	// Label is a human-readable name used in logs and reports
	Label string `json:"label"`

	// BaseURL is the instance base address
	BaseURL string `json:"base_url"`

	// TenantID identifies the tenant (org) behind the handle
	TenantID string `json:"tenant_id"`

	// APIVersion selects the remote API version for all calls
	APIVersion string `json:"api_version"`

	// AccessToken is the session credential acquired by the host
	AccessToken string `json:"-"`
}

// Same reports whether two handles point at the same tenant instance.
// Comparing source and target of a run against each other is a
// configuration error upstream.
func (e *Environment) Same(other *Environment) bool {
	if e == nil || other == nil {
		return false
	}
	if e.TenantID != "" && other.TenantID != "" {
		return e.TenantID == other.TenantID
	}
	return e.BaseURL == other.BaseURL
}
