package auth

import (
	"context"
)

type contextKey string

// ContextKey is the key under which the host stores auth info in
// context. Hosts inject either an AuthInfo or a compatible
// map[string]interface{}; engines should use FromAuth to retrieve
// claims safely.
const ContextKey contextKey = "orgsync.auth"

// Claims contains the minimal, stable fields of the acting user.
type Claims struct {
	Subject  string
	Issuer   string
	Scope    string
	TenantID string
}

// AuthInfo represents the authentication details of the host session
// that initiated an engine operation.
type AuthInfo struct {
	RawToken string
	Claims   Claims
}

// WithAuth stores AuthInfo in context under the well-known key.
func WithAuth(ctx context.Context, info AuthInfo) context.Context {
	return context.WithValue(ctx, ContextKey, info)
}

// FromAuth retrieves AuthInfo from context. It tolerates two encodings:
// 1) AuthInfo (preferred)
// 2) map[string]interface{} with optional nested "claims" map written by the host
func FromAuth(ctx context.Context) (AuthInfo, bool) {
	v := ctx.Value(ContextKey)
	if v == nil {
		return AuthInfo{}, false
	}
	if info, ok := v.(AuthInfo); ok {
		return info, true
	}
	// Flexible map decoding
	if m, ok := v.(map[string]interface{}); ok {
		var ai AuthInfo
		if tok, ok := m["token"].(string); ok {
			ai.RawToken = tok
		}
		var cm map[string]interface{}
		if c, ok := m["claims"]; ok {
			if mm, ok2 := c.(map[string]interface{}); ok2 {
				cm = mm
			}
		} else {
			cm = m
		}
		if cm != nil {
			if s, ok := cm["sub"].(string); ok {
				ai.Claims.Subject = s
			}
			if s, ok := cm["iss"].(string); ok {
				ai.Claims.Issuer = s
			}
			if s, ok := cm["scope"].(string); ok {
				ai.Claims.Scope = s
			}
			if s, ok := cm["tenant_id"].(string); ok {
				ai.Claims.TenantID = s
			}
		}
		return ai, true
	}
	return AuthInfo{}, false
}
