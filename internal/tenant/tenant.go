// Package tenant holds the statically provisioned tenant table and the
// per-request validation checks that run against it.
package tenant

import (
	"errors"
	"log"

	"github.com/umedia/cdn-service/internal/config"
)

// ErrMissingAPIKey is returned when no credential was supplied at all.
var ErrMissingAPIKey = errors.New("API key required")

// ErrUnknownTenant is returned when the tenant id is not provisioned.
var ErrUnknownTenant = errors.New("unknown tenant")

// ErrInvalidAPIKey is returned when the supplied key does not match the
// tenant's provisioned key.
var ErrInvalidAPIKey = errors.New("invalid API key")

// ErrInvalidCategory is returned when the category is not in the tenant's
// whitelist.
var ErrInvalidCategory = errors.New("invalid category")

// ErrNoBaseURL is returned when a tenant has no public base URL configured.
// This is an operator misconfiguration, not a bad request.
var ErrNoBaseURL = errors.New("tenant base URL not configured")

// Tenant is one provisioned upload client. Immutable after startup.
type Tenant struct {
	ID         string
	APIKey     string
	BaseURL    string
	Categories []string
}

// AllowsCategory reports whether the category is in the tenant's whitelist.
func (t *Tenant) AllowsCategory(category string) bool {
	for _, c := range t.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Registry is the read-only tenant lookup table. It is built once at startup
// and never mutated, so concurrent reads need no synchronization.
type Registry struct {
	tenants map[string]*Tenant
}

// NewRegistry builds the registry from configuration. Tenants with an empty
// API key are skipped: a tenant without a credential can never authenticate,
// and silently provisioning one would make every request fail confusingly.
func NewRegistry(cfgs []config.TenantConfig) *Registry {
	tenants := make(map[string]*Tenant, len(cfgs))
	for _, c := range cfgs {
		if c.APIKey == "" {
			log.Printf("tenant: skipping %q, no API key configured", c.ID)
			continue
		}
		tenants[c.ID] = &Tenant{
			ID:         c.ID,
			APIKey:     c.APIKey,
			BaseURL:    c.BaseURL,
			Categories: c.Categories,
		}
	}
	return &Registry{tenants: tenants}
}

// Lookup returns the tenant by id.
func (r *Registry) Lookup(id string) (*Tenant, error) {
	t, ok := r.tenants[id]
	if !ok {
		return nil, ErrUnknownTenant
	}
	return t, nil
}

// Authenticate resolves the tenant and checks the supplied API key, in that
// order. The caller must not reveal which of the two checks failed.
func (r *Registry) Authenticate(id, apiKey string) (*Tenant, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	t, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	if apiKey != t.APIKey {
		return nil, ErrInvalidAPIKey
	}
	return t, nil
}

// Len returns the number of provisioned tenants.
func (r *Registry) Len() int {
	return len(r.tenants)
}
