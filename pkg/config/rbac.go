package config

// SeedGrant describes a permission grant applied once at startup, before
// any grants created through the API. Mirrors the PermissionGrant entity
// shape but is expressed as plain config rather than rows, since seed
// grants need to exist before the database has a subject to attach to.
type SeedGrant struct {
	Role         string `yaml:"role,omitempty"`       // "admin" or "member"; empty if SubjectID is set
	SubjectID    string `yaml:"subject_id,omitempty"` // empty if Role is set
	ResourceType string `yaml:"resource_type"`
	Action       string `yaml:"action"`
	Scope        string `yaml:"scope"` // "*" or a project id
}

// RBACConfig controls the authorization engine.
type RBACConfig struct {
	// PermissiveFallback, when true, allows every action that has no
	// matching grant instead of denying it. Intended for local development
	// only; production deployments must leave this false.
	PermissiveFallback bool `yaml:"permissive_fallback"`

	// SeedGrants are applied once at startup in addition to persisted
	// grants.
	SeedGrants []SeedGrant `yaml:"seed_grants,omitempty"`
}

// DefaultRBACConfig returns the built-in RBAC defaults.
func DefaultRBACConfig() *RBACConfig {
	return &RBACConfig{
		PermissiveFallback: false,
	}
}
