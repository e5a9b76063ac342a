package authorize

import "github.com/Alijeyrad/counsel_backend/config"

// Config holds configuration for the authorization system
type Config struct {
	// EnableAudit enables audit logging for all authorization decisions
	EnableAudit bool

	// PolicySyncEnabled enables policy synchronization across distributed instances
	PolicySyncEnabled bool
}

// FromCentralConfig converts central config.AuthorizationConfig to package Config
func FromCentralConfig(c config.AuthorizationConfig) Config {
	return Config{
		EnableAudit:       c.EnableAudit,
		PolicySyncEnabled: c.PolicySyncEnabled,
	}
}
