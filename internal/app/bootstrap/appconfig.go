// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, log level, body size limits); this
// struct covers everything the formation service itself needs.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Bearer token verification
	JWTSecret string // HS256 signing secret shared with the auth service
	JWTIssuer string // Expected "iss" claim (blank accepts any issuer)

	// Origins allowed to call /api from a browser. Empty disables CORS.
	CORSAllowedOrigins []string

	// Formation rules
	MaxTeamSize       int // members per group, leader included; 0 disables the cap
	AllocationRetries int // re-allocations after a group-id collision

	// Audit logging: "all" (db+log), "db", "log", or "off"
	AuditLogFormation string
	AuditLogDirectory string

	// Background sweep of orphaned invitations; 0 disables it.
	InvitationSweepInterval time.Duration

	// Per-caller fixed window on mutating formation routes; 0 requests disables it.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Database operation deadlines
	DBTimeoutShort  time.Duration
	DBTimeoutMedium time.Duration
	DBTimeoutLong   time.Duration
}
