// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/sparktrack/sparktrack/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// devJWTSecret is accepted outside prod only.
const devJWTSecret = "dev-only-change-me-please-0123456789ABCDEF"

// minJWTSecretLength is the shortest secret accepted in prod.
const minJWTSecretLength = 32

var auditModes = map[string]bool{"all": true, "db": true, "log": true, "off": true}

// appConfigKeys defines the configuration keys for SparkTrack.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: SPARKTRACK_MONGO_URI, SPARKTRACK_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "sparktrack", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Bearer tokens
	{Name: "jwt_secret", Default: devJWTSecret, Desc: "HS256 secret for bearer tokens (must be strong in production)"},
	{Name: "jwt_issuer", Default: "", Desc: "Expected token issuer (blank accepts any)"},

	{Name: "cors_allowed_origins", Default: "", Desc: "Comma-separated origins allowed to call /api"},

	// Formation rules
	{Name: "max_team_size", Default: 0, Desc: "Maximum members per group, leader included (0, the default, disables the cap)"},
	{Name: "allocation_retries", Default: 5, Desc: "Group-id re-allocations after a collision"},

	// Audit logging settings
	{Name: "audit_log_formation", Default: "all", Desc: "Formation event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_directory", Default: "all", Desc: "Roster import logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "invitation_sweep_interval", Default: "10m", Desc: "Orphaned invitation sweep interval (0 disables)"},

	// Rate limiting
	{Name: "ratelimit_requests", Default: 30, Desc: "Mutating formation requests allowed per caller per window (0 disables)"},
	{Name: "ratelimit_window", Default: "1m", Desc: "Rate limit window"},

	// Database deadlines
	{Name: "db_timeout_short", Default: "5s", Desc: "Deadline for single-document operations"},
	{Name: "db_timeout_medium", Default: "10s", Desc: "Deadline for multi-step operations"},
	{Name: "db_timeout_long", Default: "30s", Desc: "Deadline for group confirmation and listings"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, SPARKTRACK_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "SPARKTRACK", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret: appValues.String("jwt_secret"),
		JWTIssuer: appValues.String("jwt_issuer"),

		CORSAllowedOrigins: splitList(appValues.String("cors_allowed_origins")),

		MaxTeamSize:       appValues.Int("max_team_size"),
		AllocationRetries: appValues.Int("allocation_retries"),

		AuditLogFormation: strings.ToLower(appValues.String("audit_log_formation")),
		AuditLogDirectory: strings.ToLower(appValues.String("audit_log_directory")),

		InvitationSweepInterval: appValues.Duration("invitation_sweep_interval", 10*time.Minute),

		RateLimitRequests: appValues.Int("ratelimit_requests"),
		RateLimitWindow:   appValues.Duration("ratelimit_window", time.Minute),

		DBTimeoutShort:  appValues.Duration("db_timeout_short", timeouts.DefaultShort),
		DBTimeoutMedium: appValues.Duration("db_timeout_medium", timeouts.DefaultMedium),
		DBTimeoutLong:   appValues.Duration("db_timeout_long", timeouts.DefaultLong),
	}
	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The MongoDB URI is checked here to catch configuration errors before
// attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if strings.TrimSpace(appCfg.MongoDatabase) == "" {
		return fmt.Errorf("mongo_database must be set")
	}

	if appCfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret must be set")
	}
	if coreCfg != nil && coreCfg.Env == "prod" {
		if appCfg.JWTSecret == devJWTSecret || len(appCfg.JWTSecret) < minJWTSecretLength {
			return fmt.Errorf("jwt_secret must be at least %d characters and not the development default in prod", minJWTSecretLength)
		}
	}

	if appCfg.MaxTeamSize < 0 {
		return fmt.Errorf("max_team_size must not be negative (got %d)", appCfg.MaxTeamSize)
	}
	if appCfg.MaxTeamSize == 1 {
		return fmt.Errorf("max_team_size of 1 leaves no room for invitees")
	}
	if appCfg.AllocationRetries < 1 {
		return fmt.Errorf("allocation_retries must be positive (got %d)", appCfg.AllocationRetries)
	}

	for key, mode := range map[string]string{
		"audit_log_formation": appCfg.AuditLogFormation,
		"audit_log_directory": appCfg.AuditLogDirectory,
	} {
		if !auditModes[mode] {
			return fmt.Errorf("%s must be one of all, db, log, off (got %q)", key, mode)
		}
	}

	if appCfg.InvitationSweepInterval < 0 {
		return fmt.Errorf("invitation_sweep_interval must not be negative")
	}
	if appCfg.RateLimitRequests < 0 {
		return fmt.Errorf("ratelimit_requests must not be negative")
	}
	if appCfg.RateLimitRequests > 0 && appCfg.RateLimitWindow <= 0 {
		return fmt.Errorf("ratelimit_window must be positive when rate limiting is enabled")
	}

	return nil
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
