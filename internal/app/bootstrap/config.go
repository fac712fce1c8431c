// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/jobhub/internal/app/system/auditlog"
	"github.com/dalemusser/jobhub/internal/app/system/notify"
	"github.com/dalemusser/jobhub/internal/app/system/passwords"
	"github.com/dalemusser/jobhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const (
	backendMongo  = "mongo"
	backendMemory = "memory"

	devJWTSecret = "dev-only-change-me-please-0123456789ABCDEF"
)

// appConfigKeys defines the configuration keys for jobhub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, admin_email, etc.
//   - Environment variables: JOBHUB_MONGO_URI, JOBHUB_ADMIN_EMAIL, etc.
//   - Command-line flags: --mongo_uri, --admin_email, etc.
var appConfigKeys = []config.AppKey{
	{Name: "store_backend", Default: backendMongo, Desc: "Store backend: 'mongo' or 'memory'"},
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "jobhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@jobhub.example", Desc: "From email address"},
	{Name: "mail_from_name", Default: "JobHub", Desc: "From display name"},

	{Name: "site_name", Default: "JobHub", Desc: "Site name used in notifications"},
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for links in notifications"},
	{Name: "admin_email", Default: "", Desc: "Reviewer address notified of signup and removal requests"},

	// Notification delivery
	{Name: "notify_mode", Default: notify.ModeDirect, Desc: "Notification delivery: 'direct', 'queue' or 'log'"},
	{Name: "notify_timeout", Default: "30s", Desc: "Per-message SMTP timeout in direct mode"},
	{Name: "redis_addr", Default: "", Desc: "Redis address for notify_mode=queue (host:port)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},

	// API authentication
	{Name: "jwt_secret", Default: devJWTSecret, Desc: "Bearer token signing key (must be strong in production)"},
	{Name: "token_expiry", Default: "12h", Desc: "Bearer token lifetime"},
	{Name: "cors_origins", Default: "", Desc: "Comma-separated allowed CORS origins (blank disables CORS)"},
	{Name: "submit_rate_limit", Default: 10, Desc: "Anonymous signup/join submissions allowed per IP per minute"},
	{Name: "login_rate_limit", Default: 10, Desc: "Sign-in attempts allowed per IP per minute"},
	{Name: "login_account_limit", Default: 5, Desc: "Sign-in attempts allowed per account per 5 minutes"},
	{Name: "limited_signin_limit", Default: 3, Desc: "Sign-ins per hour for accounts awaiting signup approval"},

	// Activity feed
	{Name: "audit_log", Default: auditlog.ModeAll, Desc: "Activity logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "activity_feed_cap", Default: 50, Desc: "Entries kept in the activity feed"},

	// Request reclamation
	{Name: "request_retention", Default: "720h", Desc: "How long resolved requests are kept"},
	{Name: "reclaim_interval", Default: "1h", Desc: "How often resolved requests are reclaimed"},

	// Timeouts
	{Name: "timeout_short", Default: timeouts.DefaultShort.String(), Desc: "Timeout for single reads"},
	{Name: "timeout_medium", Default: timeouts.DefaultMedium.String(), Desc: "Timeout for single writes"},
	{Name: "timeout_long", Default: timeouts.DefaultLong.String(), Desc: "Timeout for multi-step operations"},

	// SuperAdmin bootstrap
	{Name: "superadmin_email", Default: "", Desc: "Email of the superadmin user (promotes/creates on startup)"},
	{Name: "superadmin_password", Default: "", Desc: "Initial superadmin password, set only when the account has none"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, JOBHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "JOBHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		StoreBackend:     strings.ToLower(strings.TrimSpace(appValues.String("store_backend"))),
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		// Email/SMTP
		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		SiteName:   appValues.String("site_name"),
		BaseURL:    appValues.String("base_url"),
		AdminEmail: appValues.String("admin_email"),

		// Notifications
		NotifyMode:    strings.ToLower(strings.TrimSpace(appValues.String("notify_mode"))),
		NotifyTimeout: appValues.Duration("notify_timeout", 30*time.Second),
		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),

		// Auth
		JWTSecret:   appValues.String("jwt_secret"),
		TokenExpiry: appValues.Duration("token_expiry", 12*time.Hour),
		CORSOrigins: splitList(appValues.String("cors_origins")),

		SubmitRateLimit: appValues.Int("submit_rate_limit"),

		LoginRateLimit:     appValues.Int("login_rate_limit"),
		LoginAccountLimit:  appValues.Int("login_account_limit"),
		LimitedSignInLimit: appValues.Int("limited_signin_limit"),

		// Activity
		AuditLog:        appValues.String("audit_log"),
		ActivityFeedCap: appValues.Int("activity_feed_cap"),

		// Reclamation
		RequestRetention: appValues.Duration("request_retention", 720*time.Hour),
		ReclaimInterval:  appValues.Duration("reclaim_interval", time.Hour),

		// Timeouts
		TimeoutShort:  appValues.Duration("timeout_short", timeouts.DefaultShort),
		TimeoutMedium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
		TimeoutLong:   appValues.Duration("timeout_long", timeouts.DefaultLong),

		// SuperAdmin
		SuperAdminEmail:    appValues.String("superadmin_email"),
		SuperAdminPassword: appValues.String("superadmin_password"),
	}

	return coreCfg, appCfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The MongoDB URI is checked before any connection attempt, and settings
// that only make sense together are checked as a set.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.StoreBackend {
	case backendMongo:
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
	case backendMemory:
		logger.Warn("using in-memory store; data is lost on restart")
	default:
		return fmt.Errorf("store_backend must be %q or %q, got %q", backendMongo, backendMemory, appCfg.StoreBackend)
	}

	switch appCfg.NotifyMode {
	case notify.ModeDirect, notify.ModeLog:
	case notify.ModeQueue:
		if appCfg.RedisAddr == "" {
			return errors.New("notify_mode=queue requires redis_addr")
		}
	default:
		return fmt.Errorf("notify_mode must be direct, queue or log, got %q", appCfg.NotifyMode)
	}

	switch appCfg.AuditLog {
	case auditlog.ModeAll, auditlog.ModeDB, auditlog.ModeLog, auditlog.ModeOff:
	default:
		return fmt.Errorf("audit_log must be all, db, log or off, got %q", appCfg.AuditLog)
	}

	if coreCfg != nil && coreCfg.Env == "prod" && (appCfg.JWTSecret == devJWTSecret || len(appCfg.JWTSecret) < 32) {
		return errors.New("jwt_secret must be set to a strong value (32+ characters) in production")
	}
	if appCfg.SubmitRateLimit <= 0 {
		return errors.New("submit_rate_limit must be positive")
	}
	if appCfg.LoginRateLimit <= 0 || appCfg.LoginAccountLimit <= 0 || appCfg.LimitedSignInLimit <= 0 {
		return errors.New("login_rate_limit, login_account_limit and limited_signin_limit must be positive")
	}
	if appCfg.SuperAdminPassword != "" && len(appCfg.SuperAdminPassword) < passwords.MinLength {
		return fmt.Errorf("superadmin_password must be at least %d characters", passwords.MinLength)
	}
	if appCfg.ActivityFeedCap <= 0 {
		return errors.New("activity_feed_cap must be positive")
	}
	if appCfg.RequestRetention <= 0 || appCfg.ReclaimInterval <= 0 {
		return errors.New("request_retention and reclaim_interval must be positive")
	}
	if appCfg.AdminEmail == "" {
		logger.Warn("admin_email is not set; signup and removal submissions will not be announced")
	}
	return nil
}
