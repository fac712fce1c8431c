// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - Request body size limits
//
// Everything specific to jobhub lives here.
type AppConfig struct {
	// Store backend: "mongo" or "memory"
	StoreBackend string

	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Email/SMTP configuration
	MailSMTPHost string // SMTP server host (e.g., localhost for Mailpit)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string // SMTP username (empty for Mailpit)
	MailSMTPPass string // SMTP password
	MailFrom     string // From email address (e.g., noreply@jobhub.example)
	MailFromName string // From display name (e.g., JobHub)

	SiteName string // Shown in notification subjects and layout
	BaseURL  string // e.g., "https://jobhub.example" or "http://localhost:3000"

	// AdminEmail receives signup and removal submissions.
	AdminEmail string

	// Notification delivery: "direct" (SMTP from the web process), "queue"
	// (Redis, delivered by jobhub-worker) or "log".
	NotifyMode    string
	NotifyTimeout time.Duration
	RedisAddr     string
	RedisPassword string

	// API authentication
	JWTSecret   string
	TokenExpiry time.Duration

	CORSOrigins []string

	// SubmitRateLimit is the anonymous submissions allowed per IP per minute.
	SubmitRateLimit int

	// Sign-in throttling: attempts per IP per minute, attempts per account
	// per five minutes, and sign-ins per hour for limited accounts.
	LoginRateLimit     int
	LoginAccountLimit  int
	LimitedSignInLimit int

	// Activity feed
	AuditLog        string // "all", "db", "log" or "off"
	ActivityFeedCap int

	// Reclamation of resolved requests
	RequestRetention time.Duration
	ReclaimInterval  time.Duration

	// Operation timeouts used by handlers and jobs
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// SuperAdmin bootstrap. The password is applied only to an account that
	// has none.
	SuperAdminEmail    string
	SuperAdminPassword string
}
