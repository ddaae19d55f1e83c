// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (CLANHUB_*), configuration
// files, or command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig
// covers ports, TLS, logging and request limits; everything specific to
// the clan site lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name (default: clanhub-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// File storage configuration
	StorageType      string // "local" or "s3"
	StorageLocalPath string // e.g. ./uploads
	StorageLocalURL  string // URL prefix local files are served under, e.g. /files

	// S3 configuration (only used if StorageType is "s3")
	StorageS3Region    string
	StorageS3Bucket    string
	StorageS3Prefix    string
	StorageS3Endpoint  string // S3-compatible server (MinIO); blank for AWS
	StorageS3PublicURL string // CDN or bucket URL objects are read from

	// Email/SMTP configuration (blank host logs mail instead of sending)
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	// Base URL for links in email (password reset)
	BaseURL  string
	SiteName string

	// Password reset
	ResetTokenSecret string
	ResetTokenTTL    time.Duration

	// Browser origins allowed to call the API with credentials
	CORSAllowedOrigins []string

	// Constitution builder (Vertex AI). Blank project disables it.
	GenAIProject  string
	GenAILocation string
	GenAIModel    string

	// Sign-in throttling
	SigninRatePerMinute int

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth  string
	AuditLogAdmin string

	// Creator bootstrap
	CreatorEmail    string // promoted or created on startup
	CreatorPassword string // used only when the account is created
}
