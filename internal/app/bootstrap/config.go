// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for clanhub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: CLANHUB_MONGO_URI, CLANHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "clanhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "clanhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime (e.g., 720h)"},

	// File storage configuration
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage path for uploaded files"},
	{Name: "storage_local_url", Default: "/files", Desc: "URL prefix for serving local files"},

	// S3 configuration
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "uploads/", Desc: "S3 key prefix"},
	{Name: "storage_s3_endpoint", Default: "", Desc: "Custom S3 endpoint (MinIO etc.)"},
	{Name: "storage_s3_public_url", Default: "", Desc: "Public base URL for stored objects"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host (blank logs mail instead)"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@clanhub.gg", Desc: "From email address"},
	{Name: "mail_from_name", Default: "ClanHub", Desc: "From display name"},

	// Links in email
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL of the web client, used in email links"},
	{Name: "site_name", Default: "ClanHub", Desc: "Site name used in email"},

	// Password reset
	{Name: "reset_token_secret", Default: "", Desc: "HMAC secret for password reset tokens (required in prod)"},
	{Name: "reset_token_ttl", Default: "30m", Desc: "Password reset link lifetime"},

	// CORS
	{Name: "cors_allowed_origins", Default: "http://localhost:3000", Desc: "Comma-separated browser origins allowed to call the API"},

	// Constitution builder
	{Name: "genai_project", Default: "", Desc: "Google Cloud project for Vertex AI (blank disables the constitution builder)"},
	{Name: "genai_location", Default: "us-central1", Desc: "Vertex AI location"},
	{Name: "genai_model", Default: "gemini-2.0-flash", Desc: "Vertex AI model"},

	// Sign-in throttling
	{Name: "signin_rate_per_minute", Default: 10, Desc: "Sign-in attempts allowed per minute per client IP and per email"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Creator bootstrap
	{Name: "creator_email", Default: "", Desc: "Email of the site Creator (promoted or created on startup)"},
	{Name: "creator_password", Default: "", Desc: "Initial Creator password when the account is created"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, CLANHUB_* for app) and flags,
// merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CLANHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 30*24*time.Hour),

		// File storage
		StorageType:      appValues.String("storage_type"),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageLocalURL:  appValues.String("storage_local_url"),

		// S3
		StorageS3Region:    appValues.String("storage_s3_region"),
		StorageS3Bucket:    appValues.String("storage_s3_bucket"),
		StorageS3Prefix:    appValues.String("storage_s3_prefix"),
		StorageS3Endpoint:  appValues.String("storage_s3_endpoint"),
		StorageS3PublicURL: appValues.String("storage_s3_public_url"),

		// Email/SMTP
		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		BaseURL:  strings.TrimRight(appValues.String("base_url"), "/"),
		SiteName: appValues.String("site_name"),

		ResetTokenSecret: appValues.String("reset_token_secret"),
		ResetTokenTTL:    appValues.Duration("reset_token_ttl", 30*time.Minute),

		CORSAllowedOrigins: splitList(appValues.String("cors_allowed_origins")),

		GenAIProject:  appValues.String("genai_project"),
		GenAILocation: appValues.String("genai_location"),
		GenAIModel:    appValues.String("genai_model"),

		SigninRatePerMinute: appValues.Int("signin_rate_per_minute"),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		CreatorEmail:    appValues.String("creator_email"),
		CreatorPassword: appValues.String("creator_password"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	switch appCfg.StorageType {
	case "local":
	case "s3":
		if appCfg.StorageS3Bucket == "" {
			return fmt.Errorf("storage_type=s3 requires storage_s3_bucket")
		}
	default:
		return fmt.Errorf("storage_type must be 'local' or 's3', got %q", appCfg.StorageType)
	}

	if appCfg.ResetTokenSecret == "" {
		if coreCfg.Env == "prod" {
			return fmt.Errorf("reset_token_secret is required in production")
		}
		logger.Warn("reset_token_secret is empty; password reset links use the session key")
	}

	for _, v := range []string{appCfg.AuditLogAuth, appCfg.AuditLogAdmin} {
		switch v {
		case "all", "db", "log", "off":
		default:
			return fmt.Errorf("audit log mode must be all, db, log or off, got %q", v)
		}
	}

	if appCfg.SigninRatePerMinute <= 0 {
		return fmt.Errorf("signin_rate_per_minute must be positive")
	}
	return nil
}

// splitList parses a comma-separated config value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
