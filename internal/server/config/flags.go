package config

import (
	"time"

	"github.com/spf13/pflag"
)

const flagConfig = "config"

// RegisterFlags declares every configuration flag on fs. Help text shows
// the built-in defaults; only flags the user sets override other sources.
//
// Supported flags (short forms where available):
//
//	-c, --config string          JSON config file
//	-d, --database-dsn string    PostgreSQL DSN
//	    --migrate                apply migrations on start
//	    --auth0-domain string    Auth0 tenant domain
//	    --auth0-token string     Auth0 management API token
//	    --id-token-secret string HS256 secret for ID tokens
//	    --smtp-host/--smtp-port/--smtp-user/--smtp-password/--mail-from
//	    --smtp-rate float            messages per second, 0 = unlimited
//	    --s3-user/--s3-password/--s3-bucket/--s3-region/--s3-endpoint
//	    --audio-url-ttl int      presigned voice-note link lifetime, minutes
//	    --log-backend/--log-format/--log-level
//	    --metrics-textfile string    write counters here on exit
func RegisterFlags(fs *pflag.FlagSet) {
	d := &Config{}
	d.LoadDefaults()

	fs.StringP(flagConfig, "c", "", "path to JSON config file")
	fs.StringP("database-dsn", "d", d.DatabaseDSN, "database DSN")
	fs.Bool("migrate", d.MigrateOnStart, "apply pending migrations on start")
	fs.String("auth0-domain", d.Auth0Domain, "Auth0 tenant domain")
	fs.String("auth0-token", d.Auth0Token, "Auth0 management API token")
	fs.String("id-token-secret", d.IDTokenSecret, "HS256 secret for ID tokens")
	fs.String("smtp-host", d.SMTPHost, "SMTP host")
	fs.Int("smtp-port", d.SMTPPort, "SMTP port")
	fs.String("smtp-user", d.SMTPUser, "SMTP user")
	fs.String("smtp-password", d.SMTPPassword, "SMTP password")
	fs.String("mail-from", d.MailFrom, "sender address for notifications")
	fs.Float64("smtp-rate", d.SMTPRateLimit, "max notification emails per second (0 = unlimited)")
	fs.String("s3-user", d.S3RootUser, "S3 root user")
	fs.String("s3-password", d.S3RootPassword, "S3 root password")
	fs.String("s3-bucket", d.S3Bucket, "S3 bucket for voice notes")
	fs.String("s3-region", d.S3Region, "S3 region")
	fs.String("s3-endpoint", d.S3BaseEndpoint, "S3 base endpoint")
	fs.Int("audio-url-ttl", int(d.AudioURLValidityDuration.Minutes()), "voice-note link validity (in minutes)")
	fs.String("log-backend", d.LogBackend, "log backend: slog or zerolog")
	fs.String("log-format", d.LogFormat, "log format: auto, json or text")
	fs.String("log-level", d.LogLevel, "log level: debug, info, warn, error")
	fs.String("metrics-textfile", d.MetricsTextfile, "write Prometheus counters to this file on exit")
}

// parseFlags copies the flags the user explicitly set on fs into config.
func parseFlags(config *Config, fs *pflag.FlagSet) error {
	var err error
	str := func(name string, dst *string) {
		if err != nil || !fs.Changed(name) {
			return
		}
		*dst, err = fs.GetString(name)
	}
	integer := func(name string, dst *int) {
		if err != nil || !fs.Changed(name) {
			return
		}
		*dst, err = fs.GetInt(name)
	}

	str("database-dsn", &config.DatabaseDSN)
	if err == nil && fs.Changed("migrate") {
		config.MigrateOnStart, err = fs.GetBool("migrate")
	}
	str("auth0-domain", &config.Auth0Domain)
	str("auth0-token", &config.Auth0Token)
	str("id-token-secret", &config.IDTokenSecret)
	str("smtp-host", &config.SMTPHost)
	integer("smtp-port", &config.SMTPPort)
	str("smtp-user", &config.SMTPUser)
	str("smtp-password", &config.SMTPPassword)
	str("mail-from", &config.MailFrom)
	if err == nil && fs.Changed("smtp-rate") {
		config.SMTPRateLimit, err = fs.GetFloat64("smtp-rate")
	}
	str("s3-user", &config.S3RootUser)
	str("s3-password", &config.S3RootPassword)
	str("s3-bucket", &config.S3Bucket)
	str("s3-region", &config.S3Region)
	str("s3-endpoint", &config.S3BaseEndpoint)

	var ttl int
	integer("audio-url-ttl", &ttl)
	if err == nil && fs.Changed("audio-url-ttl") {
		config.AudioURLValidityDuration = time.Duration(ttl) * time.Minute
	}

	str("log-backend", &config.LogBackend)
	str("log-format", &config.LogFormat)
	str("log-level", &config.LogLevel)
	str("metrics-textfile", &config.MetricsTextfile)
	return err
}
