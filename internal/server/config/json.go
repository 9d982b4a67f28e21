package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/saythanks/saythanks/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "15m" and integer nanoseconds.
//
// Pointer fields distinguish "absent" from "zero" so a partial file only
// overrides the keys it names.
type JsonConfig struct {
	DatabaseDSN              *string         `json:"database_dsn"`
	MigrateOnStart           *bool           `json:"migrate_on_start"`
	Auth0Domain              *string         `json:"auth0_domain"`
	Auth0Token               *string         `json:"auth0_token"`
	IDTokenSecret            *string         `json:"id_token_secret"`
	SMTPHost                 *string         `json:"smtp_host"`
	SMTPPort                 *int            `json:"smtp_port"`
	SMTPUser                 *string         `json:"smtp_user"`
	SMTPPassword             *string         `json:"smtp_password"`
	MailFrom                 *string         `json:"mail_from"`
	SMTPRateLimit            *float64        `json:"smtp_rate_limit"`
	S3RootUser               *string         `json:"s3_root_user"`
	S3RootPassword           *string         `json:"s3_root_password"`
	S3Bucket                 *string         `json:"s3_bucket"`
	S3Region                 *string         `json:"s3_region"`
	S3BaseEndpoint           *string         `json:"s3_base_endpoint"`
	AudioURLValidityDuration *timex.Duration `json:"audio_url_validity_duration"`
	LogBackend               *string         `json:"log_backend"`
	LogFormat                *string         `json:"log_format"`
	LogLevel                 *string         `json:"log_level"`
	MetricsTextfile          *string         `json:"metrics_textfile"`
}

// parseJson loads configuration values from the JSON file at path into the
// provided Config instance. An empty path loads nothing.
func parseJson(config *Config, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.DatabaseDSN, c.DatabaseDSN)
	if c.MigrateOnStart != nil {
		config.MigrateOnStart = *c.MigrateOnStart
	}
	setString(&config.Auth0Domain, c.Auth0Domain)
	setString(&config.Auth0Token, c.Auth0Token)
	setString(&config.IDTokenSecret, c.IDTokenSecret)
	setString(&config.SMTPHost, c.SMTPHost)
	if c.SMTPPort != nil {
		config.SMTPPort = *c.SMTPPort
	}
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.MailFrom, c.MailFrom)
	if c.SMTPRateLimit != nil {
		config.SMTPRateLimit = *c.SMTPRateLimit
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.AudioURLValidityDuration != nil {
		config.AudioURLValidityDuration = c.AudioURLValidityDuration.Duration
	}
	setString(&config.LogBackend, c.LogBackend)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.MetricsTextfile, c.MetricsTextfile)
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
