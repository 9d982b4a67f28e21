package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// envPrefix namespaces every variable read by parseEnv.
const envPrefix = "SAYTHANKS_"

// legacyEnv maps variable names used by earlier deployments onto their
// prefixed equivalents. The prefixed name wins when both are set.
var legacyEnv = map[string]string{
	"DATABASE_URL":       "DATABASE_DSN",
	"AUTH0_DOMAIN":       "AUTH0_DOMAIN",
	"AUTH0_JWT_V2_TOKEN": "AUTH0_TOKEN",
}

// parseEnv loads envFile (if present) into the process environment without
// overriding variables that are already set, then copies recognised
// variables into config.
func parseEnv(config *Config, envFile string) error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
		}
	}

	lookup := func(name string) (string, bool) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			return v, true
		}
		for legacy, mapped := range legacyEnv {
			if mapped == name {
				if v, ok := os.LookupEnv(legacy); ok {
					return v, true
				}
			}
		}
		return "", false
	}

	strs := map[string]*string{
		"DATABASE_DSN":     &config.DatabaseDSN,
		"AUTH0_DOMAIN":     &config.Auth0Domain,
		"AUTH0_TOKEN":      &config.Auth0Token,
		"ID_TOKEN_SECRET":  &config.IDTokenSecret,
		"SMTP_HOST":        &config.SMTPHost,
		"SMTP_USER":        &config.SMTPUser,
		"SMTP_PASSWORD":    &config.SMTPPassword,
		"MAIL_FROM":        &config.MailFrom,
		"S3_ROOT_USER":     &config.S3RootUser,
		"S3_ROOT_PASSWORD": &config.S3RootPassword,
		"S3_BUCKET":        &config.S3Bucket,
		"S3_REGION":        &config.S3Region,
		"S3_BASE_ENDPOINT": &config.S3BaseEndpoint,
		"LOG_BACKEND":      &config.LogBackend,
		"LOG_FORMAT":       &config.LogFormat,
		"LOG_LEVEL":        &config.LogLevel,
		"METRICS_TEXTFILE": &config.MetricsTextfile,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}

	if v, ok := lookup("SMTP_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sSMTP_PORT: %w", envPrefix, err)
		}
		config.SMTPPort = port
	}
	if v, ok := lookup("SMTP_RATE_LIMIT"); ok {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sSMTP_RATE_LIMIT: %w", envPrefix, err)
		}
		config.SMTPRateLimit = r
	}
	if v, ok := lookup("MIGRATE_ON_START"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sMIGRATE_ON_START: %w", envPrefix, err)
		}
		config.MigrateOnStart = b
	}
	if v, ok := lookup("AUDIO_URL_VALIDITY_DURATION"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sAUDIO_URL_VALIDITY_DURATION: %w", envPrefix, err)
		}
		config.AudioURLValidityDuration = d
	}
	return nil
}
