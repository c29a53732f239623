package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"ledger/internal/mail"
	"ledger/internal/theme"
)

type Config struct {
	// HTTP Server
	Port string
	// TrustedProxies are extra CIDRs whose forwarded headers are believed.
	TrustedProxies []string
	CookieSecure   bool

	// Logging
	LogLevel  string
	LogFormat string

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleCacheTTL           time.Duration

	// Mail
	MailTransport   string
	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	MailFrom        string
	MailTo          string
	MailSendTimeout time.Duration
	// MailerMetricsAddr is where ledger-mailer serves /metrics; empty disables it.
	MailerMetricsAddr string

	RateLimitPerMinute int
	ThemeDefault       string
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),
		CookieSecure:   getEnvBool("COOKIE_SECURE", false),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledger.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "contact_mail"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleCacheTTL:           getEnvDuration("GOOGLE_SHEETS_CACHE_TTL", 30*time.Second),

		MailTransport:   getEnv("MAIL_TRANSPORT", mail.TransportLog),
		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        getEnvInt("SMTP_PORT", 587),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		MailFrom:        getEnv("MAIL_FROM", ""),
		MailTo:          getEnv("MAIL_TO", ""),
		MailSendTimeout: getEnvDuration("MAIL_SEND_TIMEOUT", 15*time.Second),

		MailerMetricsAddr: getEnv("MAILER_METRICS_ADDR", ""),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 10),
		ThemeDefault:       getEnv("THEME_DEFAULT", string(theme.Light)),
	}
}

// DefaultTheme returns ThemeDefault parsed, or light.
func (c *Config) DefaultTheme() theme.Theme {
	if t, ok := theme.Parse(c.ThemeDefault); ok {
		return t
	}
	return theme.Light
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sheets", "sqlite"}
	if !contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	validTransports := []string{mail.TransportSMTP, mail.TransportQueue, mail.TransportLog}
	switch {
	case !contains(validTransports, c.MailTransport):
		errors = append(errors, fmt.Sprintf("invalid mail transport '%s': must be one of %v", c.MailTransport, validTransports))
	case c.MailTransport == mail.TransportSMTP:
		errors = append(errors, c.validateSMTP()...)
	case c.MailTransport == mail.TransportQueue && c.AMQPURL == "":
		errors = append(errors, "AMQP URL is required when MAIL_TRANSPORT is queue")
	}

	if c.MailSendTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid mail send timeout %v: must be at least 1 second", c.MailSendTimeout))
	} else if c.MailSendTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid mail send timeout %v: must be at most 5 minutes", c.MailSendTimeout))
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if c.RateLimitPerMinute < 1 || c.RateLimitPerMinute > 10000 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be between 1 and 10000 requests per minute", c.RateLimitPerMinute))
	}

	if _, ok := theme.Parse(c.ThemeDefault); !ok {
		errors = append(errors, fmt.Sprintf("invalid default theme '%s': must be light or dark", c.ThemeDefault))
	}

	for _, cidr := range c.TrustedProxies {
		if err := validate.Var(cidr, "cidr"); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateMailer checks only what the mail worker needs: an AMQP source and
// an SMTP relay.
func (c *Config) ValidateMailer() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required for the mail worker")
	}
	errors = append(errors, c.validateSMTP()...)
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

var validate = validator.New()

func (c *Config) validateSMTP() []string {
	var errors []string
	if c.SMTPHost == "" {
		errors = append(errors, "SMTP host is required when MAIL_TRANSPORT is smtp")
	}
	if c.SMTPPort < 1 || c.SMTPPort > 65535 {
		errors = append(errors, fmt.Sprintf("invalid SMTP port %d: must be between 1 and 65535", c.SMTPPort))
	}
	for name, addr := range map[string]string{"MAIL_FROM": c.MailFrom, "MAIL_TO": c.MailTo} {
		if err := validate.Var(addr, "required,email"); err != nil {
			errors = append(errors, fmt.Sprintf("%s must be a valid email address, got '%s'", name, addr))
		}
	}
	sortStrings(errors)
	return errors
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// sortStrings keeps map-derived messages in a stable order.
func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
