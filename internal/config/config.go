package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	MailDriverSMTP = "smtp"
	MailDriverLog  = "log"
)

type Config struct {
	ListenAddr string
	BaseURL    string
	Store      string

	DB struct {
		DSN     string
		Migrate bool
	}

	SMTP struct {
		Host     string
		Port     int
		Secure   bool
		Username string
		Password string
	}

	Mail struct {
		Driver string
		From   string
		Owner  string
	}

	Business struct {
		Name            string
		DefaultTimezone string
	}

	Log struct {
		Level  string
		Format string
	}

	PrometheusEnabled bool
	TrustedProxies    []string
}

// env mirrors the process environment. Tags are full variable names so no
// prefixing or fallback lookup applies.
type env struct {
	ListenAddr string `envconfig:"APP_LISTEN_ADDR" default:":8080"`
	BaseURL    string `envconfig:"APP_BASE_URL" default:"http://localhost:8080"`
	Store      string `envconfig:"APP_STORE" default:"postgres"`

	DBDSN      string `envconfig:"APP_DB_DSN"`
	DBHost     string `envconfig:"APP_DB_HOST"`
	DBName     string `envconfig:"APP_DB_NAME"`
	DBUser     string `envconfig:"APP_DB_USER"`
	DBPassword string `envconfig:"APP_DB_PASSWORD"`
	DBPort     string `envconfig:"APP_DB_PORT" default:"5432"`
	DBSSLMode  string `envconfig:"APP_DB_SSLMODE" default:"disable"`
	DBMigrate  bool   `envconfig:"APP_DB_MIGRATE" default:"true"`

	SMTPHost   string `envconfig:"SMTP_HOST"`
	SMTPPort   int    `envconfig:"SMTP_PORT" default:"465"`
	SMTPSecure bool   `envconfig:"SMTP_SECURE" default:"true"`
	SMTPUser   string `envconfig:"SMTP_USER"`
	SMTPPass   string `envconfig:"SMTP_PASS"`
	MailFrom   string `envconfig:"MAIL_FROM"`
	OwnerEmail string `envconfig:"OWNER_EMAIL"`
	MailDriver string `envconfig:"APP_MAIL_DRIVER" default:"smtp"`

	BusinessName    string `envconfig:"APP_BUSINESS_NAME" default:"Saadia Henna Art"`
	DefaultTimezone string `envconfig:"APP_DEFAULT_TIMEZONE" default:"America/Vancouver"`

	LogLevel  string `envconfig:"APP_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"APP_LOG_FORMAT" default:"text"`

	PrometheusEnabled bool     `envconfig:"APP_PROMETHEUS_ENDPOINT_ENABLED" default:"false"`
	TrustedProxies    []string `envconfig:"APP_TRUSTED_PROXIES"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	var e env
	if err := envconfig.Process("", &e); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	cfg := &Config{}
	cfg.ListenAddr = e.ListenAddr
	cfg.BaseURL = strings.TrimRight(e.BaseURL, "/")
	cfg.Store = strings.ToLower(strings.TrimSpace(e.Store))

	cfg.DB.DSN = e.DBDSN
	if cfg.DB.DSN == "" && e.DBHost != "" && e.DBName != "" && e.DBUser != "" && e.DBPassword != "" {
		cfg.DB.DSN = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			url.QueryEscape(e.DBUser), url.QueryEscape(e.DBPassword), e.DBHost, e.DBPort, e.DBName, e.DBSSLMode)
	}
	cfg.DB.Migrate = e.DBMigrate

	cfg.SMTP.Host = e.SMTPHost
	cfg.SMTP.Port = e.SMTPPort
	cfg.SMTP.Secure = e.SMTPSecure
	cfg.SMTP.Username = e.SMTPUser
	cfg.SMTP.Password = e.SMTPPass

	cfg.Mail.Driver = strings.ToLower(strings.TrimSpace(e.MailDriver))
	cfg.Mail.From = firstNonEmpty(e.MailFrom, e.SMTPUser)
	cfg.Mail.Owner = firstNonEmpty(e.OwnerEmail, e.SMTPUser)

	cfg.Business.Name = strings.TrimSpace(e.BusinessName)
	cfg.Business.DefaultTimezone = e.DefaultTimezone

	cfg.Log.Level = e.LogLevel
	cfg.Log.Format = e.LogFormat

	cfg.PrometheusEnabled = e.PrometheusEnabled
	for _, p := range e.TrustedProxies {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			cfg.TrustedProxies = append(cfg.TrustedProxies, trimmed)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DB.DSN == "" {
			return errors.New("APP_DB_DSN is required (or set APP_DB_HOST, APP_DB_NAME, APP_DB_USER, and APP_DB_PASSWORD)")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("APP_STORE must be %q or %q (got %q)", StorePostgres, StoreMemory, c.Store)
	}

	switch c.Mail.Driver {
	case MailDriverSMTP:
		if c.SMTP.Host == "" {
			return errors.New("SMTP_HOST is required when APP_MAIL_DRIVER=smtp")
		}
		if c.Mail.From == "" || c.Mail.Owner == "" {
			return errors.New("MAIL_FROM and OWNER_EMAIL are required when SMTP_USER is not set")
		}
	case MailDriverLog:
		c.Mail.From = firstNonEmpty(c.Mail.From, "bookings@localhost")
		c.Mail.Owner = firstNonEmpty(c.Mail.Owner, "owner@localhost")
	default:
		return fmt.Errorf("APP_MAIL_DRIVER must be %q or %q (got %q)", MailDriverSMTP, MailDriverLog, c.Mail.Driver)
	}

	if c.Business.Name == "" {
		return errors.New("APP_BUSINESS_NAME must not be empty")
	}
	if _, err := time.LoadLocation(c.Business.DefaultTimezone); err != nil {
		return fmt.Errorf("APP_DEFAULT_TIMEZONE: %w", err)
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("APP_BASE_URL: %w", err)
	}
	return nil
}

// Warnings lists settings that are accepted but not recommended.
func (c *Config) Warnings() []string {
	var warnings []string
	if len(c.TrustedProxies) == 0 {
		warnings = append(warnings, "no APP_TRUSTED_PROXIES configured; forwarded client addresses are trusted from any peer")
	}
	if c.Store == StoreMemory {
		warnings = append(warnings, "APP_STORE=memory keeps bookings in process memory only")
	}
	if c.Mail.Driver == MailDriverLog {
		warnings = append(warnings, "APP_MAIL_DRIVER=log writes emails to the log instead of sending them")
	}
	return warnings
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
