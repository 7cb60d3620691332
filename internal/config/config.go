package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when read from the environment,
// e.g. TUTOR_MONGO_URI for mongo_uri.
const EnvPrefix = "TUTOR"

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	MailConsole  = "console"
	MailSendgrid = "sendgrid"
)

type Config struct {
	APIPort string

	StoreDriver   string
	MongoURI      string
	MongoDatabase string

	JWTSecret    string
	JWTTTL       time.Duration
	CookieName   string
	CookieSecure bool
	CORSOrigins  []string

	OTPTTL time.Duration

	MailDriver     string
	SendgridAPIKey string
	MailFrom       string
	MailFromName   string
	TextbeltAPIKey string

	AdminEmail    string
	AdminPassword string

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string

	AuthRateLimit  int
	AuthRateWindow time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_port", "8080")
	v.SetDefault("store_driver", StoreMongo)
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_database", "tutoring")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_ttl", 24*time.Hour)
	v.SetDefault("cookie_name", "token")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("cors_origins", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("otp_ttl", 5*time.Minute)
	v.SetDefault("mail_driver", MailConsole)
	v.SetDefault("sendgrid_api_key", "")
	v.SetDefault("mail_from", "noreply@localhost")
	v.SetDefault("mail_from_name", "Tutor Hub")
	v.SetDefault("textbelt_api_key", "")
	v.SetDefault("admin_email", "")
	v.SetDefault("admin_password", "")
	v.SetDefault("request_timeout", 10*time.Second)
	v.SetDefault("shutdown_timeout", 15*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("auth_rate_limit", 10)
	v.SetDefault("auth_rate_window", time.Minute)
}

// Load reads .env (if present), then the environment, on top of defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// FromViper builds and validates a Config from an already populated viper
// instance. Tests use it to avoid touching the process environment.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		APIPort:         v.GetString("api_port"),
		StoreDriver:     strings.ToLower(v.GetString("store_driver")),
		MongoURI:        v.GetString("mongo_uri"),
		MongoDatabase:   v.GetString("mongo_database"),
		JWTSecret:       v.GetString("jwt_secret"),
		JWTTTL:          v.GetDuration("jwt_ttl"),
		CookieName:      v.GetString("cookie_name"),
		CookieSecure:    v.GetBool("cookie_secure"),
		CORSOrigins:     splitList(v.GetString("cors_origins")),
		OTPTTL:          v.GetDuration("otp_ttl"),
		MailDriver:      strings.ToLower(v.GetString("mail_driver")),
		SendgridAPIKey:  v.GetString("sendgrid_api_key"),
		MailFrom:        v.GetString("mail_from"),
		MailFromName:    v.GetString("mail_from_name"),
		TextbeltAPIKey:  v.GetString("textbelt_api_key"),
		AdminEmail:      strings.ToLower(strings.TrimSpace(v.GetString("admin_email"))),
		AdminPassword:   v.GetString("admin_password"),
		RequestTimeout:  v.GetDuration("request_timeout"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		AuthRateLimit:   v.GetInt("auth_rate_limit"),
		AuthRateWindow:  v.GetDuration("auth_rate_window"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at request time.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return errors.New("config: mongo_uri and mongo_database are required for the mongo store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("config: unknown store_driver %q", c.StoreDriver)
	}

	if c.JWTSecret == "" {
		if c.StoreDriver != StoreMemory {
			return errors.New("config: jwt_secret is required")
		}
		c.JWTSecret = "dev-only-insecure-secret"
	}
	if c.JWTTTL <= 0 {
		return errors.New("config: jwt_ttl must be positive")
	}
	if c.OTPTTL <= 0 {
		return errors.New("config: otp_ttl must be positive")
	}

	switch c.MailDriver {
	case MailConsole:
	case MailSendgrid:
		if c.SendgridAPIKey == "" {
			return errors.New("config: sendgrid_api_key is required for the sendgrid mail driver")
		}
	default:
		return fmt.Errorf("config: unknown mail_driver %q", c.MailDriver)
	}

	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return errors.New("config: admin_email and admin_password must be set together")
	}
	if c.AuthRateLimit <= 0 || c.AuthRateWindow <= 0 {
		return errors.New("config: auth_rate_limit and auth_rate_window must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
