package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all the configuration for the application.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Session      SessionConfig
	Verification VerificationConfig
	App          AppConfig
	SMTP         SMTPConfig
	Events       EventsConfig
	Google       GoogleConfig
}

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

// DatabaseConfig holds the database configuration.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// RedisConfig holds the Redis configuration.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// JWTConfig controls signing of access and refresh tokens.
// Access and refresh tokens are signed with different secrets so one can never be replayed as the other.
type JWTConfig struct {
	AccessSecret  string        `mapstructure:"accesssecret"`
	RefreshSecret string        `mapstructure:"refreshsecret"`
	Issuer        string        `mapstructure:"issuer"`
	AccessTTL     time.Duration `mapstructure:"accessttl"`
	RefreshTTL    time.Duration `mapstructure:"refreshttl"`
}

// SessionConfig controls the absolute lifetime of a login session.
type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// VerificationConfig controls email verification resend abuse limits.
type VerificationConfig struct {
	ResendCooldownSeconds int `mapstructure:"resendcooldownseconds"`
}

// AppConfig holds public facing values used in outbound emails.
type AppConfig struct {
	Name         string `mapstructure:"name"`
	BaseURL      string `mapstructure:"baseurl"`
	SupportEmail string `mapstructure:"supportemail"`
	// TemplateDir overrides the embedded email templates. Reparsed on every send in development.
	TemplateDir string `mapstructure:"templatedir"`
}

type SMTPConfig struct {
	From     string `mapstructure:"from"`
	Password string `mapstructure:"password"`
	Username string `mapstructure:"username"`
	Port     int    `mapstructure:"port"`
	Host     string `mapstructure:"host"`
}

// EventsConfig selects the event publisher backend: "log", "kafka" or "rabbitmq".
type EventsConfig struct {
	Driver         string `mapstructure:"driver"`
	KafkaBrokers   string `mapstructure:"kafkabrokers"`
	KafkaTopic     string `mapstructure:"kafkatopic"`
	RabbitURL      string `mapstructure:"rabbiturl"`
	RabbitExchange string `mapstructure:"rabbitexchange"`
}

// Brokers returns the comma separated Kafka broker list as a slice.
func (e EventsConfig) Brokers() []string {
	var out []string
	for _, b := range strings.Split(e.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

type GoogleConfig struct {
	ClientID     string `mapstructure:"clientid"`
	ClientSecret string `mapstructure:"clientsecret"`
	RedirectURL  string `mapstructure:"redirecturl"`
}

var envBindings = map[string]string{
	"server.port":                        "SERVER_PORT",
	"server.env":                         "SERVER_ENV",
	"database.url":                       "DATABASE_URL",
	"redis.url":                          "REDIS_URL",
	"jwt.accesssecret":                   "JWT_ACCESS_SECRET",
	"jwt.refreshsecret":                  "JWT_REFRESH_SECRET",
	"jwt.issuer":                         "JWT_ISSUER",
	"jwt.accessttl":                      "JWT_ACCESS_TTL",
	"jwt.refreshttl":                     "JWT_REFRESH_TTL",
	"session.ttl":                        "SESSION_TTL",
	"verification.resendcooldownseconds": "VERIFICATION_RESEND_COOLDOWN_SECONDS",
	"app.name":                           "APP_NAME",
	"app.baseurl":                        "APP_BASE_URL",
	"app.supportemail":                   "APP_SUPPORT_EMAIL",
	"app.templatedir":                    "APP_TEMPLATE_DIR",
	"smtp.host":                          "SMTP_HOST",
	"smtp.port":                          "SMTP_PORT",
	"smtp.username":                      "SMTP_USERNAME",
	"smtp.password":                      "SMTP_PASSWORD",
	"smtp.from":                          "SMTP_FROM",
	"events.driver":                      "EVENTS_DRIVER",
	"events.kafkabrokers":                "EVENTS_KAFKA_BROKERS",
	"events.kafkatopic":                  "EVENTS_KAFKA_TOPIC",
	"events.rabbiturl":                   "EVENTS_RABBIT_URL",
	"events.rabbitexchange":              "EVENTS_RABBIT_EXCHANGE",
	"google.clientid":                    "GOOGLE_CLIENT_ID",
	"google.clientsecret":                "GOOGLE_CLIENT_SECRET",
	"google.redirecturl":                 "GOOGLE_REDIRECT_URL",
}

// Load creates a new Config object from the .env file and environment variables.
// It returns nil when the configuration cannot be decoded.
func Load() *Config {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Load .env into process environment for BindEnv to work with file-based envs
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️ godotenv could not load .env: %v", err)
	} else {
		log.Printf("ℹ️ .env loaded into process environment via godotenv")
	}

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	if err := v.ReadInConfig(); err != nil {
		// We can still proceed if all config is set via environment variables.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("❌ Error reading config file: %s", err)
			return nil
		}
		log.Printf("⚠️ .env file not found, relying on environment variables")
	} else {
		log.Printf("ℹ️ Using config file: %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Printf("❌ Unable to decode config into struct: %v", err)
		return nil
	}

	cfg.applyDefaults()

	log.Printf("🔎 Config after Unmarshal: Server.Port=%q Server.Env=%q Events.Driver=%q JWTSecretEmpty=%t",
		cfg.Server.Port,
		cfg.Server.Env,
		cfg.Events.Driver,
		cfg.JWT.AccessSecret == "",
	)
	log.Println("✅ Configuration loaded successfully")
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "go-identity-core"
	}
	if c.JWT.AccessTTL <= 0 {
		c.JWT.AccessTTL = 15 * time.Minute
	}
	if c.JWT.RefreshTTL <= 0 {
		c.JWT.RefreshTTL = 7 * 24 * time.Hour
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = 7 * 24 * time.Hour
	}
	if c.Verification.ResendCooldownSeconds <= 0 {
		c.Verification.ResendCooldownSeconds = 60
	}
	if c.App.Name == "" {
		c.App.Name = "Identity"
	}
	if c.App.SupportEmail == "" {
		c.App.SupportEmail = c.SMTP.From
	}
	if c.Events.Driver == "" {
		c.Events.Driver = "log"
	}
	if c.Events.KafkaTopic == "" {
		c.Events.KafkaTopic = "identity.events"
	}
	if c.Events.RabbitExchange == "" {
		c.Events.RabbitExchange = "identity.events"
	}
}
