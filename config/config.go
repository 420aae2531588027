// config/config.go
package config

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Environment     string
	Port            string
	Version         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string

	DatabaseURL  string
	DatabaseName string
	RedisURL     string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration
	SOSRateLimit      int
	SOSRateWindow     time.Duration

	// Firebase
	FirebaseCredentials string

	// Twilio
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	// SMTP
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	// NATS; empty URL logs events instead of publishing them
	NATSURL     string
	NATSSubject string

	Safety       SafetyConfig
	Coordination CoordinationConfig

	ResponderRadiusMeters float64
	ResponderLimit        int
	DigitalIDValidity     time.Duration
	ZoneReloadInterval    time.Duration
	LocationRetention     time.Duration
	InactivityQuietPeriod time.Duration
	SeedDemoData          bool
}

// SafetyConfig tunes the scorer and the location pipeline.
type SafetyConfig struct {
	Timezone            string
	InactivityThreshold time.Duration
	RecentAlertCap      int
	RecentAlertWindow   time.Duration
	HistoryWindow       time.Duration
	SpeedThreshold      float64
}

// CoordinationConfig sizes the SOS workflow pool and its outbound calls.
type CoordinationConfig struct {
	Workers      int
	QueueSize    int
	JobTimeout   time.Duration
	JobRetries   int
	CallTimeout  time.Duration
	SendAttempts int
	RetryDelay   time.Duration
}

func Load() *Config {
	return &Config{
		Environment:     getEnv("ENVIRONMENT", "development"),
		Port:            getEnv("PORT", "8080"),
		Version:         getEnv("APP_VERSION", "1.0.0"),
		ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
		ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		AllowedOrigins:  getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),

		DatabaseURL:  getEnv("DATABASE_URL", "mongodb://localhost:27017"),
		DatabaseName: getEnv("DATABASE_NAME", "tourist_safety"),
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379"),

		JWTSecret:       getEnv("JWT_SECRET", "change-me-in-production"),
		AccessTokenTTL:  getEnvAsDuration("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvAsDuration("JWT_REFRESH_TTL", 7*24*time.Hour),

		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		SOSRateLimit:      getEnvAsInt("SOS_RATE_LIMIT", 3),
		SOSRateWindow:     getEnvAsDuration("SOS_RATE_WINDOW", 5*time.Minute),

		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),

		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber: getEnv("TWILIO_PHONE_NUMBER", ""),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "alerts@touristsafety.app"),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "Tourist Safety"),

		NATSURL:     getEnv("NATS_URL", ""),
		NATSSubject: getEnv("NATS_SUBJECT_PREFIX", "alerts"),

		Safety: SafetyConfig{
			Timezone:            getEnv("SAFETY_TIMEZONE", "Local"),
			InactivityThreshold: getEnvAsDuration("SAFETY_INACTIVITY_THRESHOLD", 30*time.Minute),
			RecentAlertCap:      getEnvAsInt("SAFETY_RECENT_ALERT_CAP", 5),
			RecentAlertWindow:   getEnvAsDuration("SAFETY_RECENT_ALERT_WINDOW", 24*time.Hour),
			HistoryWindow:       getEnvAsDuration("SAFETY_HISTORY_WINDOW", 6*time.Hour),
			SpeedThreshold:      getEnvAsFloat("SAFETY_SPEED_THRESHOLD", 20),
		},
		Coordination: CoordinationConfig{
			Workers:      getEnvAsInt("COORDINATION_WORKERS", 4),
			QueueSize:    getEnvAsInt("COORDINATION_QUEUE_SIZE", 256),
			JobTimeout:   getEnvAsDuration("COORDINATION_JOB_TIMEOUT", 2*time.Minute),
			JobRetries:   getEnvAsInt("COORDINATION_JOB_RETRIES", 2),
			CallTimeout:  getEnvAsDuration("COORDINATION_CALL_TIMEOUT", 10*time.Second),
			SendAttempts: getEnvAsInt("COORDINATION_SEND_ATTEMPTS", 2),
			RetryDelay:   getEnvAsDuration("COORDINATION_RETRY_DELAY", 500*time.Millisecond),
		},

		ResponderRadiusMeters: getEnvAsFloat("RESPONDER_RADIUS_METERS", 5000),
		ResponderLimit:        getEnvAsInt("RESPONDER_LIMIT", 3),
		DigitalIDValidity:     getEnvAsDuration("DIGITAL_ID_VALIDITY", 30*24*time.Hour),
		ZoneReloadInterval:    getEnvAsDuration("ZONE_RELOAD_INTERVAL", 30*time.Second),
		LocationRetention:     getEnvAsDuration("LOCATION_RETENTION", 30*24*time.Hour),
		InactivityQuietPeriod: getEnvAsDuration("INACTIVITY_QUIET_PERIOD", 2*time.Hour),
		SeedDemoData:          getEnvAsBool("SEED_DEMO_DATA", false),
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// SafetyLocation resolves the scorer's timezone, falling back to the
// process zone when the name is unknown.
func (c *Config) SafetyLocation() *time.Location {
	loc, err := time.LoadLocation(c.Safety.Timezone)
	if err != nil {
		logrus.WithError(err).WithField("timezone", c.Safety.Timezone).Warn("Unknown safety timezone, using local time")
		return time.Local
	}
	return loc
}

func InitRedis(cfg *Config) *redis.Client {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		// Fallback to default config
		opt = &redis.Options{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		}
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Warn("Redis unavailable, rate limits fall back to in-process buckets")
		client.Close()
		return nil
	}
	return client
}

// InitNATS connects to the event broker. It returns nil when no URL is set.
func InitNATS(cfg *Config) (*nats.Conn, error) {
	if cfg.NATSURL == "" {
		return nil, nil
	}
	return nats.Connect(cfg.NATSURL,
		nats.Name("tourist-safety-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logrus.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logrus.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsSlice splits a comma-separated value.
func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
