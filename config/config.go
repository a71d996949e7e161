package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

// Config holds the runtime settings, read from the environment.
type Config struct {
	Port    string
	GinMode string

	DBDSN       string
	DBUser      string
	DBPassword  string
	DBHost      string
	DBPort      string
	DBName      string
	AutoMigrate bool

	JWTSecret string

	MidtransServerKey  string
	MidtransProduction bool
	MidtransBaseURL    string

	PublicBaseURL      string
	CORSAllowedOrigins []string
	SweepInterval      time.Duration
	PolicyCacheTTL     time.Duration
	RateLimitRPS       int
	LogFormat          string
	LogLevel           string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RabbitMQURL string

	KafkaBrokers       []string
	KafkaPaymentsTopic string
	KafkaEventsTopic   string
	KafkaGroupID       string
}

// Load reads .env when present and builds a Config from the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Debug("no .env file loaded")
	}

	cfg := Config{
		Port:               envStr("PORT", "8080"),
		GinMode:            envStr("GIN_MODE", "debug"),
		DBDSN:              os.Getenv("DB_DSN"),
		DBUser:             envStr("DB_USER", "root"),
		DBPassword:         os.Getenv("DB_PASSWORD"),
		DBHost:             envStr("DB_HOST", "127.0.0.1"),
		DBPort:             envStr("DB_PORT", "3306"),
		DBName:             envStr("DB_NAME", "restaurant"),
		AutoMigrate:        envBool("DB_AUTO_MIGRATE", false),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		MidtransServerKey:  os.Getenv("MIDTRANS_SERVER_KEY"),
		MidtransProduction: strings.EqualFold(os.Getenv("MIDTRANS_ENV"), "production"),
		MidtransBaseURL:    os.Getenv("MIDTRANS_BASE_URL"),
		PublicBaseURL:      strings.TrimRight(envStr("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		CORSAllowedOrigins: envList("CORS_ALLOWED_ORIGINS"),
		LogFormat:          envStr("LOG_FORMAT", "text"),
		LogLevel:           envStr("LOG_LEVEL", "info"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RabbitMQURL:        os.Getenv("RABBITMQ_URL"),
		KafkaBrokers:       envList("KAFKA_BROKERS"),
		KafkaPaymentsTopic: envStr("KAFKA_PAYMENTS_TOPIC", "payments.events"),
		KafkaEventsTopic:   envStr("KAFKA_EVENTS_TOPIC", "reservations.events"),
		KafkaGroupID:       envStr("KAFKA_GROUP_ID", "restaurant-reservation"),
	}

	var err error
	if cfg.RedisDB, err = envInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitRPS, err = envInt("RATE_LIMIT_RPS", 20); err != nil {
		return Config{}, err
	}
	if cfg.SweepInterval, err = envDur("SWEEP_INTERVAL", 2*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.PolicyCacheTTL, err = envDur("POLICY_CACHE_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MySQLDSN returns DB_DSN, or a DSN assembled from the DB_* parts.
func (c Config) MySQLDSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	auth := c.DBUser
	if c.DBPassword != "" {
		auth = fmt.Sprintf("%s:%s", c.DBUser, c.DBPassword)
	}
	// parseTime and loc=UTC keep starts_at and expires_at comparable across replicas.
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, c.DBHost, c.DBPort, c.DBName)
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q", key, v)
	}
	return n, nil
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// envDur accepts Go durations ("90s", "2m") or a bare number of seconds.
func envDur(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q", key, v)
	}
	return d, nil
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
