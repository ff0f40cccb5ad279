package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	DefaultAllowedOrigin = "http://localhost:4200"

	defaultPort      = "5000"
	defaultBodyLimit = 10 << 20 // 10 MB
)

// Config holds every setting the server reads from the environment.
type Config struct {
	Port          string
	Env           string
	AllowedOrigin string
	BodyLimit     int64
	// TrustedProxies is empty unless TRUSTED_PROXIES names them, so
	// X-Forwarded-For is ignored by default.
	TrustedProxies []string

	JWTSecret string
	JWTTTL    time.Duration

	LogFile   string
	LogLevel  string
	AccessLog bool

	Database DatabaseConfig

	DailyQuestionCron      string
	DailyQuestionsPerTopic int
	DailyQuestionsOnStart  bool

	LoginRatePerMinute int
	ShutdownTimeout    time.Duration
}

// IsProduction reports whether verbose error detail must be hidden.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Load reads .env (if present) and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found – relying on env vars")
	}

	return Config{
		Port:          getEnv("PORT", defaultPort),
		Env:           strings.ToLower(getEnv("NODE_ENV", EnvDevelopment)),
		AllowedOrigin: getEnv("CORS_ORIGIN", DefaultAllowedOrigin),
		BodyLimit:     int64(getEnvInt("JSON_BODY_LIMIT", defaultBodyLimit)),

		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		JWTSecret: getEnv("JWT_SECRET", "supersecret"),
		JWTTTL:    getEnvDuration("JWT_TTL", 72*time.Hour),

		LogFile:   getEnv("LOG_FILE", "./logs/app.log"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		AccessLog: getEnvBool("ACCESS_LOG", false),

		Database: loadDatabaseConfig(),

		DailyQuestionCron:      getEnv("DAILY_QUESTION_CRON", "0 0 * * *"),
		DailyQuestionsPerTopic: getEnvInt("DAILY_QUESTIONS_PER_TOPIC", 1),
		DailyQuestionsOnStart:  getEnvBool("DAILY_QUESTIONS_ON_START", false),

		LoginRatePerMinute: getEnvInt("LOGIN_RATE_PER_MIN", 10),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:         strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		URL:            getEnv("DATABASE_URL", ""),
		Host:           getEnv("DB_HOST", "localhost"),
		Port:           getEnv("DB_PORT", "5432"),
		User:           getEnv("DB_USER", "postgres"),
		Password:       getEnv("DB_PASSWORD", "password"),
		Name:           getEnv("DB_NAME", "codebuddy"),
		SSLMode:        getEnv("DB_SSLMODE", "disable"),
		TimeZone:       getEnv("DB_TIMEZONE", "UTC"),
		ConnectTimeout: getEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
	}
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists && v != "" {
		return v
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blank entries.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key, ""), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}
