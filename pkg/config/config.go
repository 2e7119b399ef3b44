package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Fraud    FraudConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  string // Comma-separated list of allowed origins
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SSLMode    string
	MaxConns   int
	MinConns   int
	Migrations string // path to migration files, empty disables migrations
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// FraudConfig holds fraud detection tunables. Weights need not sum to 1;
// they are normalized by their sum at scoring time.
type FraudConfig struct {
	LocationWeight float64
	DeviceWeight   float64
	TimeWeight     float64
	BehaviorWeight float64
	PhotoWeight    float64

	// Risk level thresholds, ascending values in [0,1].
	MediumThreshold   float64
	HighThreshold     float64
	CriticalThreshold float64

	// DeviceLimit is how many distinct devices a student may legitimately own.
	DeviceLimit int

	// Behavior store retention.
	MaxAttemptHistory int
	RetentionDays     int
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
			CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", "postgres"),
			DBName:     getEnv("DB_NAME", "attendance"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			MaxConns:   getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:   getEnvAsInt("DB_MIN_CONNS", 5),
			Migrations: getEnv("DB_MIGRATIONS_PATH", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},
		Fraud: FraudConfig{
			LocationWeight:    getEnvAsFloat("FRAUD_LOCATION_WEIGHT", 0.25),
			DeviceWeight:      getEnvAsFloat("FRAUD_DEVICE_WEIGHT", 0.20),
			TimeWeight:        getEnvAsFloat("FRAUD_TIME_WEIGHT", 0.20),
			BehaviorWeight:    getEnvAsFloat("FRAUD_BEHAVIOR_WEIGHT", 0.20),
			PhotoWeight:       getEnvAsFloat("FRAUD_PHOTO_WEIGHT", 0.15),
			MediumThreshold:   getEnvAsFloat("FRAUD_MEDIUM_THRESHOLD", 0.40),
			HighThreshold:     getEnvAsFloat("FRAUD_HIGH_THRESHOLD", 0.65),
			CriticalThreshold: getEnvAsFloat("FRAUD_CRITICAL_THRESHOLD", 0.80),
			DeviceLimit:       getEnvAsInt("FRAUD_DEVICE_LIMIT", 3),
			MaxAttemptHistory: getEnvAsInt("FRAUD_MAX_ATTEMPT_HISTORY", 200),
			RetentionDays:     getEnvAsInt("FRAUD_RETENTION_DAYS", 30),
		},
	}

	if err := cfg.Fraud.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that fraud tunables are usable.
func (c *FraudConfig) Validate() error {
	weights := []float64{c.LocationWeight, c.DeviceWeight, c.TimeWeight, c.BehaviorWeight, c.PhotoWeight}
	sum := 0.0
	for _, w := range weights {
		if w < 0 {
			return fmt.Errorf("fraud weights must be non-negative, got %v", w)
		}
		sum += w
	}
	if sum == 0 {
		return fmt.Errorf("at least one fraud weight must be positive")
	}
	if !(c.MediumThreshold <= c.HighThreshold && c.HighThreshold <= c.CriticalThreshold) {
		return fmt.Errorf("fraud thresholds must be ascending: medium=%v high=%v critical=%v",
			c.MediumThreshold, c.HighThreshold, c.CriticalThreshold)
	}
	return nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// MigrateURL returns the database URL for golang-migrate
func (c *DatabaseConfig) MigrateURL() string {
	return fmt.Sprintf(
		"pgx5://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
