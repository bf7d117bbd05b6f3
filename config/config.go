package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Env  string
	Port string

	DBURL     string
	RedisAddr string

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessExpiryMin    int
	RefreshExpiryMin   int

	MaxLoginAttempts int
	LockoutMinutes   int
	BcryptCost       int

	MaxActiveTokensPerUser int
	SweepIntervalMin       int
}

// Load reads configuration from the environment. A .env file is honored
// when present. Signing secrets have no default: a missing secret is a
// fatal startup error, never silently substituted.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("could not load .env file")
	}

	return &Config{
		Env:                    getEnv("ENV", "development"),
		Port:                   getEnv("PORT", "8080"),
		DBURL:                  mustGetEnv("DB_URL"),
		RedisAddr:              getEnv("REDIS_ADDR", ""),
		AccessTokenSecret:      mustGetEnv("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret:     mustGetEnv("REFRESH_TOKEN_SECRET"),
		AccessExpiryMin:        getEnvAsInt("ACCESS_TOKEN_EXPIRY", 15),
		RefreshExpiryMin:       getEnvAsInt("REFRESH_TOKEN_EXPIRY", 10080),
		MaxLoginAttempts:       getEnvAsInt("MAX_LOGIN_ATTEMPTS", 5),
		LockoutMinutes:         getEnvAsInt("LOCKOUT_MINUTES", 30),
		BcryptCost:             getEnvAsInt("BCRYPT_COST", bcrypt.DefaultCost),
		MaxActiveTokensPerUser: getEnvAsInt("MAX_ACTIVE_TOKENS_PER_USER", 5),
		SweepIntervalMin:       getEnvAsInt("SWEEP_INTERVAL_MINUTES", 60),
	}
}

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func mustGetEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	logrus.Fatalf("missing required environment variable: %s", key)
	return ""
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		logrus.Warnf("invalid value for %s, using default %d", key, defaultVal)
		return defaultVal
	}
	return val
}
