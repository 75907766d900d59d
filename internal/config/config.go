package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort   string // Application port
	DataDir   string // Directory holding the CSV table files
	DBPath    string // Path of the embedded sqlite user database
	JWTSecret string // JWT secret key
	RedisAddr string // Redis server address
	RedisPass string // Redis password
	RedisDB   int    // Redis database number
	IsProd    bool   // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	cfg := &Config{
		AppPort:   os.Getenv("APP_PORT"),
		DataDir:   os.Getenv("DATA_DIR"),
		DBPath:    os.Getenv("DB_PATH"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		RedisAddr: os.Getenv("REDIS_ADDR"),
		RedisPass: os.Getenv("REDIS_PASS"),
		RedisDB:   redisDB,
		IsProd:    os.Getenv("IS_PROD") == "true",
	}
	if cfg.AppPort == "" {
		cfg.AppPort = "8080"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "users.db"
	}
	return cfg
}
