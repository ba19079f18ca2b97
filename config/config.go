package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv  string
	AppPort string
	AppName string

	// Flat-file data layout
	DataDir   string
	UploadDir string

	// Optional Postgres record store; empty means JSON files under DataDir
	DatabaseURL string

	// Redis (ingest queue + completion events); empty host disables the
	// queue and the pipeline runs inline on the request path
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Blob storage: "local" or "s3"
	StorageBackend string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3UseSSL       bool
	S3Region       string
	S3Bucket       string

	// JWT
	JWTSecret       string
	JWTAccessExpiry string

	AdminEmail string

	MaxUploadBytes   int64
	TransformTimeout time.Duration
	FFmpegPath       string
	FFprobePath      string
}

var Cfg *Config

func LoadConfig() *Config {
	// Load .env file if it exists (for local non-docker dev)
	_ = godotenv.Load()

	Cfg = &Config{
		AppEnv:  getEnv("APP_ENV", "development"),
		AppPort: getEnv("APP_PORT", "8080"),
		AppName: getEnv("APP_NAME", "SDCP API"),

		DataDir:   getEnv("DATA_DIR", "data"),
		UploadDir: getEnv("UPLOAD_DIR", "uploads"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		StorageBackend: getEnv("STORAGE_BACKEND", "local"),
		S3Endpoint:     getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKey:    getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:    getEnv("S3_SECRET_KEY", "minioadmin"),
		S3UseSSL:       getEnvAsBool("S3_USE_SSL", false),
		S3Region:       getEnv("S3_REGION", "auto"),
		S3Bucket:       getEnv("S3_BUCKET", "sdcp-media"),

		JWTSecret:       getEnv("JWT_SECRET", "secret"),
		JWTAccessExpiry: getEnv("JWT_ACCESS_EXPIRY", "24h"),

		AdminEmail: getEnv("ADMIN_EMAIL", "bendiaz620@gmail.com"),

		MaxUploadBytes:   getEnvAsInt64("MAX_CONTENT_LENGTH", 40*1024*1024),
		TransformTimeout: getEnvAsDuration("TRANSFORM_TIMEOUT", 2*time.Minute),
		FFmpegPath:       getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:      getEnv("FFPROBE_PATH", "ffprobe"),
	}
	return Cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return fallback
}
