package database

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"sdcp-backend/config"
)

var RedisClient *redis.Client

// ConnectRedis initializes the shared Redis client used by the ingest queue
// and the admin event channel. Returns false when Redis is not configured;
// the app then runs the pipeline inline.
func ConnectRedis(cfg *config.Config) bool {
	if cfg.RedisHost == "" {
		log.Printf("Redis not configured, media processing will run inline")
		return false
	}

	RedisClient = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisHost + ":" + cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := RedisClient.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️  Redis ping failed: %v, falling back to inline processing", err)
		RedisClient = nil
		return false
	}

	log.Printf("✅ Connected to Redis at %s:%s", cfg.RedisHost, cfg.RedisPort)
	return true
}
