package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fitpulse/fitpulse-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

var Redis *redis.Client
var Ctx = context.Background()

func InitRedis() {
	Redis = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       0,
	})

	_, err := Redis.Ping(Ctx).Result()
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Rate limiting counters and presence cache will be disabled.", err)
	} else {
		log.Println("Connected to Redis successfully")
	}
}

// CheckRateLimit increments a per-user counter with expiry. Returns false
// once the counter exceeds the limit within the window.
func CheckRateLimit(userId string, limit int, duration time.Duration) (bool, error) {
	key := fmt.Sprintf("rate_limit:%s", userId)
	count, err := Redis.Incr(Ctx, key).Result()
	if err != nil {
		return false, err
	}

	if count == 1 {
		Redis.Expire(Ctx, key, duration)
	}

	if count > int64(limit) {
		return false, nil
	}
	return true, nil
}

// Presence cache. The socket gateway is the source of truth for live
// connections; Redis only mirrors it so other platform services can show
// online badges without talking to this process.
func SetUserOnline(userId string) {
	if Redis == nil {
		return
	}
	Redis.Set(Ctx, "presence:"+userId, "1", 5*time.Minute)
}

func SetUserOffline(userId string) {
	if Redis == nil {
		return
	}
	Redis.Del(Ctx, "presence:"+userId)
}
