package database

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
)

// blacklistPrefix namespaces revoked-token keys so the Redis database can be
// shared with other consumers without collisions.
const blacklistPrefix = "blacklist:"

// BlacklistKey returns the key under which a revoked token's jti is stored.
// Both the logout handler (writer) and the auth middleware (reader) derive
// the key through here so they can never disagree on the format.
func BlacklistKey(jti string) string {
	return blacklistPrefix + jti
}

// InitRedis initializes the Redis client backing the logout token blacklist.
// Redis serves only that blacklist, so a failed connection falls back to
// stateless tokens instead of aborting startup.
func InitRedis() *redis.Client {
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	addr := viper.GetString("redis.host") + ":" + viper.GetString("redis.port")
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("Redis connection failed, token blacklist disabled: %v", err)
		return nil
	}

	log.Println("Redis connection established, token blacklist active")
	return rdb
}
