package database

import (
	"context"
	"fmt"
	"habit_tracker_backend/internal/config"
	"log"

	"github.com/go-redis/redis/v8"
)

// InitRedis 建立Redis连接，用于排行榜缓存与调度器互斥锁
// 配置关闭时返回 nil，调用方需要容忍空客户端
func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		log.Println("Redis disabled, leaderboard cache and distributed lock unavailable")
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     50,
		MinIdleConns: 5,
	})

	ctx := context.Background()
	_, err := rdb.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}

	log.Println("Redis connection established")
	return rdb, nil
}
