package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"democall/backend/config"
)

// Client Redis 客户端封装
// 当前用于实时推送（Pub/Sub 按用户频道）；后续可扩展缓存、分布式锁等场景
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── 按用户频道的实时推送 ──

const userChannelPrefix = "user:"

// UserChannel 生成用户实时频道名，如 user:<id>:events
func UserChannel(userID string) string {
	return userChannelPrefix + userID + ":events"
}

// PublishToUser 向指定用户频道发布一条 JSON 序列化事件
func (c *Client) PublishToUser(ctx context.Context, userID string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化实时事件失败: %w", err)
	}
	return c.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
