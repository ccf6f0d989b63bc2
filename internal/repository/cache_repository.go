package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"saas-auth-server/config"
	"saas-auth-server/internal/util"
	"time"
)

const blacklistKeyPrefix = "blacklist:"

// BlacklistCacheRepository : Redis mirror of positive blacklist hits, keyed by token digest
type BlacklistCacheRepository struct {
	client *config.RedisClient
}

func NewBlacklistCacheRepository(rdb *config.RedisClient) *BlacklistCacheRepository {
	return &BlacklistCacheRepository{client: rdb}
}

// MarkBlacklisted : ttl 0 keeps the key until it is deleted
func (r *BlacklistCacheRepository) MarkBlacklisted(ctx context.Context, token string, ttl time.Duration) error {
	if err := r.client.Client.Set(ctx, r.key(token), "1", ttl).Err(); err != nil {
		return util.LogError("[BlacklistCache] redis write failed", err)
	}
	return nil
}

func (r *BlacklistCacheRepository) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	count, err := r.client.Client.Exists(ctx, r.key(token)).Result()
	if err != nil {
		return false, util.LogError("[BlacklistCache] redis read failed", err)
	}
	return count > 0, nil
}

func (r *BlacklistCacheRepository) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return blacklistKeyPrefix + hex.EncodeToString(sum[:])
}
