// Package cache provides a redis-backed cache for wallet display reads.
// Spend decisions never read from it: every balance check for a mutation
// goes to the authoritative store under a row lock.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"purse/internal/models"

	"github.com/redis/go-redis/v9"
)

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

func walletKey(userID uint) string {
	return fmt.Sprintf("wallet:%d", userID)
}

// GetWallet returns the cached wallet snapshot for a user, if present.
func (s *CacheService) GetWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	val, err := s.client.Get(ctx, walletKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	var wallet models.Wallet
	if err := json.Unmarshal([]byte(val), &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

// SetWallet stores a wallet snapshot for display reads.
func (s *CacheService) SetWallet(ctx context.Context, wallet *models.Wallet) error {
	data, err := json.Marshal(wallet)
	if err != nil {
		return fmt.Errorf("failed to marshal wallet: %w", err)
	}
	return s.client.Set(ctx, walletKey(wallet.UserID), data, s.ttl).Err()
}

// InvalidateWallet drops the cached snapshot after any balance change.
func (s *CacheService) InvalidateWallet(ctx context.Context, userID uint) error {
	return s.client.Del(ctx, walletKey(userID)).Err()
}

func (s *CacheService) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

func (s *CacheService) FlushAll(ctx context.Context) error {
	return s.client.FlushAll(ctx).Err()
}

func (s *CacheService) Close() error {
	return s.client.Close()
}
