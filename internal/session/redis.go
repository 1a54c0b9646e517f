package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"storefront/mirror/internal/domain"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// redisStore keeps each cart in a hash: field = product id, value = quantity
type redisStore struct {
	redisClient *redis.Client
	keyPrefix   string
	ttl         time.Duration
}

func NewRedisStore(redisClient *redis.Client, ttl time.Duration) Store {
	return &redisStore{
		redisClient: redisClient,
		keyPrefix:   "storefront:cart:",
		ttl:         ttl,
	}
}

func (s *redisStore) key(sessionID string) string {
	return s.keyPrefix + sessionID
}

func (s *redisStore) Cart(ctx context.Context, sessionID string) (domain.Cart, error) {
	values, err := s.redisClient.HGetAll(ctx, s.key(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load cart for session %s: %w", sessionID, err)
	}

	cart := make(domain.Cart, len(values))
	for productID, raw := range values {
		qty, err := strconv.Atoi(raw)
		if err != nil || qty <= 0 {
			log.Warnf("Dropping invalid quantity %q for product %s in session %s", raw, productID, sessionID)
			continue
		}
		cart[productID] = qty
	}
	return cart, nil
}

func (s *redisStore) Add(ctx context.Context, sessionID, productID string, quantity int) error {
	key := s.key(sessionID)

	qty, err := s.redisClient.HIncrBy(ctx, key, productID, int64(quantity)).Result()
	if err != nil {
		return fmt.Errorf("failed to add product %s to cart: %w", productID, err)
	}
	if qty <= 0 {
		if err := s.redisClient.HDel(ctx, key, productID).Err(); err != nil {
			return fmt.Errorf("failed to drop product %s from cart: %w", productID, err)
		}
	}
	return s.touch(ctx, key)
}

func (s *redisStore) Set(ctx context.Context, sessionID, productID string, quantity int) error {
	if quantity <= 0 {
		return s.Remove(ctx, sessionID, productID)
	}

	key := s.key(sessionID)
	if err := s.redisClient.HSet(ctx, key, productID, quantity).Err(); err != nil {
		return fmt.Errorf("failed to set quantity of product %s: %w", productID, err)
	}
	return s.touch(ctx, key)
}

func (s *redisStore) Remove(ctx context.Context, sessionID, productID string) error {
	if err := s.redisClient.HDel(ctx, s.key(sessionID), productID).Err(); err != nil {
		return fmt.Errorf("failed to remove product %s from cart: %w", productID, err)
	}
	return nil
}

func (s *redisStore) touch(ctx context.Context, key string) error {
	if s.ttl <= 0 {
		return nil
	}
	if err := s.redisClient.Expire(ctx, key, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to refresh cart ttl: %w", err)
	}
	return nil
}
