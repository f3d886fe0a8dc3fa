package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stoa-market/stoa-market-api/internal/config"
	"github.com/stoa-market/stoa-market-api/internal/models"
)

const cartKeyPrefix = "cart:"

// RedisCartStore keeps each user's session cart as a JSON-serialized map in
// Redis. A corrupted blob is treated as an empty cart rather than an error,
// so a bad session never locks a user out of shopping.
type RedisCartStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Entry
}

func NewRedisCartStore(cfg config.RedisConfig, logger *logrus.Logger) *RedisCartStore {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisCartStore{
		client: client,
		ttl:    cfg.CartTTL,
		log:    logger.WithField("component", "cart-store"),
	}
}

// Get loads the user's cart. A missing key yields an empty cart.
func (s *RedisCartStore) Get(ctx context.Context, userID int64) (models.Cart, error) {
	key := cartKeyPrefix + strconv.FormatInt(userID, 10)

	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return models.Cart{}, nil
	}
	if err != nil {
		s.log.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Error("Cart get error")
		return nil, err
	}

	var cart models.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		s.log.WithField("user_id", userID).Warn("Discarding corrupted session cart")
		return models.Cart{}, nil
	}
	return cart, nil
}

// Set writes the user's cart back, refreshing its TTL.
func (s *RedisCartStore) Set(ctx context.Context, userID int64, cart models.Cart) error {
	key := cartKeyPrefix + strconv.FormatInt(userID, 10)

	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.log.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Error("Cart set error")
		return err
	}
	return nil
}

// Clear discards the user's cart, as checkout does on success.
func (s *RedisCartStore) Clear(ctx context.Context, userID int64) error {
	key := cartKeyPrefix + strconv.FormatInt(userID, 10)
	return s.client.Del(ctx, key).Err()
}
