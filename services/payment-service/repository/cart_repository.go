package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
)

const cartWatchRetries = 5

// ErrCartContention means the cart kept changing underneath RemoveItems.
var ErrCartContention = errors.New("cart modified concurrently, giving up")

// CartRepository stores one JSON document per buyer in Redis.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *CartRepository) getKey(userID string) string {
	return fmt.Sprintf("cart:user:%s", userID)
}

// GetCart returns nil, nil when the buyer has no cart.
func (r *CartRepository) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	data, err := r.client.Get(ctx, r.getKey(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cart models.Cart
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		return nil, fmt.Errorf("corrupt cart for user %s: %w", userID, err)
	}
	return &cart, nil
}

func (r *CartRepository) SaveCart(ctx context.Context, cart *models.Cart) error {
	cart.UpdatedAt = time.Now()
	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.getKey(cart.UserID), data, r.ttl).Err()
}

// RemoveItems deletes the items match selects, under WATCH so an item the
// buyer adds concurrently is never lost. An emptied cart is deleted.
func (r *CartRepository) RemoveItems(ctx context.Context, userID string, match func(models.CartItem) bool) (int, error) {
	key := r.getKey(userID)
	removed := 0

	txf := func(tx *redis.Tx) error {
		removed = 0
		data, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}

		var cart models.Cart
		if err := json.Unmarshal([]byte(data), &cart); err != nil {
			return fmt.Errorf("corrupt cart for user %s: %w", userID, err)
		}

		kept := make([]models.CartItem, 0, len(cart.Items))
		for _, item := range cart.Items {
			if match(item) {
				removed++
				continue
			}
			kept = append(kept, item)
		}
		if removed == 0 {
			return nil
		}

		cart.Items = kept
		cart.UpdatedAt = time.Now()
		payload, err := json.Marshal(cart)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(kept) == 0 {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, payload, r.ttl)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < cartWatchRetries; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return removed, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return 0, err
	}
	return 0, ErrCartContention
}
