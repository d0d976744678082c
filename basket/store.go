/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package basket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tomoncle/shopkit/database"
	"github.com/tomoncle/shopkit/types"
)

const (
	DefaultKeyPrefix  = "basket:"
	DefaultExpiration = 10 * time.Hour
)

// RedisStore keeps one serialized cart per user name with an absolute
// expiration.
type RedisStore struct {
	client     redis.UniversalClient
	prefix     string
	expiration time.Duration
	logger     database.Logger
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client:     client,
		prefix:     DefaultKeyPrefix,
		expiration: DefaultExpiration,
		logger:     database.GetLogger(),
	}
}

// WithKeyPrefix sets the prefix of cart keys.
func (s *RedisStore) WithKeyPrefix(prefix string) *RedisStore {
	s.prefix = prefix
	return s
}

// WithExpiration sets how long a cart lives after its last update.
func (s *RedisStore) WithExpiration(d time.Duration) *RedisStore {
	if d > 0 {
		s.expiration = d
	}
	return s
}

// SetLogger replaces the store logger.
func (s *RedisStore) SetLogger(logger database.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

func (s *RedisStore) key(userName string) string { return s.prefix + userName }

// GetBasketByUserName returns the cart of userName, or nil.
func (s *RedisStore) GetBasketByUserName(ctx context.Context, userName string) (*Cart, error) {
	if userName == "" {
		return nil, types.NewArgumentError("userName", "must not be empty")
	}
	data, err := s.client.Get(ctx, s.key(userName)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, wrapStoreError("get basket", err)
	}
	var cart Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("failed to decode basket of %s: %w", userName, err)
	}
	return &cart, nil
}

// UpdateBasket replaces the stored cart and restarts its expiration.
func (s *RedisStore) UpdateBasket(ctx context.Context, cart *Cart) (*Cart, error) {
	if cart == nil || cart.UserName == "" {
		return nil, types.NewArgumentError("cart", "user name is required")
	}
	data, err := json.Marshal(cart)
	if err != nil {
		return nil, fmt.Errorf("failed to encode basket of %s: %w", cart.UserName, err)
	}
	if err := s.client.Set(ctx, s.key(cart.UserName), data, s.expiration).Err(); err != nil {
		return nil, wrapStoreError("set basket", err)
	}
	s.logger.Debug("Basket updated", "userName", cart.UserName, "items", len(cart.Items))
	return s.GetBasketByUserName(ctx, cart.UserName)
}

// DeleteBasketFromUserName removes the cart and reports whether one existed.
func (s *RedisStore) DeleteBasketFromUserName(ctx context.Context, userName string) (bool, error) {
	if userName == "" {
		return false, types.NewArgumentError("userName", "must not be empty")
	}
	n, err := s.client.Del(ctx, s.key(userName)).Result()
	if err != nil {
		return false, wrapStoreError("delete basket", err)
	}
	return n > 0, nil
}

func wrapStoreError(op string, err error) error {
	if errors.Is(err, redis.ErrClosed) || database.IsConnectionError(err) {
		return types.NewStoreError("redis", op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
