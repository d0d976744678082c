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
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/shopkit/events"
	"github.com/tomoncle/shopkit/types"
)

type published struct {
	topic   string
	payload []byte
}

type recorder struct {
	sent []published
	err  error
}

func (r *recorder) Publish(_ context.Context, topic string, payload []byte) error {
	if r.err != nil {
		return types.NewPublishError(topic, r.err)
	}
	r.sent = append(r.sent, published{topic: topic, payload: payload})
	return nil
}

type fixedStock map[string]int64

func (f fixedStock) GetStockQuantity(_ context.Context, itemNo string) (int64, error) {
	return f[itemNo], nil
}

func newStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return s, NewRedisStore(client)
}

func sampleCart() *Cart {
	return &Cart{
		UserName: "anna",
		Items: []CartItem{
			{ItemNo: "LOTUS", ItemName: "Lotus", Quantity: 2, ItemPrice: decimal.RequireFromString("10.25")},
			{ItemNo: "MINI", ItemName: "Mini", Quantity: 1, ItemPrice: decimal.RequireFromString("4.50")},
		},
	}
}

var checkout = BasketCheckout{FirstName: "Anna", LastName: "Le", EmailAddress: "anna@example.com"}

func TestCart(t *testing.T) {
	t.Run("Should total quantity times price", func(t *testing.T) {
		assert.True(t, sampleCart().TotalPrice().Equal(decimal.RequireFromString("25")))
		assert.True(t, NewCart("x").TotalPrice().IsZero())
	})
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Should round-trip a cart", func(t *testing.T) {
		_, store := newStore(t)
		saved, err := store.UpdateBasket(ctx, sampleCart())
		require.NoError(t, err)
		require.Len(t, saved.Items, 2)
		assert.True(t, saved.Items[0].ItemPrice.Equal(decimal.RequireFromString("10.25")))

		got, err := store.GetBasketByUserName(ctx, "anna")
		require.NoError(t, err)
		assert.Equal(t, "LOTUS", got.Items[0].ItemNo)
	})

	t.Run("Should return nil for a missing cart", func(t *testing.T) {
		_, store := newStore(t)
		got, err := store.GetBasketByUserName(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Should expire carts", func(t *testing.T) {
		mr, store := newStore(t)
		store.WithExpiration(time.Minute).WithKeyPrefix("cart:")
		_, err := store.UpdateBasket(ctx, sampleCart())
		require.NoError(t, err)
		assert.True(t, mr.Exists("cart:anna"))
		assert.Equal(t, time.Minute, mr.TTL("cart:anna"))

		mr.FastForward(2 * time.Minute)
		got, err := store.GetBasketByUserName(ctx, "anna")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Should report whether a delete removed a cart", func(t *testing.T) {
		_, store := newStore(t)
		_, err := store.UpdateBasket(ctx, sampleCart())
		require.NoError(t, err)
		deleted, err := store.DeleteBasketFromUserName(ctx, "anna")
		require.NoError(t, err)
		assert.True(t, deleted)
		deleted, err = store.DeleteBasketFromUserName(ctx, "anna")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("Should report an unreachable store", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
		require.NoError(t, client.Close())
		_, err := NewRedisStore(client).GetBasketByUserName(ctx, "anna")
		assert.True(t, types.IsStoreUnavailable(err), "%v", err)
	})
}

func TestService(t *testing.T) {
	ctx := context.Background()

	t.Run("Should return an empty cart for a new user", func(t *testing.T) {
		_, store := newStore(t)
		cart, err := NewService(store, &recorder{}).GetBasket(ctx, "new")
		require.NoError(t, err)
		assert.Equal(t, "new", cart.UserName)
		assert.Empty(t, cart.Items)
	})

	t.Run("Should record available stock on update", func(t *testing.T) {
		_, store := newStore(t)
		svc := NewService(store, &recorder{}).WithStockLookup(fixedStock{"LOTUS": 7})
		cart, err := svc.UpdateBasket(ctx, sampleCart())
		require.NoError(t, err)
		assert.Equal(t, int64(7), cart.Items[0].AvailableQuantity)
		assert.Equal(t, int64(0), cart.Items[1].AvailableQuantity)

		_, err = svc.UpdateBasket(ctx, &Cart{UserName: "anna", Items: []CartItem{{ItemNo: "X", Quantity: 0}}})
		assert.True(t, types.IsInvalidArgument(err))
	})

	t.Run("Should publish the checkout event and keep the cart", func(t *testing.T) {
		_, store := newStore(t)
		pub := &recorder{}
		svc := NewService(store, pub)
		_, err := svc.UpdateBasket(ctx, sampleCart())
		require.NoError(t, err)

		ev, err := svc.Checkout(ctx, "anna", checkout)
		require.NoError(t, err)
		assert.NotEmpty(t, ev.ID)
		assert.True(t, ev.TotalPrice.Equal(decimal.NewFromInt(25)))

		require.Len(t, pub.sent, 1)
		assert.Equal(t, events.BasketCheckoutTopic, pub.sent[0].topic)
		var decoded events.BasketCheckoutEvent
		require.NoError(t, json.Unmarshal(pub.sent[0].payload, &decoded))
		assert.Equal(t, ev.ID, decoded.ID)
		assert.Equal(t, "anna", decoded.UserName)
		assert.True(t, decoded.TotalPrice.Equal(decimal.NewFromInt(25)))

		cart, err := store.GetBasketByUserName(ctx, "anna")
		require.NoError(t, err)
		assert.NotNil(t, cart)
	})

	t.Run("Should return not found for a missing or empty cart", func(t *testing.T) {
		_, store := newStore(t)
		pub := &recorder{}
		svc := NewService(store, pub)

		_, err := svc.Checkout(ctx, "anna", checkout)
		assert.True(t, types.IsNotFound(err))

		_, err = store.UpdateBasket(ctx, NewCart("anna"))
		require.NoError(t, err)
		_, err = svc.Checkout(ctx, "anna", checkout)
		assert.True(t, types.IsNotFound(err))
		assert.Empty(t, pub.sent)
	})

	t.Run("Should surface publish failures", func(t *testing.T) {
		_, store := newStore(t)
		svc := NewService(store, &recorder{err: errors.New("broker down")})
		_, err := store.UpdateBasket(ctx, sampleCart())
		require.NoError(t, err)

		_, err = svc.Checkout(ctx, "anna", checkout)
		assert.True(t, types.IsPublishUnavailable(err), "%v", err)
	})

	t.Run("Should publish over redis pub/sub", func(t *testing.T) {
		mr, store := newStore(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		sub := client.Subscribe(ctx, events.BasketCheckoutTopic)
		defer sub.Close()
		_, err := sub.Receive(ctx)
		require.NoError(t, err)
		ch := sub.Channel()
		time.Sleep(10 * time.Millisecond)

		svc := NewService(store, events.NewRedisPublisher(client))
		_, err = store.UpdateBasket(ctx, sampleCart())
		require.NoError(t, err)
		ev, err := svc.Checkout(ctx, "anna", checkout)
		require.NoError(t, err)

		select {
		case msg := <-ch:
			var decoded events.BasketCheckoutEvent
			require.NoError(t, json.Unmarshal([]byte(msg.Payload), &decoded))
			assert.Equal(t, ev.ID, decoded.ID)
		case <-time.After(time.Second):
			t.Fatal("Did not receive checkout event within timeout")
		}
	})

	t.Run("Should validate buyer details", func(t *testing.T) {
		_, store := newStore(t)
		_, err := NewService(store, &recorder{}).Checkout(ctx, "anna", BasketCheckout{FirstName: "A"})
		assert.True(t, types.IsInvalidArgument(err))
	})
}
