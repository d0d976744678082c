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

package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/shopkit/types"
)

func waitForSubscriber(t *testing.T, client *redis.Client, topic string) {
	t.Helper()
	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(context.Background(), topic).Result()
		return err == nil && n[topic] > 0
	}, time.Second, 5*time.Millisecond)
}

func TestRedisSubscriber(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	t.Run("Should hand payloads to the handler until cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		received := make(chan string, 2)
		done := make(chan error, 1)
		go func() {
			done <- NewRedisSubscriber(client).Subscribe(ctx, "checkout", func(_ context.Context, payload []byte) error {
				received <- string(payload)
				if string(payload) == "bad" {
					return errors.New("rejected")
				}
				return nil
			})
		}()
		waitForSubscriber(t, client, "checkout")

		publisher := NewRedisPublisher(client)
		require.NoError(t, publisher.Publish(context.Background(), "checkout", []byte("bad")))
		require.NoError(t, publisher.Publish(context.Background(), "checkout", []byte("good")))

		for _, want := range []string{"bad", "good"} {
			select {
			case got := <-received:
				assert.Equal(t, want, got)
			case <-time.After(time.Second):
				t.Fatalf("Did not receive %q within timeout", want)
			}
		}

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("Subscribe did not return after cancel")
		}
	})

	t.Run("Should reject missing arguments", func(t *testing.T) {
		sub := NewRedisSubscriber(client)
		noop := func(context.Context, []byte) error { return nil }
		assert.True(t, types.IsInvalidArgument(sub.Subscribe(context.Background(), "", noop)))
		assert.True(t, types.IsInvalidArgument(sub.Subscribe(context.Background(), "t", nil)))
	})

	t.Run("Should report an unreachable transport", func(t *testing.T) {
		closed := redis.NewClient(&redis.Options{Addr: s.Addr()})
		require.NoError(t, closed.Close())
		err := NewRedisSubscriber(closed).Subscribe(context.Background(), "checkout", func(context.Context, []byte) error { return nil })
		assert.True(t, types.IsPublishUnavailable(err), "%v", err)
	})
}

func newStreamSubscriber(t *testing.T) (rueidis.Client, *StreamSubscriber) {
	t.Helper()
	s := miniredis.RunT(t)
	client, err := NewStreamClient(s.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	sub := NewStreamSubscriber(client, "ordering", "shopctl")
	sub.block = 50 * time.Millisecond
	sub.retryDelay = 10 * time.Millisecond
	return client, sub
}

// consume runs sub until cancel is called and reports its return value.
func consume(ctx context.Context, sub *StreamSubscriber, topic string, handler Handler) <-chan error {
	done := make(chan error, 1)
	go func() { done <- sub.Subscribe(ctx, topic, handler) }()
	return done
}

func pendingCount(t *testing.T, client rueidis.Client, topic string) int64 {
	t.Helper()
	summary, err := client.Do(context.Background(), client.B().Xpending().Key(topic).Group("ordering").Build()).ToArray()
	require.NoError(t, err)
	require.NotEmpty(t, summary)
	n, err := summary[0].AsInt64()
	require.NoError(t, err)
	return n
}

func TestStreamSubscriber(t *testing.T) {
	const topic = "checkout-stream"

	t.Run("Should redeliver an entry whose handler failed", func(t *testing.T) {
		client, sub := newStreamSubscriber(t)
		publisher := NewStreamPublisher(client)
		require.NoError(t, publisher.Publish(context.Background(), topic, []byte(`{"n":1}`)))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		var mu sync.Mutex
		var seen []string
		calls := 0
		done := consume(ctx, sub, topic, func(_ context.Context, payload []byte) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			seen = append(seen, string(payload))
			if calls == 1 {
				return errors.New("store unavailable")
			}
			return nil
		})

		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(seen) >= 2
		}, 2*time.Second, 5*time.Millisecond)

		require.NoError(t, publisher.Publish(context.Background(), topic, []byte(`{"n":2}`)))
		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(seen) >= 3
		}, 2*time.Second, 5*time.Millisecond)

		cancel()
		require.NoError(t, <-done)
		assert.Equal(t, []string{`{"n":1}`, `{"n":1}`, `{"n":2}`}, seen)
		assert.Zero(t, pendingCount(t, client, topic))
	})

	t.Run("Should resume unacknowledged entries after a restart", func(t *testing.T) {
		client, sub := newStreamSubscriber(t)
		require.NoError(t, NewStreamPublisher(client).Publish(context.Background(), topic, []byte(`{"n":7}`)))

		ctx, cancel := context.WithCancel(context.Background())
		failed := make(chan struct{}, 1)
		done := consume(ctx, sub, topic, func(context.Context, []byte) error {
			select {
			case failed <- struct{}{}:
			default:
			}
			return errors.New("store unavailable")
		})
		select {
		case <-failed:
		case <-time.After(2 * time.Second):
			t.Fatal("Did not receive the entry within timeout")
		}
		cancel()
		require.NoError(t, <-done)
		assert.Equal(t, int64(1), pendingCount(t, client, topic))

		ctx, cancel = context.WithCancel(context.Background())
		defer cancel()
		received := make(chan string, 1)
		done = consume(ctx, sub, topic, func(_ context.Context, payload []byte) error {
			received <- string(payload)
			return nil
		})
		select {
		case got := <-received:
			assert.JSONEq(t, `{"n":7}`, got)
		case <-time.After(2 * time.Second):
			t.Fatal("Did not redeliver the entry within timeout")
		}
		require.Eventually(t, func() bool { return pendingCount(t, client, topic) == 0 }, time.Second, 5*time.Millisecond)
		cancel()
		require.NoError(t, <-done)
	})

	t.Run("Should reject a missing group", func(t *testing.T) {
		client, _ := newStreamSubscriber(t)
		err := NewStreamSubscriber(client, "", "c").Subscribe(context.Background(), topic, func(context.Context, []byte) error { return nil })
		assert.True(t, types.IsInvalidArgument(err))
	})
}
