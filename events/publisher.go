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
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/redis/rueidis"
	"github.com/tomoncle/shopkit/database"
	"github.com/tomoncle/shopkit/types"
)

// BasketCheckoutTopic carries checkout events emitted by the basket.
const BasketCheckoutTopic = "basket-checkout-topic"

// Publisher emits a serialized event to a named topic. A transport failure
// is reported as types.ErrPublishUnavailable.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, topic string, payload []byte) error

func (f PublisherFunc) Publish(ctx context.Context, topic string, payload []byte) error {
	return f(ctx, topic, payload)
}

// PublishJSON serializes event and publishes it to topic.
func PublishJSON(ctx context.Context, p Publisher, topic string, event any) error {
	if p == nil {
		return types.NewArgumentError("publisher", "must not be nil")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event for %s: %w", topic, err)
	}
	return p.Publish(ctx, topic, payload)
}

// RedisPublisher publishes on Redis Pub/Sub channels named after the topic.
type RedisPublisher struct {
	client redis.UniversalClient
	logger database.Logger
}

func NewRedisPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client, logger: database.GetLogger()}
}

// SetLogger replaces the publisher logger.
func (p *RedisPublisher) SetLogger(logger database.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	if topic == "" {
		return types.NewArgumentError("topic", "must not be empty")
	}
	receivers, err := p.client.Publish(ctx, topic, payload).Result()
	if err != nil {
		p.logger.Error("Failed to publish event", "topic", topic, "error", err)
		return types.NewPublishError(topic, err)
	}
	p.logger.Debug("Published event", "topic", topic, "receivers", receivers)
	return nil
}

// StreamPublisher appends events to a Redis stream per topic, so consumers
// that are offline still see them.
type StreamPublisher struct {
	client rueidis.Client
	logger database.Logger
}

func NewStreamPublisher(client rueidis.Client) *StreamPublisher {
	return &StreamPublisher{client: client, logger: database.GetLogger()}
}

// SetLogger replaces the publisher logger.
func (p *StreamPublisher) SetLogger(logger database.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

func (p *StreamPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	if topic == "" {
		return types.NewArgumentError("topic", "must not be empty")
	}
	cmd := p.client.B().Xadd().Key(topic).Id("*").
		FieldValue().FieldValue("payload", string(payload)).
		Build()
	id, err := p.client.Do(ctx, cmd).ToString()
	if err != nil {
		p.logger.Error("Failed to append event to stream", "topic", topic, "error", err)
		return types.NewPublishError(topic, err)
	}
	p.logger.Debug("Appended event to stream", "topic", topic, "id", id)
	return nil
}

// NewStreamClient connects a rueidis client to addr.
func NewStreamClient(addr, password string, db int) (rueidis.Client, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{addr},
		Password:     password,
		SelectDB:     db,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect stream client: %w", err)
	}
	return client, nil
}

var (
	_ Publisher = (*RedisPublisher)(nil)
	_ Publisher = (*StreamPublisher)(nil)
	_ Publisher = PublisherFunc(nil)
)
