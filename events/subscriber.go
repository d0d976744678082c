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
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/redis/rueidis"
	"github.com/tomoncle/shopkit/database"
	"github.com/tomoncle/shopkit/types"
)

// Handler processes one event payload.
type Handler func(ctx context.Context, payload []byte) error

// Subscriber delivers the events of a topic to a handler until ctx is done.
// Handler errors are logged and do not stop the subscription.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler Handler) error
}

func checkSubscription(topic string, handler Handler) error {
	if topic == "" {
		return types.NewArgumentError("topic", "must not be empty")
	}
	if handler == nil {
		return types.NewArgumentError("handler", "must not be nil")
	}
	return nil
}

// RedisSubscriber receives events published by RedisPublisher. Events sent
// while nobody listens are lost.
type RedisSubscriber struct {
	client redis.UniversalClient
	logger database.Logger
}

func NewRedisSubscriber(client redis.UniversalClient) *RedisSubscriber {
	return &RedisSubscriber{client: client, logger: database.GetLogger()}
}

// SetLogger replaces the subscriber logger.
func (s *RedisSubscriber) SetLogger(logger database.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

func (s *RedisSubscriber) Subscribe(ctx context.Context, topic string, handler Handler) error {
	if err := checkSubscription(topic, handler); err != nil {
		return err
	}
	sub := s.client.Subscribe(ctx, topic)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return types.NewPublishError(topic, err)
	}
	s.logger.Info("Subscribed to topic", "topic", topic)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := handler(ctx, []byte(msg.Payload)); err != nil {
				s.logger.Error("Failed to handle event", "topic", topic, "error", err)
			}
		}
	}
}

// StreamSubscriber reads events appended by StreamPublisher through a
// consumer group. An entry is acknowledged only after its handler succeeds;
// entries left unacknowledged are read again from the consumer's pending
// list on start and after each failure.
type StreamSubscriber struct {
	client     rueidis.Client
	group      string
	consumer   string
	block      time.Duration
	retryDelay time.Duration
	logger     database.Logger
}

func NewStreamSubscriber(client rueidis.Client, group, consumer string) *StreamSubscriber {
	return &StreamSubscriber{
		client:     client,
		group:      group,
		consumer:   consumer,
		block:      time.Second,
		retryDelay: time.Second,
		logger:     database.GetLogger(),
	}
}

// SetLogger replaces the subscriber logger.
func (s *StreamSubscriber) SetLogger(logger database.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

func (s *StreamSubscriber) Subscribe(ctx context.Context, topic string, handler Handler) error {
	if err := checkSubscription(topic, handler); err != nil {
		return err
	}
	if s.group == "" || s.consumer == "" {
		return types.NewArgumentError("group", "group and consumer must not be empty")
	}
	if err := s.createGroup(ctx, topic); err != nil {
		return err
	}
	s.logger.Info("Consuming stream", "topic", topic, "group", s.group, "consumer", s.consumer)

	backlog := true
	for ctx.Err() == nil {
		entries, err := s.read(ctx, topic, backlog)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.logger.Error("Failed to read stream", "topic", topic, "error", err)
			s.wait(ctx)
			continue
		}
		if backlog && len(entries) == 0 {
			backlog = false
			continue
		}
		failed := false
		for _, entry := range entries {
			if !s.dispatch(ctx, topic, entry, handler) {
				failed = true
			}
		}
		if failed {
			backlog = true
			s.wait(ctx)
		}
	}
	return nil
}

func (s *StreamSubscriber) wait(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(s.retryDelay):
	}
}

func (s *StreamSubscriber) createGroup(ctx context.Context, topic string) error {
	cmd := s.client.B().XgroupCreate().Key(topic).Group(s.group).Id("0").Mkstream().Build()
	err := s.client.Do(ctx, cmd).Error()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return types.NewPublishError(topic, err)
	}
	return nil
}

// read returns the consumer's pending entries when backlog is set, otherwise
// waits for entries never delivered to the group.
func (s *StreamSubscriber) read(ctx context.Context, topic string, backlog bool) ([]rueidis.XRangeEntry, error) {
	count := s.client.B().Xreadgroup().Group(s.group, s.consumer).Count(10)
	var cmd rueidis.Completed
	if backlog {
		cmd = count.Streams().Key(topic).Id("0").Build()
	} else {
		cmd = count.Block(s.block.Milliseconds()).Streams().Key(topic).Id(">").Build()
	}
	result := s.client.Do(ctx, cmd)
	if err := result.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, err
	}
	streams, err := result.AsXRead()
	if err != nil {
		return nil, err
	}
	return streams[topic], nil
}

// dispatch hands one entry to handler and acknowledges it on success.
// Entries trimmed from the stream while pending carry no fields and are
// acknowledged without a call.
func (s *StreamSubscriber) dispatch(ctx context.Context, topic string, entry rueidis.XRangeEntry, handler Handler) bool {
	if entry.FieldValues != nil {
		if err := handler(ctx, []byte(entry.FieldValues["payload"])); err != nil {
			s.logger.Error("Failed to handle event", "topic", topic, "id", entry.ID, "error", err)
			return false
		}
	}
	ack := s.client.B().Xack().Key(topic).Group(s.group).Id(entry.ID).Build()
	if err := s.client.Do(ctx, ack).Error(); err != nil {
		s.logger.Warn("Failed to acknowledge event", "topic", topic, "id", entry.ID, "error", err)
	}
	return true
}

var (
	_ Subscriber = (*RedisSubscriber)(nil)
	_ Subscriber = (*StreamSubscriber)(nil)
)
