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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/tomoncle/shopkit/config"
	"github.com/tomoncle/shopkit/events"
	"github.com/tomoncle/shopkit/ordering"
)

func ordersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Read orders and consume checkout events",
	}

	var pf pageFlags
	var userName string
	list := &cobra.Command{
		Use:   "list",
		Short: "Print one page of orders, or every order of a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			factory, err := a.openDatabase(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer factory.Close()
			svc := ordering.NewService(factory.GetDB())
			if userName != "" {
				orders, err := svc.GetOrdersByUserName(cmd.Context(), userName)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), orders)
			}
			params, err := pf.params(a.cfg)
			if err != nil {
				return err
			}
			page, err := svc.GetOrders(cmd.Context(), params)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), page)
		},
	}
	pf.bind(list)
	list.Flags().StringVar(&userName, "user", "", "list every order of this user instead of a page")

	var group, consumer string
	consume := &cobra.Command{
		Use:   "consume",
		Short: "Create orders from basket checkout events until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			factory, err := a.openDatabase(ctx, false)
			if err != nil {
				return err
			}
			defer factory.Close()
			svc := ordering.NewService(factory.GetDB())

			sub, closeSub, err := newSubscriber(a.cfg, group, consumer)
			if err != nil {
				return err
			}
			defer closeSub()

			return sub.Subscribe(ctx, events.BasketCheckoutTopic, func(ctx context.Context, payload []byte) error {
				id, err := svc.HandleBasketCheckout(ctx, payload)
				if err != nil {
					return err
				}
				logger().WithField("orderId", id).Info("Order created from checkout")
				return nil
			})
		},
	}
	consume.Flags().StringVar(&group, "group", "ordering", "stream consumer group")
	consume.Flags().StringVar(&consumer, "consumer", "shopctl", "stream consumer name")

	cmd.AddCommand(list, consume)
	return cmd
}

// newSubscriber builds the subscriber for the configured transport and a
// function releasing its client.
func newSubscriber(cfg *config.Config, group, consumer string) (events.Subscriber, func(), error) {
	if cfg.Redis.Transport == config.TransportStream {
		client, err := events.NewStreamClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return events.NewStreamSubscriber(client, group, consumer), client.Close, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return events.NewRedisSubscriber(client), func() { _ = client.Close() }, nil
}
