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

package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/tomoncle/shopkit/database"

var slowLabel = color.New(color.FgYellow, color.Bold).SprintFunc()

// SlowQueryHook logs a warning for every successful query slower than
// SlowTime.
type SlowQueryHook struct {
	SlowTime time.Duration
	Logger   Logger
}

var _ bun.QueryHook = (*SlowQueryHook)(nil)

func (h *SlowQueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *SlowQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if event.Err != nil || h.Logger == nil || h.SlowTime <= 0 {
		return
	}
	duration := time.Since(event.StartTime)
	if duration > h.SlowTime {
		h.Logger.Warn(slowLabel("Database slow query detected"),
			"duration", duration.Round(time.Microsecond),
			"slow_threshold", h.SlowTime,
			"operation", event.Operation(),
			"query", event.Query,
		)
	}
}

type spanKey struct{}

// TracingHook opens an OpenTelemetry client span around every query.
type TracingHook struct {
	tracer trace.Tracer
	system string
}

var _ bun.QueryHook = (*TracingHook)(nil)

// NewTracingHook creates a hook that tags spans with the db.system name.
func NewTracingHook(system string) *TracingHook {
	return &TracingHook{tracer: otel.Tracer(tracerName), system: system}
}

func (h *TracingHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	ctx, span := h.tracer.Start(ctx, "db."+event.Operation(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.system", h.system)),
	)
	return context.WithValue(ctx, spanKey{}, span)
}

func (h *TracingHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	span, ok := ctx.Value(spanKey{}).(trace.Span)
	if !ok {
		return
	}
	defer span.End()
	span.SetAttributes(
		attribute.String("db.operation", event.Operation()),
		attribute.String("db.statement", event.Query),
	)
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		span.RecordError(event.Err)
		span.SetStatus(codes.Error, event.Err.Error())
	}
}
