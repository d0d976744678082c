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

package types

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every store variant. Callers match them with
// errors.Is; the typed errors below wrap them with context.
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("not found")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrPublishUnavailable  = errors.New("publish unavailable")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// ArgumentError reports an absent or ill-formed input.
type ArgumentError struct {
	Field   string
	Message string
}

func (e *ArgumentError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid argument: %s", e.Message)
	}
	return fmt.Sprintf("invalid argument %s: %s", e.Field, e.Message)
}

func (e *ArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// NewArgumentError builds an ArgumentError for the named field.
func NewArgumentError(field, message string) error {
	return &ArgumentError{Field: field, Message: message}
}

// NotFoundError reports an explicit lookup that expected a record.
type NotFoundError struct {
	Resource string
	Key      any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError builds a NotFoundError for resource/key.
func NewNotFoundError(resource string, key any) error {
	return &NotFoundError{Resource: resource, Key: key}
}

// StoreError wraps a connectivity or timeout failure of an underlying store.
type StoreError struct {
	Store string
	Op    string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: store unavailable: %v", e.Store, e.Op, e.Err)
}

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err as a StoreUnavailable failure of op on store.
func NewStoreError(store, op string, err error) error {
	return &StoreError{Store: store, Op: op, Err: err}
}

// PublishError wraps a transport failure of the event emission hook.
type PublishError struct {
	Topic string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s: %v", e.Topic, e.Err)
}

func (e *PublishError) Is(target error) bool { return target == ErrPublishUnavailable }

func (e *PublishError) Unwrap() error { return e.Err }

// NewPublishError wraps err as a PublishUnavailable failure for topic.
func NewPublishError(topic string, err error) error {
	return &PublishError{Topic: topic, Err: err}
}

// IsInvalidArgument reports whether err is an InvalidArgument failure.
func IsInvalidArgument(err error) bool { return errors.Is(err, ErrInvalidArgument) }

// IsNotFound reports whether err is a NotFound failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsStoreUnavailable reports whether err is a StoreUnavailable failure.
func IsStoreUnavailable(err error) bool { return errors.Is(err, ErrStoreUnavailable) }

// IsPublishUnavailable reports whether err is a PublishUnavailable failure.
func IsPublishUnavailable(err error) bool { return errors.Is(err, ErrPublishUnavailable) }
