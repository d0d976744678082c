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

// Key is the set of identity types a persisted record may use: numeric
// surrogate keys for relational tables, string keys for documents.
type Key interface {
	~int64 | ~string
}

// Entity is the base shape of every persisted record.
type Entity[K Key] interface {
	Identity() K
}

// Document is an entity stored in a document collection. CollectionName is
// declared on the value type so the zero value resolves it.
type Document interface {
	Entity[string]
	CollectionName() string
}

// IdentityAssigner is implemented by document entities that accept a
// generated identity on create.
type IdentityAssigner interface {
	AssignIdentity(id string)
}

// CollectionOf resolves the collection name bound to document type T.
func CollectionOf[T Document]() string {
	var zero T
	return zero.CollectionName()
}

// IsZeroKey reports whether k is the zero value of its key type.
func IsZeroKey[K Key](k K) bool {
	var zero K
	return k == zero
}
