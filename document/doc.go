// Package document provides the MongoDB repository variant. Writes are
// applied immediately; reads share the query and pagination contracts of
// the relational repository.
package document
