// Package repository provides the relational repository built on Bun: staged
// writes through a unit of work, composable queries and pagination.
package repository
