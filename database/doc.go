// Package database provides connection management, migrations, query hooks,
// configuration types, logging, health checks, and related utilities built
// on top of Bun.
package database
