package queue_store

import "embed"

// Migrations embeds the goose SQL migrations for the queued_jobs table so
// the binary carries its own schema, the way the teacher's coredb module
// embeds its migrations for cmd/migrate.go.
//
//go:embed migrations/*.sql
var Migrations embed.FS
