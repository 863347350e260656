// Package sqlite is the registry database (registry.db in the data
// directory). One connection serves both the uploaded document registry and
// the corpus run history; vectors live in the vectorindex backends instead.
//
// The schema is applied from the embedded migrations/*.sql files on open.
// The database runs in WAL mode with a busy timeout, so the CLI and a
// running server can share it.
package sqlite
