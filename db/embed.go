// Package db embeds the TasteTrack schema and the demo catalog.
package db

import _ "embed"

// Schema is applied idempotently at startup by the postgres storage.
//
//go:embed migrations/001_schema.sql
var Schema string

// Fixtures is the demo restaurant and menu catalog loaded by seed-db when no
// fixtures file is given.
//
//go:embed seed/fixtures.json
var Fixtures []byte
