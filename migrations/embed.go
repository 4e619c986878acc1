// Package migrations embeds SQL migration files.
package migrations

import "embed"

// PostgresFS contiene las migraciones del schema Postgres.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// PostgresDir es el directorio dentro de PostgresFS con las migraciones.
const PostgresDir = "postgres"
