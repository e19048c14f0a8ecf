// Package migrations — SQL-миграции goose, вшитые в бинарь.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
