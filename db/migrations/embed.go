// Package migrations embeds the goose SQL migrations so commands and tests
// can apply them without a working directory dependency.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
