// Package migrations holds the application store schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
