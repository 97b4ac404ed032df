// Package migrations holds the embedded account schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
