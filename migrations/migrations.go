// Package migrations embute os arquivos SQL versionados pelo goose.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
