// Package migrations embeds the ledger schema.
package migrations

import "embed"

// FS contains the ledger's SQLite migrations, applied in name order.
//
//go:embed *.sql
var FS embed.FS
