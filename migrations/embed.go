// Package migrations embeds the SQL migration files, one directory per
// module. File names follow YYYYMMDDHHMMSS_description.sql; the timestamp
// prefix is the version recorded in the auth.module_version ledger.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed base auth cache
var files embed.FS

// Files returns the embedded migration tree.
func Files() fs.FS { return files }

// Allowed lists the module names an invocation may request, in their
// canonical apply order.
func Allowed() []string { return []string{"base", "auth", "cache"} }

func IsAllowed(module string) bool {
	for _, m := range Allowed() {
		if m == module {
			return true
		}
	}
	return false
}
