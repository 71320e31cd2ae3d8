// Package migrations embeds the per-dialect schema files.
package migrations

import (
	"embed"
	"io/fs"
	"os"
)

// FS holds sqlite/, postgres/ and mysql/ migration directories.
//
//go:embed sqlite/*.sql postgres/*.sql mysql/*.sql
var FS embed.FS

// Source returns the embedded migrations, or the directory at path when
// one is configured.
func Source(path string) fs.FS {
	if path == "" {
		return FS
	}
	return os.DirFS(path)
}
