// Package migrations embeds the schema migrations for every supported
// database driver. Each driver has its own directory of goose SQL files.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS

// For returns the migration directory for the given dialect directory name
// ("postgres" or "sqlite").
func For(dir string) (fs.FS, error) {
	sub, err := fs.Sub(Migrations, dir)
	if err != nil {
		return nil, fmt.Errorf("migrations for %s: %w", dir, err)
	}
	return sub, nil
}
