// Package assets embeds the static files served under /static.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed static
var static embed.FS

// FS returns the static files with the "static" prefix removed.
func FS() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
