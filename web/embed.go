package webassets

import (
	"embed"
	"io/fs"
)

//go:embed index.html
var files embed.FS

// App returns the front page assets served under /app/.
func App() fs.FS {
	return files
}
