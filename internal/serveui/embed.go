// Package serveui embeds the browser chat page served by `alicia serve`.
package serveui

import (
	"embed"
	"io/fs"
)

//go:embed static
var staticFS embed.FS

// IndexHTML returns the chat page.
func IndexHTML() []byte {
	data, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		panic("serveui: index.html missing from embedded assets")
	}
	return data
}

// Assets returns the stylesheet and script the page loads from /static/.
func Assets() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
