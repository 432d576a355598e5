// Package web embeds the single-page dashboard.
package web

import (
	"embed"
	"net/http"
)

//go:embed index.html
var files embed.FS

// Handler serves the embedded dashboard at /.
func Handler() http.Handler {
	return http.FileServer(http.FS(files))
}
