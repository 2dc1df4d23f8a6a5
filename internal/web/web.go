// Package web embeds the browser client used to record or pick audio and submit it.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var static embed.FS

// Handler serves the client page and its assets rooted at "/"
func Handler() http.Handler {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		// static is a literal directory of the embed above
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
