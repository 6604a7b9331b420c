package http

import (
	"embed"
	"net/http"
)

//go:embed static
var staticFiles embed.FS

func staticHandler() http.Handler {
	return http.FileServer(http.FS(staticFiles))
}
