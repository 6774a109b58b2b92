// Package site serves the field display: a static page that subscribes to a
// match's frame stream and draws the timer, phase and robot glyphs.
package site

import (
	"context"
	"net/http"
)

// Register attaches the display routes to mux.
//
//	GET /display/           -> display page, ?match=<id>
//	GET /display/display.js -> frame renderer
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET /display/", http.StripPrefix("/display/", http.FileServer(FS())))
}
