// Package site serves the embedded live console.
package site

import (
	"context"
	"errors"
	"net/http"
)

// ErrAssetMissing is returned when an embedded console asset cannot be read.
var ErrAssetMissing = errors.New("console asset missing")

const indexFile = "index.html"

// Register attaches the live console to mux at the exact root path.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /{$}", NewRootHandler().HandleRoot)
}

// RootHandler serves the console page.
type RootHandler struct {
	page []byte
	err  error
}

// NewRootHandler creates a root handler with the embedded page loaded.
func NewRootHandler() *RootHandler {
	page, err := Index()
	return &RootHandler{page: page, err: err}
}

// HandleRoot handles GET / requests.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, _ *http.Request) {
	if h.err != nil {
		http.Error(w, h.err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.page)
}
