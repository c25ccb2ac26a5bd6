package api

import (
	"embed"
	"net/http"
)

//go:embed page/index.html
var pageFS embed.FS

// handleIndex serves the single-page chat UI.
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	data, err := pageFS.ReadFile("page/index.html")
	if err != nil {
		writeError(w, s.logger, http.StatusInternalServerError, "page unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}
