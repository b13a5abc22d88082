// Package server exposes the export/import operations over HTTP.
package server

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"gitlab.com/yelinaung/rentbook/internal/backup"
)

// Server wires the backup engine and the bill-save entry point into an
// HTTP handler. It carries no state of its own beyond its collaborators.
type Server struct {
	store    backup.Store
	importer *backup.Importer
	exporter *backup.Exporter
	auto     *backup.AutoBackup
}

// New creates a Server.
func New(store backup.Store, importer *backup.Importer, exporter *backup.Exporter, auto *backup.AutoBackup) *Server {
	return &Server{
		store:    store,
		importer: importer,
		exporter: exporter,
		auto:     auto,
	}
}

// Handler returns the otel-instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/export", s.handleExport)
	mux.HandleFunc("POST /v1/import", s.handleImport)
	mux.HandleFunc("POST /v1/import/auto", s.handleImportAuto)
	mux.HandleFunc("POST /v1/bills", s.handleSaveBill)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return otelhttp.NewHandler(mux, "rentbook")
}
