package server

import "net/http"

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /api/config", s.config)
	mux.HandleFunc("GET /api/changes", s.listChanges)
	mux.HandleFunc("GET /api/change/{id}/status", s.changeStatus)
	mux.HandleFunc("POST /api/change/{id}/write", s.writeDecision)
	mux.HandleFunc("POST /api/change/{id}/gate/{gate}", s.runGate)
	mux.HandleFunc("GET /api/change/{id}/gate-report", s.gateReport)
	mux.HandleFunc("GET /api/change/{id}/gates", s.enabledGates)
	return mux
}
