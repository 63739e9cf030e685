package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/hay-kot/criterio"

	"github.com/colonyops/sopform/internal/core/change"
	"github.com/colonyops/sopform/internal/core/gate"
	"github.com/colonyops/sopform/internal/core/validate"
	"github.com/colonyops/sopform/internal/sopform"
	"github.com/colonyops/sopform/pkg/iojson"
)

const maxBodyBytes = 1 << 20

type errorPayload struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = iojson.WriteLine(w, v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorPayload{Error: msg})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		pe        *gate.PreconditionError
		fieldErrs criterio.FieldErrors
	)
	switch {
	case errors.Is(err, validate.ErrInvalidChangeID),
		errors.Is(err, gate.ErrUnknownGate),
		errors.Is(err, gate.ErrVerifyNotConfigured),
		errors.As(err, &fieldErrs):
		return http.StatusBadRequest
	case errors.As(err, &pe):
		return http.StatusConflict
	case errors.Is(err, sopform.ErrChangeNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, status, err.Error())
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) config(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		OpenSpecRoot     string `json:"openspecRoot"`
		VerifyConfigured bool   `json:"verifyConfigured"`
	}{
		OpenSpecRoot:     s.app.Changes.Root(),
		VerifyConfigured: s.app.Gates.VerifyConfigured(),
	})
}

func (s *Server) listChanges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Changes []string `json:"changes"`
	}{Changes: s.app.Changes.IDs(r.Context())})
}

func (s *Server) changeStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.app.Changes.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) writeDecision(w http.ResponseWriter, r *http.Request) {
	var d change.Decision
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	if err := s.app.Changes.WriteDecision(r.Context(), r.PathValue("id"), d); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) runGate(w http.ResponseWriter, r *http.Request) {
	g, err := gate.Parse(r.PathValue("gate"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	force := false
	if v := r.URL.Query().Get("force"); v != "" {
		if force, err = strconv.ParseBool(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid force value: "+v)
			return
		}
	}

	// a disconnecting client does not stop a gate that already started
	ctx := context.WithoutCancel(r.Context())

	res, err := s.app.Gates.Run(ctx, r.PathValue("id"), g, sopform.RunOptions{Force: force})
	switch {
	case errors.Is(err, sopform.ErrNotRecorded):
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("gate result not recorded")
		writeJSON(w, http.StatusInternalServerError, struct {
			gate.Result
			Error string `json:"error"`
		}{Result: res, Error: err.Error()})
		return
	case err != nil:
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) gateReport(w http.ResponseWriter, r *http.Request) {
	entries, err := s.app.Gates.Log(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Entries []gate.Entry `json:"entries"`
	}{Entries: entries})
}

func (s *Server) enabledGates(w http.ResponseWriter, r *http.Request) {
	enabled, err := s.app.Gates.Enabled(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enabled)
}
