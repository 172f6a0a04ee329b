package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"eventflow/internal/apperr"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func respondJSON(w http.ResponseWriter, v interface{}) {
	respondStatus(w, http.StatusOK, v)
}

func respondStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

type errorBody struct {
	Detail string `json:"detail"`
	Kind   string `json:"kind,omitempty"`
}

// respondError writes err as {"detail": ...} with the status of its kind.
// Internal failures are logged and answered with a generic message.
func respondError(w http.ResponseWriter, lg *zap.SugaredLogger, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := kind.HTTPStatus()
	if status >= http.StatusInternalServerError {
		lg.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "kind", kind.String(), "error", err)
		respondStatus(w, status, errorBody{Detail: "internal error", Kind: kind.String()})
		return
	}
	respondStatus(w, status, errorBody{Detail: err.Error(), Kind: kind.String()})
}

func badRequest(w http.ResponseWriter, msg string) {
	respondStatus(w, http.StatusBadRequest, errorBody{Detail: msg, Kind: apperr.KindInvalidInput.String()})
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}
