package handlers

import (
	"net/http"
	"strconv"

	"eventflow/internal/auth"
	"eventflow/internal/services/invoicing"

	"go.uber.org/zap"
)

type generateReq struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// GenerateMonthlyInvoices always answers 200 with a report once the batch
// has started; per-client failures are reported, not raised.
func GenerateMonthlyInvoices(gen *invoicing.Generator, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateReq
		if err := decode(r, &req); err != nil {
			badRequest(w, err.Error())
			return
		}
		rep, err := gen.Generate(r.Context(), req.Month, req.Year, auth.Subject(r.Context()))
		if err != nil {
			respondError(w, lg, r, err)
			return
		}
		respondJSON(w, rep)
	}
}

func ListInvoices(gen *invoicing.Generator, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		month, err1 := strconv.Atoi(r.URL.Query().Get("month"))
		year, err2 := strconv.Atoi(r.URL.Query().Get("year"))
		if err1 != nil || err2 != nil {
			badRequest(w, "month and year query parameters are required")
			return
		}
		list, err := gen.List(r.Context(), month, year)
		if err != nil {
			respondError(w, lg, r, err)
			return
		}
		respondJSON(w, list)
	}
}
