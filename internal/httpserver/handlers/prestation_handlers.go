package handlers

import (
	"net/http"

	"eventflow/internal/auth"
	"eventflow/internal/models"
	"eventflow/internal/services/prestation"

	"go.uber.org/zap"
)

type createPrestationReq struct {
	Date      *models.Date      `json:"date_prestation"`
	Start     *models.ClockTime `json:"heure_debut"`
	End       *models.ClockTime `json:"heure_fin"`
	ClientID  int64             `json:"client_id"`
	ProjectID int64             `json:"project_id"`
	Adresse   *string           `json:"adresse"`
}

// CreatePrestation records a session for the authenticated collaborator.
func CreatePrestation(svc *prestation.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPrestationReq
		if err := decode(r, &req); err != nil {
			badRequest(w, err.Error())
			return
		}
		if req.Date == nil || req.Start == nil || req.End == nil {
			badRequest(w, "date_prestation, heure_debut and heure_fin are required")
			return
		}
		p, err := svc.Create(r.Context(), auth.Subject(r.Context()), prestation.CreateInput{
			Date:      *req.Date,
			Start:     *req.Start,
			End:       *req.End,
			ClientID:  req.ClientID,
			ProjectID: req.ProjectID,
			Adresse:   req.Adresse,
		})
		if err != nil {
			respondError(w, lg, r, err)
			return
		}
		respondStatus(w, http.StatusCreated, p)
	}
}

func MyPrestations(svc *prestation.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListForUser(r.Context(), auth.Subject(r.Context()))
		if err != nil {
			respondError(w, lg, r, err)
			return
		}
		respondJSON(w, list)
	}
}

func PendingPrestations(svc *prestation.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListPending(r.Context())
		if err != nil {
			respondError(w, lg, r, err)
			return
		}
		respondJSON(w, list)
	}
}

func UpdatePrestation(svc *prestation.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			badRequest(w, "invalid prestation id")
			return
		}
		var patch prestation.Patch
		if err := decode(r, &patch); err != nil {
			badRequest(w, err.Error())
			return
		}
		d, err := svc.Edit(r.Context(), id, patch)
		if err != nil {
			respondError(w, lg, r, err)
			return
		}
		respondJSON(w, d)
	}
}

func ValidatePrestation(svc *prestation.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			badRequest(w, "invalid prestation id")
			return
		}
		p, err := svc.Validate(r.Context(), id, auth.Subject(r.Context()))
		if err != nil {
			respondError(w, lg, r, err)
			return
		}
		respondJSON(w, map[string]any{
			"message":               "prestation validated",
			"prestation_id":         p.ID,
			"status":                p.Status,
			"tarif_horaire_utilise": p.AppliedRate,
		})
	}
}
