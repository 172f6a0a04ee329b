package handlers

import (
	"net/http"
	"strings"

	"eventflow/internal/apperr"
	"eventflow/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type clientReq struct {
	Nom              *string  `json:"nom"`
	Adresse          *string  `json:"adresse"`
	EmailFacturation *string  `json:"email_facturation"`
	Telephone        *string  `json:"telephone"`
	TarifHoraire     *float64 `json:"tarif_horaire"`
	NumeroTVA        *string  `json:"numero_tva"`
}

func (req clientReq) validate() string {
	if req.Nom != nil && strings.TrimSpace(*req.Nom) == "" {
		return "nom must not be empty"
	}
	if req.TarifHoraire != nil && *req.TarifHoraire < 0 {
		return "tarif_horaire must not be negative"
	}
	return ""
}

func CreateClient(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req clientReq
		if err := decode(r, &req); err != nil {
			badRequest(w, err.Error())
			return
		}
		if req.Nom == nil {
			badRequest(w, "nom required")
			return
		}
		if msg := req.validate(); msg != "" {
			badRequest(w, msg)
			return
		}
		c := models.Client{
			Nom:              strings.TrimSpace(*req.Nom),
			Adresse:          req.Adresse,
			EmailFacturation: req.EmailFacturation,
			Telephone:        req.Telephone,
			TarifHoraire:     req.TarifHoraire,
			NumeroTVA:        req.NumeroTVA,
		}
		if err := db.WithContext(r.Context()).Create(&c).Error; err != nil {
			respondError(w, lg, r, apperr.Classify(err, "client"))
			return
		}
		respondStatus(w, http.StatusCreated, c)
	}
}

func ListClients(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs := []models.Client{}
		if err := db.WithContext(r.Context()).Order("nom asc").Find(&cs).Error; err != nil {
			respondError(w, lg, r, apperr.Classify(err, "clients"))
			return
		}
		respondJSON(w, cs)
	}
}

// UpdateClient changes the fields present in the body. A new rate only
// affects prestations validated afterwards.
func UpdateClient(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			badRequest(w, "invalid client id")
			return
		}
		var req clientReq
		if err := decode(r, &req); err != nil {
			badRequest(w, err.Error())
			return
		}
		if msg := req.validate(); msg != "" {
			badRequest(w, msg)
			return
		}
		var c models.Client
		if err := db.WithContext(r.Context()).First(&c, id).Error; err != nil {
			respondError(w, lg, r, apperr.Classify(err, "client"))
			return
		}
		if req.Nom != nil {
			c.Nom = strings.TrimSpace(*req.Nom)
		}
		if req.Adresse != nil {
			c.Adresse = req.Adresse
		}
		if req.EmailFacturation != nil {
			c.EmailFacturation = req.EmailFacturation
		}
		if req.Telephone != nil {
			c.Telephone = req.Telephone
		}
		if req.TarifHoraire != nil {
			c.TarifHoraire = req.TarifHoraire
		}
		if req.NumeroTVA != nil {
			c.NumeroTVA = req.NumeroTVA
		}
		if err := db.WithContext(r.Context()).Save(&c).Error; err != nil {
			respondError(w, lg, r, apperr.Classify(err, "client"))
			return
		}
		respondJSON(w, c)
	}
}

// DeleteClient refuses clients still referenced by projects, prestations
// or invoices.
func DeleteClient(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			badRequest(w, "invalid client id")
			return
		}
		res := db.WithContext(r.Context()).Delete(&models.Client{}, id)
		if res.Error != nil {
			respondError(w, lg, r, apperr.Classify(res.Error, "client"))
			return
		}
		if res.RowsAffected == 0 {
			respondError(w, lg, r, apperr.New(apperr.KindNotFound, "client %d not found", id))
			return
		}
		respondJSON(w, map[string]any{"deleted": true})
	}
}

type projectReq struct {
	Nom         string  `json:"nom"`
	Description *string `json:"description"`
	ClientID    int64   `json:"client_id"`
}

func CreateProject(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req projectReq
		if err := decode(r, &req); err != nil {
			badRequest(w, err.Error())
			return
		}
		if strings.TrimSpace(req.Nom) == "" || req.ClientID <= 0 {
			badRequest(w, "nom and client_id required")
			return
		}
		p := models.Project{Nom: strings.TrimSpace(req.Nom), Description: req.Description, ClientID: req.ClientID}
		if err := db.WithContext(r.Context()).Create(&p).Error; err != nil {
			if apperr.Violation(err) == apperr.ViolationForeignKey {
				respondError(w, lg, r, apperr.Wrap(apperr.KindInvalidReference, err, "client %d does not exist", req.ClientID))
				return
			}
			respondError(w, lg, r, apperr.Classify(err, "project"))
			return
		}
		respondStatus(w, http.StatusCreated, p)
	}
}

// ListProjects returns all projects, or those of ?client_id= when given.
func ListProjects(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := db.WithContext(r.Context()).Order("nom asc")
		if v := r.URL.Query().Get("client_id"); v != "" {
			q = q.Where("client_id = ?", v)
		}
		ps := []models.Project{}
		if err := q.Find(&ps).Error; err != nil {
			respondError(w, lg, r, apperr.Classify(err, "projects"))
			return
		}
		respondJSON(w, ps)
	}
}
