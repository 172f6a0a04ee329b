package handlers

import (
	"net/http"
	"strings"

	"eventflow/internal/apperr"
	"eventflow/internal/auth"
	"eventflow/internal/models"
	"eventflow/internal/notify"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type registerReq struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Nom      *string `json:"nom"`
	Prenom   *string `json:"prenom"`
}

// Register creates a pending collaborator and tells the director.
func Register(db *gorm.DB, n notify.Notifier, directorEmail, baseURL string, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerReq
		if err := decode(r, &req); err != nil {
			badRequest(w, err.Error())
			return
		}
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" {
			badRequest(w, "email required")
			return
		}
		if err := auth.ValidatePassword(req.Password); err != nil {
			badRequest(w, err.Error())
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			respondError(w, lg, r, err)
			return
		}
		u := models.User{
			Email:        req.Email,
			PasswordHash: hash,
			Nom:          req.Nom,
			Prenom:       req.Prenom,
			Role:         models.RoleCollaborator,
			Status:       models.UserPending,
		}
		if err := db.WithContext(r.Context()).Create(&u).Error; err != nil {
			respondError(w, lg, r, apperr.Classify(err, "user"))
			return
		}
		lg.Infow("user registered", "user_id", u.ID)
		notify.Send(r.Context(), n, lg, notify.NewRegistration(recipient(u), directorEmail, baseURL))
		respondStatus(w, http.StatusCreated, map[string]any{"id": u.ID, "email": u.Email, "statut_validation": u.Status})
	}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func Login(db *gorm.DB, signer *auth.Signer, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := decode(r, &req); err != nil {
			badRequest(w, err.Error())
			return
		}
		var u models.User
		if err := db.WithContext(r.Context()).First(&u, "email = ?", strings.TrimSpace(strings.ToLower(req.Email))).Error; err != nil {
			respondError(w, lg, r, apperr.New(apperr.KindUnauthorized, "invalid credentials"))
			return
		}
		if err := auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
			respondError(w, lg, r, apperr.New(apperr.KindUnauthorized, "invalid credentials"))
			return
		}
		tok, err := signer.Sign(u.ID)
		if err != nil {
			respondError(w, lg, r, err)
			return
		}
		respondJSON(w, map[string]any{"token": tok, "token_type": "bearer"})
	}
}

func Me(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u models.User
		if err := db.WithContext(r.Context()).First(&u, "id = ?", auth.Subject(r.Context())).Error; err != nil {
			respondError(w, lg, r, apperr.Classify(err, "user"))
			return
		}
		respondJSON(w, u)
	}
}

func recipient(u models.User) notify.Recipient {
	rc := notify.Recipient{UserID: u.ID, Email: u.Email}
	if u.Nom != nil {
		rc.Nom = *u.Nom
	}
	if u.Prenom != nil {
		rc.Prenom = *u.Prenom
	}
	return rc
}
