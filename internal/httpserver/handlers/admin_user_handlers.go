package handlers

import (
	"net/http"

	"eventflow/internal/apperr"
	"eventflow/internal/auth"
	"eventflow/internal/models"
	"eventflow/internal/notify"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type pendingUser struct {
	ID     string  `json:"id"`
	Email  string  `json:"email"`
	Nom    *string `json:"nom"`
	Prenom *string `json:"prenom"`
}

func PendingUsers(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var users []models.User
		err := db.WithContext(r.Context()).
			Where("statut_validation = ?", models.UserPending).
			Order("created_at asc").
			Find(&users).Error
		if err != nil {
			respondError(w, lg, r, apperr.Classify(err, "users"))
			return
		}
		out := make([]pendingUser, 0, len(users))
		for _, u := range users {
			out = append(out, pendingUser{ID: u.ID, Email: u.Email, Nom: u.Nom, Prenom: u.Prenom})
		}
		respondJSON(w, out)
	}
}

type userIDReq struct {
	UserID string `json:"user_id"`
}

// ApproveUser validates a registration and notifies the user. A failed
// notification does not undo the approval.
func ApproveUser(db *gorm.DB, n notify.Notifier, baseURL string, lg *zap.SugaredLogger) http.HandlerFunc {
	return setUserStatus(db, lg, models.UserValidated, "USER_APPROVE", func(r *http.Request, u models.User) {
		notify.Send(r.Context(), n, lg, notify.Approved(recipient(u), baseURL))
	})
}

func RejectUser(db *gorm.DB, n notify.Notifier, lg *zap.SugaredLogger) http.HandlerFunc {
	return setUserStatus(db, lg, models.UserRejected, "USER_REJECT", func(r *http.Request, u models.User) {
		notify.Send(r.Context(), n, lg, notify.Rejected(recipient(u)))
	})
}

func setUserStatus(db *gorm.DB, lg *zap.SugaredLogger, status, action string, after func(*http.Request, models.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req userIDReq
		if err := decode(r, &req); err != nil {
			badRequest(w, err.Error())
			return
		}
		if req.UserID == "" {
			badRequest(w, "user_id required")
			return
		}
		var u models.User
		if err := db.WithContext(r.Context()).First(&u, "id = ?", req.UserID).Error; err != nil {
			respondError(w, lg, r, apperr.Classify(err, "user"))
			return
		}
		if err := db.WithContext(r.Context()).Model(&u).Update("statut_validation", status).Error; err != nil {
			respondError(w, lg, r, apperr.Classify(err, "user"))
			return
		}
		uid := auth.Subject(r.Context())
		_ = db.WithContext(r.Context()).Create(&models.AuditLog{
			UserID:   &uid,
			Action:   action,
			Metadata: models.NewJSONB(map[string]any{"user_id": u.ID}),
		}).Error
		lg.Infow("user status changed", "user_id", u.ID, "status", status)

		after(r, u)
		respondJSON(w, map[string]any{"message": "user " + u.ID + " is now " + status})
	}
}
