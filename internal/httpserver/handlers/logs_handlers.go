package handlers

import (
	"net/http"
	"strconv"

	"eventflow/internal/apperr"
	"eventflow/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuditLogs lists recent audit entries, optionally filtered by action.
func AuditLogs(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 200
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
		q := db.WithContext(r.Context()).Order("created_at desc, id desc").Limit(limit)
		if action := r.URL.Query().Get("action"); action != "" {
			q = q.Where("action = ?", action)
		}
		logs := []models.AuditLog{}
		if err := q.Find(&logs).Error; err != nil {
			respondError(w, lg, r, apperr.Classify(err, "audit logs"))
			return
		}
		respondJSON(w, logs)
	}
}
