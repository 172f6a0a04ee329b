package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"eventflow/internal/auth"
	"eventflow/internal/httpserver"
	"eventflow/internal/lock"
	"eventflow/internal/metrics"
	"eventflow/internal/models"
	"eventflow/internal/notify"
	"eventflow/internal/services/invoicing"
	"eventflow/internal/services/prestation"
	"eventflow/internal/testfixtures"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (n *recordingNotifier) Notify(_ context.Context, m notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, m)
	return nil
}

type memPublisher struct{ objects map[string][]byte }

func (p *memPublisher) Publish(_ context.Context, path string, data []byte, _ string) error {
	p.objects[path] = data
	return nil
}

func (p *memPublisher) Locator(path string) (string, error) {
	return "https://files.eventflow.test/" + path, nil
}

type stubRenderer struct{}

func (stubRenderer) Render(doc invoicing.Document) ([]byte, error) {
	return []byte(fmt.Sprintf("%%PDF-1.3 invoice %d", doc.InvoiceID)), nil
}

type server struct {
	t      *testing.T
	db     *gorm.DB
	h      http.Handler
	signer *auth.Signer
	notes  *recordingNotifier
}

func newServer(t *testing.T) *server {
	t.Helper()
	db := testfixtures.OpenDB(t)
	lg := zap.NewNop().Sugar()
	m := metrics.New()
	signer, err := auth.NewSigner("router-test-secret-0123456789", time.Hour)
	require.NoError(t, err)
	notes := &recordingNotifier{}
	h := httpserver.NewRouter(httpserver.Deps{
		DB:            db,
		Log:           lg,
		Signer:        signer,
		Prestations:   prestation.New(db, lg, m),
		Invoices:      invoicing.NewGenerator(db, lg, stubRenderer{}, &memPublisher{objects: map[string][]byte{}}, lock.NewLocal(), m),
		Notifier:      notes,
		Metrics:       m,
		AppBaseURL:    "https://app.eventflow.test",
		DirectorEmail: "director@eventflow.test",
	})
	return &server{t: t, db: db, h: h, signer: signer, notes: notes}
}

func (s *server) do(method, path, userID string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		tok, err := s.signer.Sign(userID)
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestPrestationToInvoiceFlow(t *testing.T) {
	s := newServer(t)
	admin := testfixtures.User(t, s.db, "admin@eventflow.test", models.RoleAdmin, models.UserValidated)
	collab := testfixtures.User(t, s.db, "collab@eventflow.test", models.RoleCollaborator, models.UserValidated)
	client := testfixtures.Client(t, s.db, "Acme Events", testfixtures.Float(50))
	project := testfixtures.Project(t, s.db, client.ID, "Gala")

	rec := s.do(http.MethodPost, "/prestations", collab.ID, map[string]any{
		"date_prestation": "2024-02-29",
		"heure_debut":     "22:00",
		"heure_fin":       "02:00",
		"client_id":       client.ID,
		"project_id":      project.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.Prestation
	decodeBody(t, rec, &created)
	require.InDelta(t, 4.0, *created.Hours, 1e-9)
	require.Equal(t, models.PrestationPending, created.Status)

	require.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/prestations/pending", collab.ID, nil).Code)

	rec = s.do(http.MethodGet, "/prestations/pending", admin.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending []map[string]any
	decodeBody(t, rec, &pending)
	require.Len(t, pending, 1)
	require.Equal(t, "Acme Events", pending[0]["client_nom"])
	require.Equal(t, "Gala", pending[0]["project_nom"])

	path := fmt.Sprintf("/prestations/%d", created.ID)
	rec = s.do(http.MethodPut, path, admin.ID, map[string]any{"heure_fin": "03:30"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var edited map[string]any
	decodeBody(t, rec, &edited)
	require.Equal(t, 5.5, edited["heures_calculees"])
	require.Equal(t, "22:00:00", edited["heure_debut"])

	rec = s.do(http.MethodPost, path+"/validate", admin.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, path+"/validate", admin.ID, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/prestations/999/validate", admin.ID, nil).Code)

	rec = s.do(http.MethodPost, "/generate-monthly-invoices", admin.ID, map[string]int{"month": 2, "year": 2024})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rep struct {
		Message   string `json:"message"`
		Generated []struct {
			ClientID     int64   `json:"client_id"`
			ClientName   string  `json:"client_name"`
			MontantTotal float64 `json:"montant_total"`
			InvoiceID    int64   `json:"invoice_id"`
			LienPDF      *string `json:"lien_pdf"`
		} `json:"generated_invoices"`
	}
	decodeBody(t, rec, &rep)
	require.Len(t, rep.Generated, 1)
	require.Equal(t, 275.0, rep.Generated[0].MontantTotal)
	require.Equal(t, "Acme Events", rep.Generated[0].ClientName)
	require.NotNil(t, rep.Generated[0].LienPDF)

	rec = s.do(http.MethodPost, "/generate-monthly-invoices", admin.ID, map[string]int{"month": 2, "year": 2024})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &rep)
	require.Empty(t, rep.Generated)

	rec = s.do(http.MethodPost, "/generate-monthly-invoices", admin.ID, map[string]int{"month": 13, "year": 2024})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/invoices?month=2&year=2024", admin.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var invoices []map[string]any
	decodeBody(t, rec, &invoices)
	require.Len(t, invoices, 1)
}

func TestCreatePrestationErrors(t *testing.T) {
	s := newServer(t)
	collab := testfixtures.User(t, s.db, "collab@eventflow.test", models.RoleCollaborator, models.UserValidated)
	client := testfixtures.Client(t, s.db, "Acme Events", testfixtures.Float(50))

	rec := s.do(http.MethodPost, "/prestations", collab.ID, map[string]any{
		"date_prestation": "2024-03-01",
		"heure_debut":     "09:00",
		"heure_fin":       "10:00",
		"client_id":       client.ID,
		"project_id":      4242,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	require.Equal(t, "invalid_reference", body["kind"])

	rec = s.do(http.MethodPost, "/prestations", collab.ID, map[string]any{"date_prestation": "2024-03-01"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/prestations", "", map[string]any{}).Code)
}

func TestRegistrationAndApproval(t *testing.T) {
	s := newServer(t)
	admin := testfixtures.User(t, s.db, "admin@eventflow.test", models.RoleAdmin, models.UserValidated)

	rec := s.do(http.MethodPost, "/auth/register", "", map[string]any{
		"email": "New.Person@Example.com", "password": "long-enough", "prenom": "Noa",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reg map[string]string
	decodeBody(t, rec, &reg)
	require.Equal(t, models.UserPending, reg["statut_validation"])
	require.Len(t, s.notes.sent, 1)
	require.Equal(t, "director@eventflow.test", s.notes.sent[0].To)

	require.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/auth/register", "", map[string]any{
		"email": "new.person@example.com", "password": "long-enough",
	}).Code)

	rec = s.do(http.MethodGet, "/user-validation/pending", admin.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending []map[string]any
	decodeBody(t, rec, &pending)
	require.Len(t, pending, 1)

	rec = s.do(http.MethodPost, "/user-validation/approve", admin.ID, map[string]string{"user_id": reg["id"]})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, s.notes.sent, 2)
	require.Equal(t, "new.person@example.com", s.notes.sent[1].To)

	var u models.User
	require.NoError(t, s.db.First(&u, "id = ?", reg["id"]).Error)
	require.Equal(t, models.UserValidated, u.Status)

	rec = s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "new.person@example.com", "password": "long-enough"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "new.person@example.com", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	require.Equal(t, http.StatusNotFound,
		s.do(http.MethodPost, "/user-validation/reject", admin.ID, map[string]string{"user_id": "missing"}).Code)

	rec = s.do(http.MethodGet, "/audit-logs?action=USER_APPROVE", admin.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []map[string]any
	decodeBody(t, rec, &logs)
	require.Len(t, logs, 1)
}

func TestClientAdministration(t *testing.T) {
	s := newServer(t)
	admin := testfixtures.User(t, s.db, "admin@eventflow.test", models.RoleAdmin, models.UserValidated)
	collab := testfixtures.User(t, s.db, "collab@eventflow.test", models.RoleCollaborator, models.UserValidated)

	rec := s.do(http.MethodPost, "/clients", admin.ID, map[string]any{"nom": "Acme", "tarif_horaire": 40})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c models.Client
	decodeBody(t, rec, &c)

	require.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/clients", collab.ID, map[string]any{"nom": "X"}).Code)
	require.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/clients", admin.ID, map[string]any{"tarif_horaire": 40}).Code)

	rec = s.do(http.MethodPut, fmt.Sprintf("/clients/%d", c.ID), admin.ID, map[string]any{"tarif_horaire": 55.5})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &c)
	require.Equal(t, 55.5, *c.TarifHoraire)
	require.Equal(t, "Acme", c.Nom)

	rec = s.do(http.MethodPost, "/projects", admin.ID, map[string]any{"nom": "Expo", "client_id": c.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/projects", admin.ID, map[string]any{"nom": "Ghost", "client_id": 999}).Code)

	rec = s.do(http.MethodGet, "/projects?client_id="+fmt.Sprint(c.ID), collab.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var projects []models.Project
	decodeBody(t, rec, &projects)
	require.Len(t, projects, 1)

	require.Equal(t, http.StatusConflict, s.do(http.MethodDelete, fmt.Sprintf("/clients/%d", c.ID), admin.ID, nil).Code)
	require.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/clients/999", admin.ID, nil).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t)
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", "", nil).Code)
	rec := s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "eventflow_invoices_generated_total")
}
