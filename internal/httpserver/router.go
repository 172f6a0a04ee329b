package httpserver

import (
	"net/http"

	"eventflow/internal/auth"
	"eventflow/internal/httpserver/handlers"
	"eventflow/internal/metrics"
	"eventflow/internal/notify"
	"eventflow/internal/services/invoicing"
	"eventflow/internal/services/prestation"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Deps struct {
	DB            *gorm.DB
	Log           *zap.SugaredLogger
	Signer        *auth.Signer
	Prestations   *prestation.Service
	Invoices      *invoicing.Generator
	Notifier      notify.Notifier
	Metrics       *metrics.Metrics
	AppBaseURL    string
	DirectorEmail string
}

func NewRouter(d Deps) http.Handler {
	db, lg := d.DB, d.Log
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)

	r.Post("/auth/login", handlers.Login(db, d.Signer, lg))
	r.Post("/auth/register", handlers.Register(db, d.Notifier, d.DirectorEmail, d.AppBaseURL, lg))

	r.Group(func(protected chi.Router) {
		protected.Use(auth.JWTAuth(db, d.Signer, lg))
		protected.Get("/me", handlers.Me(db, lg))
		protected.Post("/prestations", handlers.CreatePrestation(d.Prestations, lg))
		protected.Get("/prestations/mine", handlers.MyPrestations(d.Prestations, lg))
		protected.Get("/clients", handlers.ListClients(db, lg))
		protected.Get("/projects", handlers.ListProjects(db, lg))

		protected.Group(func(admin chi.Router) {
			admin.Use(auth.RequireAdmin)
			admin.Get("/prestations/pending", handlers.PendingPrestations(d.Prestations, lg))
			admin.Put("/prestations/{id}", handlers.UpdatePrestation(d.Prestations, lg))
			admin.Post("/prestations/{id}/validate", handlers.ValidatePrestation(d.Prestations, lg))

			admin.Post("/generate-monthly-invoices", handlers.GenerateMonthlyInvoices(d.Invoices, lg))
			admin.Get("/invoices", handlers.ListInvoices(d.Invoices, lg))

			admin.Post("/clients", handlers.CreateClient(db, lg))
			admin.Put("/clients/{id}", handlers.UpdateClient(db, lg))
			admin.Delete("/clients/{id}", handlers.DeleteClient(db, lg))
			admin.Post("/projects", handlers.CreateProject(db, lg))

			admin.Get("/user-validation/pending", handlers.PendingUsers(db, lg))
			admin.Post("/user-validation/approve", handlers.ApproveUser(db, d.Notifier, d.AppBaseURL, lg))
			admin.Post("/user-validation/reject", handlers.RejectUser(db, d.Notifier, lg))

			admin.Get("/audit-logs", handlers.AuditLogs(db, lg))
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	return r
}
