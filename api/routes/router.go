package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/calderhq/opsdesk-backend/api/controllers"
	"github.com/calderhq/opsdesk-backend/api/middleware"
	"github.com/calderhq/opsdesk-backend/internal/agreements"
	"github.com/calderhq/opsdesk-backend/internal/auth"
	"github.com/calderhq/opsdesk-backend/internal/invoices"
	"github.com/calderhq/opsdesk-backend/internal/milestones"
	"github.com/calderhq/opsdesk-backend/internal/payments"
	"github.com/calderhq/opsdesk-backend/internal/projects"
	"github.com/calderhq/opsdesk-backend/internal/settlements"
	"github.com/calderhq/opsdesk-backend/internal/stakeholders"
	"github.com/calderhq/opsdesk-backend/internal/tasks"
	"github.com/calderhq/opsdesk-backend/internal/users"
	"github.com/calderhq/opsdesk-backend/pkg/auth/session"
	"github.com/calderhq/opsdesk-backend/pkg/config"
	"github.com/calderhq/opsdesk-backend/pkg/db"
	"github.com/calderhq/opsdesk-backend/pkg/enums"
	"github.com/calderhq/opsdesk-backend/pkg/logger"
	"github.com/calderhq/opsdesk-backend/pkg/redis"
)

// Services bundles everything the HTTP surface depends on.
type Services struct {
	Auth         auth.Service
	Users        users.Service
	Stakeholders stakeholders.Service
	Projects     projects.Service
	Tasks        tasks.Service
	Milestones   milestones.Service
	Settlements  settlements.Service
	Agreements   agreements.Service
	Invoices     invoices.Service
	Payments     payments.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svcs.Auth, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(redisClient, cfg.Billing, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/stakeholders", func(r chi.Router) {
			r.Get("/", controllers.StakeholderList(svcs.Stakeholders, logg))
			r.Get("/{stakeholderID}", controllers.StakeholderDetail(svcs.Stakeholders, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireWriter(logg))
				r.Post("/", controllers.StakeholderCreate(svcs.Stakeholders, logg))
				r.Put("/{stakeholderID}", controllers.StakeholderUpdate(svcs.Stakeholders, logg))
			})
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", controllers.ProjectList(svcs.Projects, logg))
			r.Get("/{projectID}", controllers.ProjectDetail(svcs.Projects, logg))
			r.Get("/{projectID}/milestones", controllers.MilestoneList(svcs.Milestones, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireWriter(logg))
				r.Post("/", controllers.ProjectCreate(svcs.Projects, logg))
				r.Put("/{projectID}", controllers.ProjectUpdate(svcs.Projects, logg))
				r.Post("/{projectID}/archive", controllers.ProjectArchive(svcs.Projects, logg))
			})
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", controllers.TaskList(svcs.Tasks, logg))
			r.Get("/{taskID}", controllers.TaskDetail(svcs.Tasks, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireWriter(logg))
				r.Post("/", controllers.TaskCreate(svcs.Tasks, logg))
				r.Put("/{taskID}", controllers.TaskUpdate(svcs.Tasks, logg))
				r.Delete("/{taskID}", controllers.TaskDelete(svcs.Tasks, logg))
			})
		})

		r.Route("/milestones", func(r chi.Router) {
			r.Use(middleware.RequireWriter(logg))
			r.Post("/", controllers.MilestoneCreate(svcs.Milestones, logg))
			r.Put("/{milestoneID}", controllers.MilestoneUpdate(svcs.Milestones, logg))
			r.Post("/{milestoneID}/reach", controllers.MilestoneReach(svcs.Milestones, logg))
		})

		r.Route("/settlements", func(r chi.Router) {
			r.Get("/", controllers.SettlementList(svcs.Settlements, logg))
			r.Get("/{settlementID}", controllers.SettlementDetail(svcs.Settlements, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireWriter(logg))
				r.Post("/", controllers.SettlementCreate(svcs.Settlements, logg))
				r.Put("/{settlementID}", controllers.SettlementUpdate(svcs.Settlements, logg))
				r.Post("/{settlementID}/submit", controllers.SettlementSubmit(svcs.Settlements, logg))
				r.Post("/{settlementID}/approve", controllers.SettlementApprove(svcs.Settlements, logg))
				r.Post("/{settlementID}/reject", controllers.SettlementReject(svcs.Settlements, logg))
				r.Post("/{settlementID}/pay", controllers.SettlementMarkPaid(svcs.Settlements, logg))
			})
		})

		r.Route("/agreements", func(r chi.Router) {
			r.Get("/", controllers.AgreementList(svcs.Agreements, logg))
			r.Get("/{agreementID}", controllers.AgreementDetail(svcs.Agreements, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireWriter(logg))
				r.Post("/", controllers.AgreementCreate(svcs.Agreements, logg))
				r.Put("/{agreementID}", controllers.AgreementUpdate(svcs.Agreements, logg))
				r.Post("/{agreementID}/invoices/preview", controllers.InvoicePreview(svcs.Invoices, logg))
				r.Post("/{agreementID}/invoices", controllers.InvoiceGenerate(svcs.Invoices, logg))
				r.Post("/{agreementID}/payments", controllers.PaymentGenerate(svcs.Payments, logg))
			})
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", controllers.InvoiceList(svcs.Invoices, logg))
			r.Get("/{invoiceID}", controllers.InvoiceDetail(svcs.Invoices, logg))
			r.With(middleware.RequireWriter(logg)).Patch("/{invoiceID}/status", controllers.InvoiceStatusUpdate(svcs.Invoices, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", controllers.PaymentList(svcs.Payments, logg))
			r.Get("/{paymentID}", controllers.PaymentDetail(svcs.Payments, logg))
			r.With(middleware.RequireWriter(logg)).Patch("/{paymentID}/status", controllers.PaymentStatusUpdate(svcs.Payments, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
			r.Get("/ping", controllers.AdminPing())
			r.Get("/", controllers.UserList(svcs.Users, logg))
			r.Get("/{userID}", controllers.UserDetail(svcs.Users, logg))
			r.Post("/", controllers.UserCreate(svcs.Users, logg))
			r.Put("/{userID}", controllers.UserUpdate(svcs.Users, logg))
			r.Post("/{userID}/active", controllers.UserSetActive(svcs.Users, logg))
		})
	})

	return r
}
