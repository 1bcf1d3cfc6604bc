package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/cmlabs-hris/homecare-payroll/internal/handler/http/middleware"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterOptions struct {
	AllowedOrigins []string
	Env            string
	Version        string
}

type Handlers struct {
	Attendance AttendanceHandler
	Shift      ShiftHandler
	Salary     SalaryHandler
	Advance    AdvanceHandler

	// Files serves signed receipt URLs; nil when receipts live in cloud storage.
	Files FileHandler
}

func NewRouter(JWTService jwt.Service, opts RouterOptions, h Handlers) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(opts.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "homecare-payroll"),
		slog.String("version", opts.Version),
		slog.String("env", opts.Env),
	)

	allowedOrigins := opts.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	if h.Files != nil {
		r.Get("/uploads/*", h.Files.Serve)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired())

			r.Route("/attendance", func(r chi.Router) {
				r.Get("/hours", h.Attendance.Hours)
				r.Get("/missing-fields", h.Attendance.MissingFields)
			})

			r.Route("/assignments/{id}", func(r chi.Router) {
				r.Get("/shift", h.Shift.Get)
				r.Post("/shift/start", h.Shift.Start)
				r.Post("/shift/end", h.Shift.End)
				r.Put("/attendance-mode", h.Shift.SetAttendanceMode)
			})

			r.Route("/nurses/{nurseID}/salary-config", func(r chi.Router) {
				r.Get("/", h.Salary.GetConfig)
				r.Put("/", h.Salary.UpsertConfig)
				r.Get("/history", h.Salary.ConfigHistory)
			})

			r.Route("/salary-payments", func(r chi.Router) {
				r.Get("/", h.Salary.ListPayments)
				r.Post("/", h.Salary.CreatePayment)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.Salary.GetPayment)
					r.Post("/recalculate", h.Salary.RecalculatePayment)
					r.Post("/cancel", h.Salary.CancelPayment)
					r.Post("/bonus", h.Salary.AddBonus)
					r.Post("/deduction", h.Salary.AddDeduction)
					r.Get("/adjustments", h.Salary.ListAdjustments)

					// Approvers only
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireApprover)
						r.Put("/approve", h.Salary.ApprovePayment)
						r.Put("/reject", h.Salary.RejectPayment)
					})
				})
			})

			r.Route("/advances", func(r chi.Router) {
				r.Get("/", h.Advance.List)
				r.Post("/", h.Advance.Create)
				r.Get("/totals", h.Advance.Totals)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.Advance.Get)
					r.Put("/", h.Advance.Update)
					r.Delete("/", h.Advance.Delete)
					r.Get("/repayments", h.Advance.ListRepayments)
					r.Post("/repayments", h.Advance.RecordRepayment)

					// Approvers only
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireApprover)
						r.Put("/approval", h.Advance.SetApproval)
					})
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})
	return r
}
