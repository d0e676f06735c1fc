package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/credential-vault/internal/audit"
	"github.com/frahmantamala/credential-vault/internal/auth"
	"github.com/frahmantamala/credential-vault/internal/catalog"
	"github.com/frahmantamala/credential-vault/internal/credential"
	"github.com/frahmantamala/credential-vault/internal/request"
	"github.com/frahmantamala/credential-vault/internal/share"
	"github.com/frahmantamala/credential-vault/internal/transport/middleware"
	"github.com/frahmantamala/credential-vault/internal/transport/swagger"
	"github.com/frahmantamala/credential-vault/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	authHandler *auth.Handler,
	userHandler *user.Handler,
	catalogHandler *catalog.Handler,
	shareHandler *share.Handler,
	requestHandler *request.Handler,
	credentialHandler *credential.Handler,
	auditHandler *audit.Handler,
	allowedOrigins string,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// OpenAPI spec and Swagger UI live outside the API prefix
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", authHandler.Login)
			sr.Post("/refresh", authHandler.RefreshToken)
			sr.Post("/logout", authHandler.Logout)
		})

		// everything below requires an authenticated actor
		r.Group(func(pr chi.Router) {
			pr.Use(authHandler.AuthMiddleware)

			pr.Get("/users/me", authHandler.Me)

			pr.Route("/users", func(ur chi.Router) {
				ur.Post("/", userHandler.CreateUser)
				ur.Get("/", userHandler.ListUsers)
				ur.Get("/{id}", userHandler.GetUser)
				ur.Patch("/{id}", userHandler.UpdateUser)
				ur.Post("/{id}/deactivate", userHandler.DeactivateUser)
				ur.Post("/{id}/reactivate", userHandler.ReactivateUser)
			})

			pr.Route("/departments", func(dr chi.Router) {
				dr.Get("/", catalogHandler.ListDepartments)
				dr.Post("/", catalogHandler.CreateDepartment)
				dr.Patch("/{id}", catalogHandler.UpdateDepartment)
				dr.Post("/{id}/deactivate", catalogHandler.DeactivateDepartment)
				dr.Post("/{id}/reactivate", catalogHandler.ReactivateDepartment)
			})

			pr.Route("/services", func(sr chi.Router) {
				sr.Get("/", catalogHandler.ListServices)
				sr.Post("/", catalogHandler.CreateService)
				sr.Patch("/{id}", catalogHandler.UpdateService)
				sr.Post("/{id}/deactivate", catalogHandler.DeactivateService)
				sr.Post("/{id}/reactivate", catalogHandler.ReactivateService)
				sr.Post("/access", catalogHandler.GrantAccess)
				sr.Delete("/access", catalogHandler.RevokeAccess)
			})

			pr.Route("/shares", func(sr chi.Router) {
				sr.Get("/", shareHandler.ListShares)
				sr.Post("/", shareHandler.CreateShare)
				sr.Delete("/{id}", shareHandler.RevokeShare)
			})

			pr.Route("/requests", func(rr chi.Router) {
				rr.Get("/", requestHandler.ListOwnRequests)
				rr.Get("/review", requestHandler.ListReviewableRequests)
				rr.Post("/", requestHandler.CreateRequest)
				rr.Post("/{id}/cancel", requestHandler.CancelRequest)
				rr.Post("/{id}/approve", requestHandler.ApproveRequest)
				rr.Post("/{id}/reject", requestHandler.RejectRequest)
			})

			pr.Route("/credentials", func(cr chi.Router) {
				cr.Get("/", credentialHandler.ListCredentials)
				cr.Post("/", credentialHandler.CreateCredential)
				cr.Patch("/{id}", credentialHandler.UpdateCredential)
				cr.Delete("/{id}", credentialHandler.DeleteCredential)
				cr.Post("/{id}/disable", credentialHandler.DisableCredential)
				cr.Post("/{id}/enable", credentialHandler.EnableCredential)
				cr.Post("/{id}/disclose", credentialHandler.DiscloseCredential)
				cr.Get("/{id}/download", credentialHandler.DownloadSecretFile)
				cr.Get("/{id}/versions", credentialHandler.ListVersions)
			})

			pr.Get("/audit", auditHandler.ListAuditLog)
		})
	})
}
