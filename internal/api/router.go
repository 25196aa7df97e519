package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/teamscope/teamscope/internal/api/handler"
	"github.com/teamscope/teamscope/internal/api/middleware"
	"github.com/teamscope/teamscope/internal/auth"
	"github.com/teamscope/teamscope/internal/authz"
	"github.com/teamscope/teamscope/internal/membership"
	"github.com/teamscope/teamscope/internal/moduleconfig"
	"github.com/teamscope/teamscope/internal/resolver"
	"github.com/teamscope/teamscope/internal/role"
	"github.com/teamscope/teamscope/internal/scope"
	"github.com/teamscope/teamscope/internal/team"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	AuthService    *auth.Service
	UserRepo       auth.UserRepository
	TeamRepo       team.Repository
	MembershipRepo membership.Repository
	ConfigService  *moduleconfig.Service
	Resolver       *resolver.Resolver
	Engine         *authz.Engine
	DBPinger       handler.DBPinger
	Version        string
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	teamHandler := handler.NewTeamHandler(deps.TeamRepo)
	memberHandler := handler.NewMemberHandler(deps.MembershipRepo)
	configHandler := handler.NewModuleConfigHandler(deps.ConfigService)
	modulesHandler := handler.NewModulesHandler(deps.Resolver)
	userHandler := handler.NewUserHandler(deps.AuthService, deps.UserRepo)

	authed := middleware.Auth(deps.AuthService)
	teamRead := middleware.Authorize(deps.Engine, role.Viewer, scope.Team, authz.Options{})
	teamAdmin := middleware.Authorize(deps.Engine, role.Admin, scope.Team, authz.Options{})
	globalRead := middleware.Authorize(deps.Engine, role.User, scope.Global, authz.Options{AllowReadForAll: true})
	globalWrite := middleware.Authorize(deps.Engine, role.Admin, scope.Global, authz.Options{})

	r.Group(func(r chi.Router) {
		r.Use(authed)

		r.Route("/me/modules", func(r chi.Router) {
			r.Get("/", modulesHandler.List)
			r.Get("/{moduleId}", modulesHandler.GetOne)
		})

		r.Route("/teams", func(r chi.Router) {
			r.With(globalWrite).Post("/", teamHandler.Create)
			r.With(globalRead).Get("/", teamHandler.List)

			r.Route("/{teamId}", func(r chi.Router) {
				r.With(teamRead).Get("/", teamHandler.GetByID)
				r.With(globalWrite).Delete("/", teamHandler.Delete)

				r.Route("/members", func(r chi.Router) {
					r.With(teamRead).Get("/", memberHandler.List)
					r.With(teamAdmin).Post("/", memberHandler.Add)
					r.With(teamAdmin).Patch("/{userId}", memberHandler.UpdateRole)
					r.With(teamAdmin).Delete("/{userId}", memberHandler.Remove)
				})

				r.Route("/modules/{moduleId}", func(r chi.Router) {
					r.With(teamAdmin).Put("/", configHandler.Upsert)
					r.With(teamAdmin).Delete("/", configHandler.Delete)
					r.With(teamAdmin).Get("/affected-count", configHandler.AffectedCount)
				})
			})
		})

		r.With(middleware.RequireAdmin()).Get("/module-audit", configHandler.AuditTrail)

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireAdmin())
			r.Post("/", userHandler.Create)
			r.Get("/", userHandler.List)
			r.Delete("/{userId}", userHandler.Revoke)
		})
	})

	return r
}
