// Package users provides the user directory module: participant resolution,
// veterinarian profiles, and administrative listings.
package users

import (
	apphttp "vetclinic_backend/internal/http"
	"vetclinic_backend/internal/users/handler"
	"vetclinic_backend/internal/users/repository"
	"vetclinic_backend/internal/users/service"
	"vetclinic_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the users domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new users module with all dependencies wired
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "users"
}

// RegisterRoutes registers the module's routes under /api/v1/users and
// /api/v1/admin/users.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	users := ctx.Protected.Group("/users")
	m.handler.RegisterRoutes(users)

	admin := ctx.Admin.Group("/users")
	m.handler.RegisterAdminRoutes(admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
