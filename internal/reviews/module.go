// Package reviews provides the veterinarian review module.
package reviews

import (
	"vetclinic_backend/internal/events"
	apphttp "vetclinic_backend/internal/http"
	"vetclinic_backend/internal/reviews/handler"
	"vetclinic_backend/internal/reviews/repository"
	"vetclinic_backend/internal/reviews/service"
	"vetclinic_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the reviews domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new reviews module with all dependencies wired
func NewModule(pool *pgxpool.Pool, val *validator.Validator, directory service.Directory, bus events.Bus) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, directory)
	h := handler.New(svc, val, bus)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "reviews"
}

// RegisterRoutes registers the module's routes under /api/v1/reviews and
// /api/v1/admin/reviews.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	reviews := ctx.Protected.Group("/reviews")
	m.handler.RegisterRoutes(reviews)

	admin := ctx.Admin.Group("/reviews")
	m.handler.RegisterAdminRoutes(admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
