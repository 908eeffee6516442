// Package pets provides the pet records module: owner-scoped CRUD and photo
// storage through presigned URLs.
package pets

import (
	"vetclinic_backend/internal/adapters/storage"
	apphttp "vetclinic_backend/internal/http"
	"vetclinic_backend/internal/pets/handler"
	"vetclinic_backend/internal/pets/repository"
	"vetclinic_backend/internal/pets/service"
	"vetclinic_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the pets domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new pets module with all dependencies wired.
// storageSvc may be nil when MinIO is not configured.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, storageSvc storage.StorageService, bucket string) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, storageSvc, bucket)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "pets"
}

// RegisterRoutes registers the module's routes under /api/v1/pets
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	pets := ctx.Protected.Group("/pets")
	m.handler.RegisterRoutes(pets)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
