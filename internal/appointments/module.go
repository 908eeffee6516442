// Package appointments provides the appointment lifecycle domain module.
package appointments

import (
	"time"

	"vetclinic_backend/internal/appointments/handler"
	"vetclinic_backend/internal/appointments/repository"
	"vetclinic_backend/internal/appointments/service"
	"vetclinic_backend/internal/events"
	apphttp "vetclinic_backend/internal/http"
	"vetclinic_backend/internal/scheduler"
	"vetclinic_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the appointments domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new appointments module with all dependencies wired.
// directory resolves booking participants; loc is the clinic timezone;
// reminders may be nil when no scheduler backend is configured.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, directory service.UserDirectory, bus events.Bus, reminders scheduler.ReminderScheduler, loc *time.Location) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, directory, loc)
	h := handler.New(svc, val, bus, reminders, loc)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "appointments"
}

// RegisterRoutes registers the module's routes under /api/v1/appointments
// and /api/v1/admin/appointments.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	appointments := ctx.Protected.Group("/appointments")
	m.handler.RegisterRoutes(appointments)

	admin := ctx.Admin.Group("/appointments")
	m.handler.RegisterAdminRoutes(admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
