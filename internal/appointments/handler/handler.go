package handler

import (
	"net/http"
	"strconv"
	"time"

	"vetclinic_backend/internal/appointments/domain"
	"vetclinic_backend/internal/appointments/service"
	"vetclinic_backend/internal/appointments/transport"
	"vetclinic_backend/internal/events"
	"vetclinic_backend/internal/scheduler"
	"vetclinic_backend/platform/httpkit"
	"vetclinic_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// reminderLeadTime is how long before the start an approved appointment's
// reminder goes out.
const reminderLeadTime = 24 * time.Hour

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for appointments. Domain events are published
// after the service call succeeds, so subscribers only ever see committed
// state.
type Handler struct {
	svc       *service.Service
	val       *validator.Validator
	bus       events.Bus
	reminders scheduler.ReminderScheduler
	loc       *time.Location
}

// New creates a new appointments handler. reminders may be nil when no
// scheduler backend is configured.
func New(svc *service.Service, val *validator.Validator, bus events.Bus, reminders scheduler.ReminderScheduler, loc *time.Location) *Handler {
	return &Handler{svc: svc, val: val, bus: bus, reminders: reminders, loc: loc}
}

// RegisterRoutes registers the appointment routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Book)
	rg.GET("", h.List)
	rg.GET("/search", h.Search)
	rg.GET("/me", h.ListMine)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.POST("/:id/pets", h.AddPet)
	rg.POST("/:id/cancel", h.Cancel)
	rg.POST("/:id/approve", httpkit.RequireRole("VETERINARIAN"), h.Approve)
	rg.POST("/:id/decline", httpkit.RequireRole("VETERINARIAN"), h.Decline)
	rg.POST("/:id/refresh", h.Refresh)
}

// RegisterAdminRoutes registers the administrative appointment routes
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.DELETE("/:id", h.Delete)
	rg.GET("/count", h.Count)
	rg.GET("/summary", h.StatusSummary)
}

// parseID extracts the numeric appointment id from the path.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return 0, false
	}
	return id, true
}

// Book handles POST /api/v1/appointments
func (h *Handler) Book(c *gin.Context) {
	var req transport.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Book(c.Request.Context(), identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	h.bus.Publish(c.Request.Context(), events.AppointmentBooked{
		BaseEvent:      events.NewBaseEvent(),
		AppointmentID:  result.ID,
		AppointmentNo:  result.AppointmentNo,
		PatientID:      result.PatientID,
		VeterinarianID: result.VeterinarianID,
	})

	httpkit.JSON(c, http.StatusCreated, result)
}

// Update handles PUT /api/v1/appointments/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Update(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	h.bus.Publish(c.Request.Context(), events.AppointmentUpdated{
		BaseEvent:      events.NewBaseEvent(),
		AppointmentID:  result.ID,
		AppointmentNo:  result.AppointmentNo,
		PatientID:      result.PatientID,
		VeterinarianID: result.VeterinarianID,
	})

	httpkit.OK(c, result)
}

// AddPet handles POST /api/v1/appointments/:id/pets
func (h *Handler) AddPet(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.PetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.AddPet(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Cancel handles POST /api/v1/appointments/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.Cancel(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	h.bus.Publish(c.Request.Context(), events.AppointmentCanceled{
		BaseEvent:      events.NewBaseEvent(),
		AppointmentID:  result.ID,
		AppointmentNo:  result.AppointmentNo,
		PatientID:      result.PatientID,
		VeterinarianID: result.VeterinarianID,
	})

	httpkit.OK(c, result)
}

// Approve handles POST /api/v1/appointments/:id/approve
func (h *Handler) Approve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.Approve(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	h.bus.Publish(c.Request.Context(), events.AppointmentApproved{
		BaseEvent:      events.NewBaseEvent(),
		AppointmentID:  result.ID,
		AppointmentNo:  result.AppointmentNo,
		PatientID:      result.PatientID,
		VeterinarianID: result.VeterinarianID,
	})

	h.scheduleReminder(c, result)

	httpkit.OK(c, result)
}

// scheduleReminder queues the patient reminder for an approved appointment.
// Scheduling is best effort; the approval already succeeded.
func (h *Handler) scheduleReminder(c *gin.Context, result *transport.AppointmentResponse) {
	if h.reminders == nil {
		return
	}

	date, err := time.ParseInLocation(domain.DateLayout, result.AppointmentDate, h.loc)
	if err != nil {
		return
	}
	start, err := domain.StartTime(date, result.AppointmentTime, h.loc)
	if err != nil {
		return
	}

	runAt := start.Add(-reminderLeadTime)
	if !runAt.After(time.Now()) {
		return
	}

	_ = h.reminders.ScheduleAppointmentReminder(c.Request.Context(), result.ID, runAt)
}

// Decline handles POST /api/v1/appointments/:id/decline
func (h *Handler) Decline(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.Decline(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	h.bus.Publish(c.Request.Context(), events.AppointmentDeclined{
		BaseEvent:      events.NewBaseEvent(),
		AppointmentID:  result.ID,
		AppointmentNo:  result.AppointmentNo,
		PatientID:      result.PatientID,
		VeterinarianID: result.VeterinarianID,
	})

	httpkit.OK(c, result)
}

// Refresh handles POST /api/v1/appointments/:id/refresh
func (h *Handler) Refresh(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.RefreshStatus(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// GetByID handles GET /api/v1/appointments/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// List handles GET /api/v1/appointments
func (h *Handler) List(c *gin.Context) {
	var req transport.ListAppointmentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Search handles GET /api/v1/appointments/search
func (h *Handler) Search(c *gin.Context) {
	var req transport.SearchAppointmentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	result, err := h.svc.Search(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// ListMine handles GET /api/v1/appointments/me
func (h *Handler) ListMine(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.ListForUser(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Delete handles DELETE /api/v1/admin/appointments/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"message": "appointment deleted"})
}

// Count handles GET /api/v1/admin/appointments/count
func (h *Handler) Count(c *gin.Context) {
	result, err := h.svc.Count(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// StatusSummary handles GET /api/v1/admin/appointments/summary
func (h *Handler) StatusSummary(c *gin.Context) {
	result, err := h.svc.StatusSummary(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
