// Package transport defines request/response DTOs for the appointments API.
// Responses are projections of the appointment entity; internal associations
// never leak to callers.
package transport

import (
	"time"

	"vetclinic_backend/internal/appointments/domain"
	"vetclinic_backend/internal/appointments/repository"
)

// PetRequest is a pet supplied at booking or attached later.
type PetRequest struct {
	Name      string  `json:"name" validate:"required,max=100"`
	Species   string  `json:"species" validate:"required,max=60"`
	Breed     string  `json:"breed" validate:"max=60"`
	Colour    string  `json:"colour" validate:"max=40"`
	BirthDate *string `json:"birthDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// BookAppointmentRequest is the booking payload. The patient is the
// authenticated caller; the veterinarian is chosen explicitly.
type BookAppointmentRequest struct {
	VeterinarianID  int64        `json:"veterinarianId" validate:"required,gt=0"`
	AppointmentDate string       `json:"appointmentDate" validate:"required,datetime=2006-01-02"`
	AppointmentTime string       `json:"appointmentTime" validate:"required,datetime=15:04"`
	Reason          string       `json:"reason" validate:"required,max=500"`
	Pets            []PetRequest `json:"pets" validate:"required,min=1,dive"`
}

// UpdateAppointmentRequest reschedules a pending appointment.
type UpdateAppointmentRequest struct {
	AppointmentDate string `json:"appointmentDate" validate:"required,datetime=2006-01-02"`
	AppointmentTime string `json:"appointmentTime" validate:"required,datetime=15:04"`
	Reason          string `json:"reason" validate:"required,max=500"`
}

// ListAppointmentsRequest carries pagination query parameters.
type ListAppointmentsRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"pageSize"`
}

// SearchAppointmentsRequest carries the search term plus pagination.
type SearchAppointmentsRequest struct {
	Term     string `form:"q" validate:"required,min=1,max=100"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// PetResponse is the transport projection of a pet.
type PetResponse struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Species   string  `json:"species"`
	Breed     string  `json:"breed,omitempty"`
	Colour    string  `json:"colour,omitempty"`
	BirthDate *string `json:"birthDate,omitempty"`
}

// AppointmentResponse is the transport projection of an appointment.
type AppointmentResponse struct {
	ID                int64         `json:"id"`
	AppointmentNo     string        `json:"appointmentNo"`
	AppointmentDate   string        `json:"appointmentDate"`
	AppointmentTime   string        `json:"appointmentTime"`
	Reason            string        `json:"reason"`
	Status            domain.Status `json:"status"`
	PatientID         int64         `json:"patientId"`
	VeterinarianID    int64         `json:"veterinarianId"`
	PatientEmail      string        `json:"patientEmail,omitempty"`
	VeterinarianEmail string        `json:"veterinarianEmail,omitempty"`
	Pets              []PetResponse `json:"pets"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// ListAppointmentsResponse is a page of appointments.
type ListAppointmentsResponse struct {
	Items      []AppointmentResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"pageSize"`
	TotalPages int                   `json:"totalPages"`
}

// StatusCountResponse is one entry of the status summary.
type StatusCountResponse struct {
	Status domain.Status `json:"status"`
	Count  int64         `json:"count"`
}

// CountResponse is the unfiltered appointment count.
type CountResponse struct {
	Total int64 `json:"total"`
}

// FromAppointment maps a persisted appointment to its transport projection.
func FromAppointment(a *repository.Appointment) *AppointmentResponse {
	pets := make([]PetResponse, 0, len(a.Pets))
	for _, p := range a.Pets {
		pets = append(pets, fromPet(p))
	}

	return &AppointmentResponse{
		ID:                a.ID,
		AppointmentNo:     a.AppointmentNo,
		AppointmentDate:   a.AppointmentDate.Format(domain.DateLayout),
		AppointmentTime:   a.AppointmentTime,
		Reason:            a.Reason,
		Status:            a.Status,
		PatientID:         a.PatientID,
		VeterinarianID:    a.VeterinarianID,
		PatientEmail:      a.PatientEmail,
		VeterinarianEmail: a.VeterinarianEmail,
		Pets:              pets,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

// FromAppointments maps a slice of persisted appointments.
func FromAppointments(items []repository.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(items))
	for i := range items {
		out = append(out, *FromAppointment(&items[i]))
	}
	return out
}

// FromListResult maps a repository page to the transport page.
func FromListResult(res *repository.ListResult) *ListAppointmentsResponse {
	return &ListAppointmentsResponse{
		Items:      FromAppointments(res.Items),
		Total:      res.Total,
		Page:       res.Page,
		PageSize:   res.PageSize,
		TotalPages: res.TotalPages,
	}
}

func fromPet(p repository.Pet) PetResponse {
	resp := PetResponse{
		ID:      p.ID,
		Name:    p.Name,
		Species: p.Species,
		Breed:   p.Breed,
		Colour:  p.Colour,
	}
	if p.BirthDate != nil {
		formatted := p.BirthDate.Format(domain.DateLayout)
		resp.BirthDate = &formatted
	}
	return resp
}
