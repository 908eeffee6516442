// Package transport defines request/response DTOs for the users API.
package transport

import (
	"time"

	"vetclinic_backend/internal/users/repository"
)

// ListUsersRequest carries the type filter plus pagination.
type ListUsersRequest struct {
	UserType string `form:"type" validate:"required,oneof=PATIENT VETERINARIAN ADMIN"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// UpdateBiographyRequest replaces a veterinarian's biography.
type UpdateBiographyRequest struct {
	Biography string `json:"biography" validate:"required,max=2000"`
}

// UserResponse is the directory projection of a user.
type UserResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Phone     string    `json:"phone"`
	UserType  string    `json:"userType"`
	CreatedAt time.Time `json:"createdAt"`
}

// VeterinarianResponse is a user plus their biography.
type VeterinarianResponse struct {
	UserResponse
	Biography string `json:"biography"`
}

// ListUsersResponse is a page of users.
type ListUsersResponse struct {
	Items      []UserResponse `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

// FromUser maps a directory user to its transport projection.
func FromUser(u *repository.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Phone:     u.Phone,
		UserType:  u.UserType,
		CreatedAt: u.CreatedAt,
	}
}

// FromVeterinarian maps a veterinarian with biography.
func FromVeterinarian(v *repository.Veterinarian) VeterinarianResponse {
	return VeterinarianResponse{
		UserResponse: FromUser(&v.User),
		Biography:    v.Biography,
	}
}

// FromListResult maps a repository page to the transport page.
func FromListResult(res *repository.ListResult) *ListUsersResponse {
	items := make([]UserResponse, 0, len(res.Items))
	for i := range res.Items {
		items = append(items, FromUser(&res.Items[i]))
	}
	return &ListUsersResponse{
		Items:      items,
		Total:      res.Total,
		Page:       res.Page,
		PageSize:   res.PageSize,
		TotalPages: res.TotalPages,
	}
}
