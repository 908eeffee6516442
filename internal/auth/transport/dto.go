// Package transport defines request/response DTOs for the auth API.
package transport

import "time"

// RegisterRequest creates a new account. UserType is chosen at registration;
// ADMIN accounts are provisioned out of band.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"fullName" validate:"required,max=120"`
	Phone    string `json:"phone" validate:"required,max=20"`
	UserType string `json:"userType" validate:"required,oneof=PATIENT VETERINARIAN"`
}

// LoginRequest exchanges credentials for an access token.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the transport projection of an account.
type UserResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Phone     string    `json:"phone"`
	UserType  string    `json:"userType"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuthResponse carries the access token plus the authenticated user.
type AuthResponse struct {
	AccessToken string       `json:"accessToken"`
	User        UserResponse `json:"user"`
}
