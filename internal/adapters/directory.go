// Package adapters contains anti-corruption adapters between modules, so a
// module can depend on its own small interface instead of another module's
// service type.
package adapters

import (
	"context"

	apptsvc "vetclinic_backend/internal/appointments/service"
	userssvc "vetclinic_backend/internal/users/service"
)

// UserDirectory adapts the users service to the directory contract the
// appointment engine consumes.
type UserDirectory struct {
	users *userssvc.Service
}

// NewUserDirectory creates a directory adapter backed by the users module.
func NewUserDirectory(users *userssvc.Service) *UserDirectory {
	return &UserDirectory{users: users}
}

// FindByID resolves an appointment participant. NotFound propagates from the
// users service untouched.
func (d *UserDirectory) FindByID(ctx context.Context, id int64) (*apptsvc.DirectoryUser, error) {
	user, err := d.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &apptsvc.DirectoryUser{
		ID:             user.ID,
		Email:          user.Email,
		FullName:       user.FullName,
		IsVeterinarian: user.UserType == userssvc.UserTypeVeterinarian,
	}, nil
}

var _ apptsvc.UserDirectory = (*UserDirectory)(nil)
