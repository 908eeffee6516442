// Package service implements the user directory: participant resolution for
// other modules, public veterinarian profiles, and biography management.
package service

import (
	"context"

	"vetclinic_backend/internal/users/repository"
	"vetclinic_backend/internal/users/transport"
	"vetclinic_backend/platform/apperr"
	"vetclinic_backend/platform/sanitize"
)

const UserTypeVeterinarian = "VETERINARIAN"

type Service struct {
	repo repository.Store
}

func New(repo repository.Store) *Service {
	return &Service{repo: repo}
}

// GetByID resolves a user by id, or apperr.NotFound.
func (s *Service) GetByID(ctx context.Context, id int64) (*repository.User, error) {
	return s.repo.GetByID(ctx, id)
}

// Exists reports whether the user id resolves.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	_, err := s.repo.GetByID(ctx, id)
	if apperr.Is(err, apperr.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// IsVeterinarian reports whether the user id resolves to a veterinarian.
func (s *Service) IsVeterinarian(ctx context.Context, id int64) (bool, error) {
	user, err := s.repo.GetByID(ctx, id)
	if apperr.Is(err, apperr.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.UserType == UserTypeVeterinarian, nil
}

// ListVeterinarians returns all veterinarians with their biographies.
func (s *Service) ListVeterinarians(ctx context.Context) ([]transport.VeterinarianResponse, error) {
	vets, err := s.repo.ListVeterinarians(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]transport.VeterinarianResponse, 0, len(vets))
	for i := range vets {
		out = append(out, transport.FromVeterinarian(&vets[i]))
	}
	return out, nil
}

// GetVeterinarian returns a single veterinarian profile with biography.
func (s *Service) GetVeterinarian(ctx context.Context, id int64) (*transport.VeterinarianResponse, error) {
	vet, err := s.repo.GetVeterinarian(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := transport.FromVeterinarian(vet)
	return &resp, nil
}

// UpdateBiography replaces the caller's biography. Only veterinarians have
// biographies.
func (s *Service) UpdateBiography(ctx context.Context, vetID int64, req transport.UpdateBiographyRequest) (*transport.VeterinarianResponse, error) {
	user, err := s.repo.GetByID(ctx, vetID)
	if err != nil {
		return nil, err
	}
	if user.UserType != UserTypeVeterinarian {
		return nil, apperr.Forbidden("only veterinarians have a biography")
	}

	if err := s.repo.UpsertBiography(ctx, vetID, sanitize.Text(req.Biography)); err != nil {
		return nil, err
	}
	return s.GetVeterinarian(ctx, vetID)
}

// List returns a page of users of the requested type (administrative).
func (s *Service) List(ctx context.Context, req transport.ListUsersRequest) (*transport.ListUsersResponse, error) {
	res, err := s.repo.ListByType(ctx, req.UserType, repository.ListParams{Page: req.Page, PageSize: req.PageSize})
	if err != nil {
		return nil, err
	}
	return transport.FromListResult(res), nil
}
