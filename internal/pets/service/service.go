// Package service implements pet record management and photo storage via
// presigned MinIO URLs.
package service

import (
	"context"
	"fmt"
	"time"

	"vetclinic_backend/internal/adapters/storage"
	"vetclinic_backend/internal/pets/repository"
	"vetclinic_backend/internal/pets/transport"
	"vetclinic_backend/platform/apperr"
	"vetclinic_backend/platform/sanitize"
)

const dateLayout = "2006-01-02"

type Service struct {
	repo    repository.Store
	storage storage.StorageService // nil when MinIO is not configured
	bucket  string
}

// New creates the pets service. storage may be nil; photo operations then
// report that photo storage is unavailable.
func New(repo repository.Store, storageSvc storage.StorageService, bucket string) *Service {
	return &Service{repo: repo, storage: storageSvc, bucket: bucket}
}

// Create adds a pet record for the owner.
func (s *Service) Create(ctx context.Context, ownerID int64, req transport.CreatePetRequest) (*transport.PetResponse, error) {
	pet, err := petFromRequest(ownerID, req)
	if err != nil {
		return nil, err
	}

	saved, err := s.repo.SavePet(ctx, pet)
	if err != nil {
		return nil, err
	}
	resp := transport.FromPet(saved)
	return &resp, nil
}

// CreateBatch adds several pet records atomically.
func (s *Service) CreateBatch(ctx context.Context, ownerID int64, req transport.CreatePetsRequest) ([]transport.PetResponse, error) {
	pets := make([]repository.PetRecord, 0, len(req.Pets))
	for _, p := range req.Pets {
		pet, err := petFromRequest(ownerID, p)
		if err != nil {
			return nil, err
		}
		pets = append(pets, *pet)
	}

	saved, err := s.repo.SavePets(ctx, pets)
	if err != nil {
		return nil, err
	}
	return transport.FromPets(saved), nil
}

// GetByID returns one of the owner's pets.
func (s *Service) GetByID(ctx context.Context, ownerID, petID int64) (*transport.PetResponse, error) {
	pet, err := s.repo.GetByID(ctx, petID, ownerID)
	if err != nil {
		return nil, err
	}
	resp := transport.FromPet(pet)
	return &resp, nil
}

// List returns all of the owner's pets.
func (s *Service) List(ctx context.Context, ownerID int64) ([]transport.PetResponse, error) {
	pets, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return transport.FromPets(pets), nil
}

// Update replaces the mutable fields of one of the owner's pets.
func (s *Service) Update(ctx context.Context, ownerID, petID int64, req transport.UpdatePetRequest) (*transport.PetResponse, error) {
	pet, err := petFromRequest(ownerID, req)
	if err != nil {
		return nil, err
	}
	pet.ID = petID

	updated, err := s.repo.Update(ctx, pet)
	if err != nil {
		return nil, err
	}
	resp := transport.FromPet(updated)
	return &resp, nil
}

// Delete removes one of the owner's pets and its stored photo, if any.
func (s *Service) Delete(ctx context.Context, ownerID, petID int64) error {
	pet, err := s.repo.GetByID(ctx, petID, ownerID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, petID, ownerID); err != nil {
		return err
	}

	// Best effort: an orphaned object is harmless, a missing record is not.
	if pet.PhotoKey != "" && s.storage != nil {
		_ = s.storage.DeleteObject(ctx, s.bucket, pet.PhotoKey)
	}
	return nil
}

// RequestPhotoUpload returns a presigned PUT URL for a pet photo. The photo
// is attached once the client confirms with AttachPhoto.
func (s *Service) RequestPhotoUpload(ctx context.Context, ownerID, petID int64, req transport.PhotoUploadRequest) (*transport.PhotoURLResponse, error) {
	if s.storage == nil {
		return nil, apperr.New(apperr.KindInternal, "photo storage is not configured")
	}
	if _, err := s.repo.GetByID(ctx, petID, ownerID); err != nil {
		return nil, err
	}

	folder := fmt.Sprintf("pets/%d", petID)
	presigned, err := s.storage.GenerateUploadURL(ctx, s.bucket, folder, req.FileName, req.ContentType, req.SizeBytes)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, err.Error(), err)
	}

	return &transport.PhotoURLResponse{
		URL:       presigned.URL,
		FileKey:   presigned.FileKey,
		ExpiresAt: presigned.ExpiresAt,
	}, nil
}

// AttachPhoto records the uploaded photo's file key on the pet.
func (s *Service) AttachPhoto(ctx context.Context, ownerID, petID int64, req transport.AttachPhotoRequest) (*transport.PetResponse, error) {
	if err := s.repo.SetPhotoKey(ctx, petID, ownerID, req.FileKey); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, ownerID, petID)
}

// PhotoURL returns a presigned GET URL for the pet's photo.
func (s *Service) PhotoURL(ctx context.Context, ownerID, petID int64) (*transport.PhotoURLResponse, error) {
	if s.storage == nil {
		return nil, apperr.New(apperr.KindInternal, "photo storage is not configured")
	}

	pet, err := s.repo.GetByID(ctx, petID, ownerID)
	if err != nil {
		return nil, err
	}
	if pet.PhotoKey == "" {
		return nil, apperr.NotFound("pet has no photo")
	}

	presigned, err := s.storage.GenerateDownloadURL(ctx, s.bucket, pet.PhotoKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to generate download URL", err)
	}

	return &transport.PhotoURLResponse{
		URL:       presigned.URL,
		FileKey:   presigned.FileKey,
		ExpiresAt: presigned.ExpiresAt,
	}, nil
}

func petFromRequest(ownerID int64, req transport.CreatePetRequest) (*repository.PetRecord, error) {
	pet := &repository.PetRecord{
		OwnerID: ownerID,
		Name:    sanitize.Text(req.Name),
		Species: sanitize.Text(req.Species),
		Breed:   sanitize.Text(req.Breed),
		Colour:  sanitize.Text(req.Colour),
	}
	if req.BirthDate != nil && *req.BirthDate != "" {
		birth, err := time.Parse(dateLayout, *req.BirthDate)
		if err != nil {
			return nil, apperr.Validation("invalid pet birth date")
		}
		pet.BirthDate = &birth
	}
	return pet, nil
}
