// Package transport defines request/response DTOs for the pets API.
package transport

import (
	"time"

	"vetclinic_backend/internal/pets/repository"
)

const dateLayout = "2006-01-02"

// CreatePetRequest creates a pet record for the authenticated owner.
type CreatePetRequest struct {
	Name      string  `json:"name" validate:"required,max=100"`
	Species   string  `json:"species" validate:"required,max=60"`
	Breed     string  `json:"breed" validate:"max=60"`
	Colour    string  `json:"colour" validate:"max=40"`
	BirthDate *string `json:"birthDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// UpdatePetRequest replaces the mutable fields of a pet record.
type UpdatePetRequest = CreatePetRequest

// CreatePetsRequest creates several pet records at once.
type CreatePetsRequest struct {
	Pets []CreatePetRequest `json:"pets" validate:"required,min=1,max=20,dive"`
}

// PhotoUploadRequest asks for a presigned upload URL for a pet photo.
type PhotoUploadRequest struct {
	FileName    string `json:"fileName" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"required,max=100"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,gt=0"`
}

// AttachPhotoRequest confirms an uploaded photo by its file key.
type AttachPhotoRequest struct {
	FileKey string `json:"fileKey" validate:"required,max=512"`
}

// PetResponse is the transport projection of a pet record.
type PetResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Species   string    `json:"species"`
	Breed     string    `json:"breed,omitempty"`
	Colour    string    `json:"colour,omitempty"`
	BirthDate *string   `json:"birthDate,omitempty"`
	HasPhoto  bool      `json:"hasPhoto"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PhotoURLResponse carries a presigned URL for a photo operation.
type PhotoURLResponse struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// FromPet maps a persisted pet record to its transport projection.
func FromPet(p *repository.PetRecord) PetResponse {
	resp := PetResponse{
		ID:        p.ID,
		Name:      p.Name,
		Species:   p.Species,
		Breed:     p.Breed,
		Colour:    p.Colour,
		HasPhoto:  p.PhotoKey != "",
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.BirthDate != nil {
		formatted := p.BirthDate.Format(dateLayout)
		resp.BirthDate = &formatted
	}
	return resp
}

// FromPets maps a slice of persisted pet records.
func FromPets(pets []repository.PetRecord) []PetResponse {
	out := make([]PetResponse, 0, len(pets))
	for i := range pets {
		out = append(out, FromPet(&pets[i]))
	}
	return out
}
