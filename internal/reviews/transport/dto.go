// Package transport defines request/response DTOs for the reviews API.
package transport

import (
	"time"

	"vetclinic_backend/internal/reviews/repository"
)

// CreateReviewRequest posts a review for a veterinarian.
type CreateReviewRequest struct {
	VeterinarianID int64  `json:"veterinarianId" validate:"required,gt=0"`
	Stars          int    `json:"stars" validate:"required,min=1,max=5"`
	Feedback       string `json:"feedback" validate:"max=1000"`
}

// UpdateReviewRequest edits the caller's own review.
type UpdateReviewRequest struct {
	Stars    int    `json:"stars" validate:"required,min=1,max=5"`
	Feedback string `json:"feedback" validate:"max=1000"`
}

// ReviewResponse is the transport projection of a review.
type ReviewResponse struct {
	ID             int64     `json:"id"`
	PatientID      int64     `json:"patientId"`
	VeterinarianID int64     `json:"veterinarianId"`
	Stars          int       `json:"stars"`
	Feedback       string    `json:"feedback,omitempty"`
	PatientName    string    `json:"patientName"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// VeterinarianReviewsResponse is a veterinarian's reviews plus their
// aggregated rating.
type VeterinarianReviewsResponse struct {
	Items        []ReviewResponse `json:"items"`
	AverageStars float64          `json:"averageStars"`
	Count        int64            `json:"count"`
}

// FromReview maps a persisted review to its transport projection.
func FromReview(r *repository.Review) ReviewResponse {
	return ReviewResponse{
		ID:             r.ID,
		PatientID:      r.PatientID,
		VeterinarianID: r.VeterinarianID,
		Stars:          r.Stars,
		Feedback:       r.Feedback,
		PatientName:    r.PatientName,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// FromReviews maps a slice of persisted reviews.
func FromReviews(items []repository.Review) []ReviewResponse {
	out := make([]ReviewResponse, 0, len(items))
	for i := range items {
		out = append(out, FromReview(&items[i]))
	}
	return out
}
