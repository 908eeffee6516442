// Package service implements veterinarian reviews: one review per
// patient-veterinarian pair, with per-veterinarian rating aggregation.
package service

import (
	"context"

	"vetclinic_backend/internal/reviews/repository"
	"vetclinic_backend/internal/reviews/transport"
	"vetclinic_backend/platform/apperr"
	"vetclinic_backend/platform/sanitize"
)

// Directory answers whether a user id is a veterinarian. The users service
// satisfies it directly.
type Directory interface {
	IsVeterinarian(ctx context.Context, id int64) (bool, error)
}

type Service struct {
	repo      repository.Store
	directory Directory
}

func New(repo repository.Store, directory Directory) *Service {
	return &Service{repo: repo, directory: directory}
}

// Create posts a review. The target must resolve to a veterinarian.
func (s *Service) Create(ctx context.Context, patientID int64, req transport.CreateReviewRequest) (*transport.ReviewResponse, error) {
	isVet, err := s.directory.IsVeterinarian(ctx, req.VeterinarianID)
	if err != nil {
		return nil, err
	}
	if !isVet {
		return nil, apperr.BadRequest("selected user is not a veterinarian")
	}
	if patientID == req.VeterinarianID {
		return nil, apperr.Forbidden("veterinarians cannot review themselves")
	}

	review, err := s.repo.Create(ctx, &repository.Review{
		PatientID:      patientID,
		VeterinarianID: req.VeterinarianID,
		Stars:          req.Stars,
		Feedback:       sanitize.Text(req.Feedback),
	})
	if err != nil {
		return nil, err
	}
	resp := transport.FromReview(review)
	return &resp, nil
}

// Update edits the caller's own review.
func (s *Service) Update(ctx context.Context, patientID, reviewID int64, req transport.UpdateReviewRequest) (*transport.ReviewResponse, error) {
	review, err := s.repo.UpdateOwn(ctx, reviewID, patientID, req.Stars, sanitize.Text(req.Feedback))
	if err != nil {
		return nil, err
	}
	resp := transport.FromReview(review)
	return &resp, nil
}

// ForVeterinarian returns a veterinarian's reviews with the aggregated rating.
func (s *Service) ForVeterinarian(ctx context.Context, vetID int64) (*transport.VeterinarianReviewsResponse, error) {
	items, err := s.repo.ListByVeterinarian(ctx, vetID)
	if err != nil {
		return nil, err
	}
	rating, err := s.repo.RatingByVeterinarian(ctx, vetID)
	if err != nil {
		return nil, err
	}

	return &transport.VeterinarianReviewsResponse{
		Items:        transport.FromReviews(items),
		AverageStars: rating.AverageStars,
		Count:        rating.Count,
	}, nil
}

// Delete removes the caller's own review.
func (s *Service) Delete(ctx context.Context, patientID, reviewID int64) error {
	return s.repo.DeleteOwn(ctx, reviewID, patientID)
}

// AdminDelete removes any review (administrative).
func (s *Service) AdminDelete(ctx context.Context, reviewID int64) error {
	return s.repo.Delete(ctx, reviewID)
}
