package service

import (
	"context"
	"testing"
	"time"

	"vetclinic_backend/internal/reviews/repository"
	"vetclinic_backend/internal/reviews/transport"
	"vetclinic_backend/platform/apperr"
)

type fakeDirectory struct {
	vets map[int64]bool
}

func (f *fakeDirectory) IsVeterinarian(_ context.Context, id int64) (bool, error) {
	return f.vets[id], nil
}

type fakeStore struct {
	reviews map[int64]*repository.Review
	nextID  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{reviews: make(map[int64]*repository.Review), nextID: 1}
}

func (f *fakeStore) Create(_ context.Context, review *repository.Review) (*repository.Review, error) {
	for _, existing := range f.reviews {
		if existing.PatientID == review.PatientID && existing.VeterinarianID == review.VeterinarianID {
			return nil, apperr.Conflict("you have already reviewed this veterinarian")
		}
	}
	stored := *review
	stored.ID = f.nextID
	f.nextID++
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	f.reviews[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

func (f *fakeStore) UpdateOwn(_ context.Context, id, patientID int64, stars int, feedback string) (*repository.Review, error) {
	review, ok := f.reviews[id]
	if !ok || review.PatientID != patientID {
		return nil, apperr.NotFound("review not found")
	}
	review.Stars = stars
	review.Feedback = feedback
	copied := *review
	return &copied, nil
}

func (f *fakeStore) ListByVeterinarian(_ context.Context, vetID int64) ([]repository.Review, error) {
	var items []repository.Review
	for _, review := range f.reviews {
		if review.VeterinarianID == vetID {
			items = append(items, *review)
		}
	}
	return items, nil
}

func (f *fakeStore) RatingByVeterinarian(_ context.Context, vetID int64) (*repository.Rating, error) {
	var sum, count int64
	for _, review := range f.reviews {
		if review.VeterinarianID == vetID {
			sum += int64(review.Stars)
			count++
		}
	}
	rating := &repository.Rating{Count: count}
	if count > 0 {
		rating.AverageStars = float64(sum) / float64(count)
	}
	return rating, nil
}

func (f *fakeStore) DeleteOwn(_ context.Context, id, patientID int64) error {
	review, ok := f.reviews[id]
	if !ok || review.PatientID != patientID {
		return apperr.NotFound("review not found")
	}
	delete(f.reviews, id)
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id int64) error {
	if _, ok := f.reviews[id]; !ok {
		return apperr.NotFound("review not found")
	}
	delete(f.reviews, id)
	return nil
}

var _ repository.Store = (*fakeStore)(nil)

func newTestService(store *fakeStore) *Service {
	return New(store, &fakeDirectory{vets: map[int64]bool{9: true, 2: true}})
}

func TestCreate_Succeeds(t *testing.T) {
	svc := newTestService(newFakeStore())

	resp, err := svc.Create(context.Background(), 3, transport.CreateReviewRequest{
		VeterinarianID: 9,
		Stars:          4,
		Feedback:       "great with nervous cats",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Stars != 4 || resp.VeterinarianID != 9 {
		t.Fatalf("unexpected review: %+v", resp)
	}
}

func TestCreate_TargetNotVeterinarian(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.Create(context.Background(), 3, transport.CreateReviewRequest{VeterinarianID: 4, Stars: 5})
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestCreate_SelfReviewForbidden(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.Create(context.Background(), 9, transport.CreateReviewRequest{VeterinarianID: 9, Stars: 5})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreate_DuplicateConflict(t *testing.T) {
	svc := newTestService(newFakeStore())
	ctx := context.Background()

	req := transport.CreateReviewRequest{VeterinarianID: 9, Stars: 5}
	if _, err := svc.Create(ctx, 3, req); err != nil {
		t.Fatalf("setup review failed: %v", err)
	}

	_, err := svc.Create(ctx, 3, req)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestForVeterinarian_Aggregates(t *testing.T) {
	svc := newTestService(newFakeStore())
	ctx := context.Background()

	if _, err := svc.Create(ctx, 3, transport.CreateReviewRequest{VeterinarianID: 9, Stars: 5}); err != nil {
		t.Fatalf("setup review failed: %v", err)
	}
	if _, err := svc.Create(ctx, 4, transport.CreateReviewRequest{VeterinarianID: 9, Stars: 2}); err != nil {
		t.Fatalf("setup review failed: %v", err)
	}
	if _, err := svc.Create(ctx, 3, transport.CreateReviewRequest{VeterinarianID: 2, Stars: 1}); err != nil {
		t.Fatalf("setup review failed: %v", err)
	}

	result, err := svc.ForVeterinarian(ctx, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Count != 2 {
		t.Fatalf("expected 2 reviews, got %d", result.Count)
	}
	if result.AverageStars != 3.5 {
		t.Fatalf("expected average 3.5, got %v", result.AverageStars)
	}
}

func TestDelete_OwnershipEnforced(t *testing.T) {
	svc := newTestService(newFakeStore())
	ctx := context.Background()

	created, err := svc.Create(ctx, 3, transport.CreateReviewRequest{VeterinarianID: 9, Stars: 5})
	if err != nil {
		t.Fatalf("setup review failed: %v", err)
	}

	if err := svc.Delete(ctx, 4, created.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for foreign delete, got %v", err)
	}
	if err := svc.Delete(ctx, 3, created.ID); err != nil {
		t.Fatalf("own delete failed: %v", err)
	}
}
