package service

import (
	"context"
	"testing"

	"vetclinic_backend/internal/users/repository"
	"vetclinic_backend/internal/users/transport"
	"vetclinic_backend/platform/apperr"
)

type fakeStore struct {
	users map[int64]*repository.User
	bios  map[int64]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[int64]*repository.User), bios: make(map[int64]string)}
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (*repository.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return user, nil
}

func (f *fakeStore) ListByType(ctx context.Context, userType string, params repository.ListParams) (*repository.ListResult, error) {
	items := make([]repository.User, 0)
	for _, user := range f.users {
		if user.UserType == userType {
			items = append(items, *user)
		}
	}
	return &repository.ListResult{Items: items, Total: int64(len(items)), Page: 1, PageSize: 20, TotalPages: 1}, nil
}

func (f *fakeStore) ListVeterinarians(ctx context.Context) ([]repository.Veterinarian, error) {
	vets := make([]repository.Veterinarian, 0)
	for _, user := range f.users {
		if user.UserType == UserTypeVeterinarian {
			vets = append(vets, repository.Veterinarian{User: *user, Biography: f.bios[user.ID]})
		}
	}
	return vets, nil
}

func (f *fakeStore) GetVeterinarian(ctx context.Context, id int64) (*repository.Veterinarian, error) {
	user, ok := f.users[id]
	if !ok || user.UserType != UserTypeVeterinarian {
		return nil, apperr.NotFound("veterinarian not found")
	}
	return &repository.Veterinarian{User: *user, Biography: f.bios[id]}, nil
}

func (f *fakeStore) UpsertBiography(ctx context.Context, vetID int64, biography string) error {
	f.bios[vetID] = biography
	return nil
}

var _ repository.Store = (*fakeStore)(nil)

func seed(store *fakeStore) {
	store.users[3] = &repository.User{ID: 3, Email: "pat@example.com", FullName: "Pat Jones", UserType: "PATIENT"}
	store.users[9] = &repository.User{ID: 9, Email: "vet@example.com", FullName: "Dr. Smith", UserType: UserTypeVeterinarian}
}

func TestExists(t *testing.T) {
	store := newFakeStore()
	seed(store)
	svc := New(store)

	ok, err := svc.Exists(context.Background(), 3)
	if err != nil || !ok {
		t.Fatalf("expected existing user, got ok=%v err=%v", ok, err)
	}

	ok, err = svc.Exists(context.Background(), 404)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("expected missing user to report false")
	}
}

func TestIsVeterinarian(t *testing.T) {
	store := newFakeStore()
	seed(store)
	svc := New(store)

	tests := []struct {
		name string
		id   int64
		want bool
	}{
		{"veterinarian", 9, true},
		{"patient", 3, false},
		{"missing user", 404, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.IsVeterinarian(context.Background(), tt.id)
			if err != nil {
				t.Fatalf("IsVeterinarian: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsVeterinarian(%d) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestUpdateBiography_PatientForbidden(t *testing.T) {
	store := newFakeStore()
	seed(store)
	svc := New(store)

	_, err := svc.UpdateBiography(context.Background(), 3, transport.UpdateBiographyRequest{Biography: "hi"})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for patient, got %v", err)
	}
}

func TestUpdateBiography_SanitizesAndReturnsProfile(t *testing.T) {
	store := newFakeStore()
	seed(store)
	svc := New(store)

	resp, err := svc.UpdateBiography(context.Background(), 9, transport.UpdateBiographyRequest{
		Biography: "  20 years of small-animal practice.  ",
	})
	if err != nil {
		t.Fatalf("UpdateBiography: %v", err)
	}
	if resp.Biography != "20 years of small-animal practice." {
		t.Errorf("unexpected biography %q", resp.Biography)
	}
	if resp.FullName != "Dr. Smith" {
		t.Errorf("unexpected profile %+v", resp)
	}
}
