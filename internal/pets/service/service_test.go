package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"vetclinic_backend/internal/adapters/storage"
	"vetclinic_backend/internal/pets/repository"
	"vetclinic_backend/internal/pets/transport"
	"vetclinic_backend/platform/apperr"
)

type fakeStore struct {
	pets   map[int64]*repository.PetRecord
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{pets: make(map[int64]*repository.PetRecord), nextID: 1}
}

func (f *fakeStore) SavePet(ctx context.Context, pet *repository.PetRecord) (*repository.PetRecord, error) {
	saved := *pet
	saved.ID = f.nextID
	saved.CreatedAt = time.Now()
	saved.UpdatedAt = saved.CreatedAt
	f.nextID++
	f.pets[saved.ID] = &saved
	return &saved, nil
}

func (f *fakeStore) SavePets(ctx context.Context, pets []repository.PetRecord) ([]repository.PetRecord, error) {
	saved := make([]repository.PetRecord, 0, len(pets))
	for i := range pets {
		rec, err := f.SavePet(ctx, &pets[i])
		if err != nil {
			return nil, err
		}
		saved = append(saved, *rec)
	}
	return saved, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id, ownerID int64) (*repository.PetRecord, error) {
	pet, ok := f.pets[id]
	if !ok || pet.OwnerID != ownerID {
		return nil, apperr.NotFound("pet not found")
	}
	copied := *pet
	return &copied, nil
}

func (f *fakeStore) ListByOwner(ctx context.Context, ownerID int64) ([]repository.PetRecord, error) {
	out := make([]repository.PetRecord, 0)
	for _, pet := range f.pets {
		if pet.OwnerID == ownerID {
			out = append(out, *pet)
		}
	}
	return out, nil
}

func (f *fakeStore) Update(ctx context.Context, pet *repository.PetRecord) (*repository.PetRecord, error) {
	existing, ok := f.pets[pet.ID]
	if !ok || existing.OwnerID != pet.OwnerID {
		return nil, apperr.NotFound("pet not found")
	}
	existing.Name = pet.Name
	existing.Species = pet.Species
	existing.Breed = pet.Breed
	existing.Colour = pet.Colour
	existing.BirthDate = pet.BirthDate
	existing.UpdatedAt = time.Now()
	copied := *existing
	return &copied, nil
}

func (f *fakeStore) SetPhotoKey(ctx context.Context, id, ownerID int64, photoKey string) error {
	pet, ok := f.pets[id]
	if !ok || pet.OwnerID != ownerID {
		return apperr.NotFound("pet not found")
	}
	pet.PhotoKey = photoKey
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, id, ownerID int64) error {
	pet, ok := f.pets[id]
	if !ok || pet.OwnerID != ownerID {
		return apperr.NotFound("pet not found")
	}
	delete(f.pets, id)
	return nil
}

var _ repository.Store = (*fakeStore)(nil)

type fakeStorage struct {
	deleted    []string
	uploadErr  error
	lastFolder string
}

func (f *fakeStorage) GenerateUploadURL(ctx context.Context, bucket, folder, fileName, contentType string, sizeBytes int64) (*storage.PresignedURL, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.lastFolder = folder
	key := folder + "/" + fileName
	return &storage.PresignedURL{URL: "https://storage.test/" + key, FileKey: key, ExpiresAt: time.Now().Add(15 * time.Minute)}, nil
}

func (f *fakeStorage) GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*storage.PresignedURL, error) {
	return &storage.PresignedURL{URL: "https://storage.test/" + fileKey, FileKey: fileKey, ExpiresAt: time.Now().Add(15 * time.Minute)}, nil
}

func (f *fakeStorage) DownloadFile(ctx context.Context, bucket, fileKey string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStorage) DeleteObject(ctx context.Context, bucket, fileKey string) error {
	f.deleted = append(f.deleted, fileKey)
	return nil
}

func (f *fakeStorage) UploadFile(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error) {
	return folder + "/" + fileName, nil
}

func (f *fakeStorage) EnsureBucketExists(ctx context.Context, bucket string) error { return nil }
func (f *fakeStorage) ValidateContentType(contentType string) error                { return nil }
func (f *fakeStorage) ValidateFileSize(sizeBytes int64) error                      { return nil }
func (f *fakeStorage) GetMaxFileSize() int64                                       { return 10 << 20 }

var _ storage.StorageService = (*fakeStorage)(nil)

func strPtr(s string) *string { return &s }

func TestCreate_ParsesBirthDate(t *testing.T) {
	store := newFakeStore()
	svc := New(store, nil, "")

	resp, err := svc.Create(context.Background(), 3, transport.CreatePetRequest{
		Name:      "  Rex ",
		Species:   "dog",
		BirthDate: strPtr("2021-06-01"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resp.Name != "Rex" {
		t.Errorf("expected sanitized name Rex, got %q", resp.Name)
	}
	if resp.BirthDate == nil || *resp.BirthDate != "2021-06-01" {
		t.Errorf("unexpected birth date %v", resp.BirthDate)
	}
}

func TestCreate_RejectsInvalidBirthDate(t *testing.T) {
	svc := New(newFakeStore(), nil, "")

	_, err := svc.Create(context.Background(), 3, transport.CreatePetRequest{
		Name:      "Rex",
		Species:   "dog",
		BirthDate: strPtr("01-06-2021"),
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetByID_OtherOwnerNotFound(t *testing.T) {
	store := newFakeStore()
	svc := New(store, nil, "")

	created, err := svc.Create(context.Background(), 3, transport.CreatePetRequest{Name: "Rex", Species: "dog"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.GetByID(context.Background(), 99, created.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for other owner, got %v", err)
	}
}

func TestDelete_RemovesStoredPhoto(t *testing.T) {
	store := newFakeStore()
	objStore := &fakeStorage{}
	svc := New(store, objStore, "pet-photos")

	created, err := svc.Create(context.Background(), 3, transport.CreatePetRequest{Name: "Rex", Species: "dog"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.AttachPhoto(context.Background(), 3, created.ID, transport.AttachPhotoRequest{FileKey: "pets/1/rex.jpg"}); err != nil {
		t.Fatalf("AttachPhoto: %v", err)
	}

	if err := svc.Delete(context.Background(), 3, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(objStore.deleted) != 1 || objStore.deleted[0] != "pets/1/rex.jpg" {
		t.Errorf("expected photo object deleted, got %v", objStore.deleted)
	}
}

func TestRequestPhotoUpload_WithoutStorageFails(t *testing.T) {
	svc := New(newFakeStore(), nil, "")

	_, err := svc.RequestPhotoUpload(context.Background(), 3, 1, transport.PhotoUploadRequest{
		FileName: "rex.jpg", ContentType: "image/jpeg", SizeBytes: 1024,
	})
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected internal error when storage is unconfigured, got %v", err)
	}
}

func TestRequestPhotoUpload_ScopesFolderToPet(t *testing.T) {
	store := newFakeStore()
	objStore := &fakeStorage{}
	svc := New(store, objStore, "pet-photos")

	created, err := svc.Create(context.Background(), 3, transport.CreatePetRequest{Name: "Rex", Species: "dog"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	resp, err := svc.RequestPhotoUpload(context.Background(), 3, created.ID, transport.PhotoUploadRequest{
		FileName: "rex.jpg", ContentType: "image/jpeg", SizeBytes: 1024,
	})
	if err != nil {
		t.Fatalf("RequestPhotoUpload: %v", err)
	}
	if objStore.lastFolder != "pets/1" {
		t.Errorf("expected folder pets/1, got %q", objStore.lastFolder)
	}
	if resp.FileKey == "" || resp.URL == "" {
		t.Errorf("expected presigned URL and file key, got %+v", resp)
	}
}

func TestPhotoURL_NoPhotoNotFound(t *testing.T) {
	store := newFakeStore()
	svc := New(store, &fakeStorage{}, "pet-photos")

	created, err := svc.Create(context.Background(), 3, transport.CreatePetRequest{Name: "Rex", Species: "dog"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.PhotoURL(context.Background(), 3, created.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for pet without photo, got %v", err)
	}
}

func TestAttachPhoto_SetsHasPhoto(t *testing.T) {
	store := newFakeStore()
	svc := New(store, &fakeStorage{}, "pet-photos")

	created, err := svc.Create(context.Background(), 3, transport.CreatePetRequest{Name: "Rex", Species: "dog"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	resp, err := svc.AttachPhoto(context.Background(), 3, created.ID, transport.AttachPhotoRequest{FileKey: "pets/1/rex.jpg"})
	if err != nil {
		t.Fatalf("AttachPhoto: %v", err)
	}
	if !resp.HasPhoto {
		t.Error("expected HasPhoto after attaching")
	}
}
