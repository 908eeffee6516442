package service

import (
	"context"
	"testing"
	"time"

	"vetclinic_backend/internal/appointments/domain"
	"vetclinic_backend/internal/appointments/repository"
	"vetclinic_backend/internal/appointments/transport"
	"vetclinic_backend/platform/apperr"
)

// fakeDirectory resolves users from a fixed map.
type fakeDirectory struct {
	users map[int64]*DirectoryUser
}

func (f *fakeDirectory) FindByID(_ context.Context, id int64) (*DirectoryUser, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return user, nil
}

// fakeStore is an in-memory Store that mirrors the repository's concurrency
// contract: Book enforces the capacity limit, UpdateStatus is a
// compare-and-set.
type fakeStore struct {
	appts  map[int64]*repository.Appointment
	nextID int64

	// forceStatusMiss makes the next UpdateStatus report a CAS miss, as if
	// a concurrent transition won the race.
	forceStatusMiss bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{appts: make(map[int64]*repository.Appointment), nextID: 1}
}

func (f *fakeStore) Book(_ context.Context, appt *repository.Appointment, pets []repository.Pet, maxActive int) (*repository.Appointment, error) {
	active := 0
	for _, existing := range f.appts {
		if existing.PatientID == appt.PatientID && !existing.Status.IsTerminal() {
			active++
		}
	}
	if active >= maxActive {
		return nil, repository.ErrCapacityExceeded
	}

	stored := *appt
	stored.ID = f.nextID
	f.nextID++
	stored.Pets = append([]repository.Pet(nil), pets...)
	f.appts[stored.ID] = &stored

	copied := stored
	return &copied, nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*repository.Appointment, error) {
	appt, ok := f.appts[id]
	if !ok {
		return nil, apperr.NotFound("appointment not found")
	}
	copied := *appt
	return &copied, nil
}

func (f *fakeStore) UpdateSchedule(_ context.Context, id int64, date time.Time, wallClock, reason string) (*repository.Appointment, error) {
	appt, ok := f.appts[id]
	if !ok {
		return nil, apperr.NotFound("appointment not found")
	}
	if appt.Status != domain.StatusWaitingForApproval {
		return nil, repository.ErrStatusConflict
	}
	appt.AppointmentDate = date
	appt.AppointmentTime = wallClock
	appt.Reason = reason
	copied := *appt
	return &copied, nil
}

func (f *fakeStore) AddPet(_ context.Context, id int64, pet repository.Pet) (*repository.Appointment, error) {
	appt, ok := f.appts[id]
	if !ok {
		return nil, apperr.NotFound("appointment not found")
	}
	if !appt.Status.AllowsPatientMutation() {
		return nil, repository.ErrStatusConflict
	}
	pet.ID = f.nextID
	f.nextID++
	pet.AppointmentID = id
	appt.Pets = append(appt.Pets, pet)
	copied := *appt
	return &copied, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id int64, from, to domain.Status) (bool, error) {
	if f.forceStatusMiss {
		f.forceStatusMiss = false
		return false, nil
	}
	appt, ok := f.appts[id]
	if !ok || appt.Status != from {
		return false, nil
	}
	appt.Status = to
	return true, nil
}

func (f *fakeStore) Delete(_ context.Context, id int64) error {
	if _, ok := f.appts[id]; !ok {
		return apperr.NotFound("appointment not found")
	}
	delete(f.appts, id)
	return nil
}

func (f *fakeStore) List(_ context.Context, params repository.ListParams) (*repository.ListResult, error) {
	items := make([]repository.Appointment, 0, len(f.appts))
	for _, appt := range f.appts {
		items = append(items, *appt)
	}
	return &repository.ListResult{Items: items, Total: int64(len(items)), Page: 1, PageSize: 20, TotalPages: 1}, nil
}

func (f *fakeStore) Search(ctx context.Context, _ string, params repository.ListParams) (*repository.ListResult, error) {
	return f.List(ctx, params)
}

func (f *fakeStore) Count(_ context.Context) (int64, error) {
	return int64(len(f.appts)), nil
}

func (f *fakeStore) StatusSummary(_ context.Context) ([]repository.StatusCount, error) {
	counts := make(map[domain.Status]int64)
	for _, appt := range f.appts {
		counts[appt.Status]++
	}
	out := make([]repository.StatusCount, 0, len(counts))
	for status, count := range counts {
		out = append(out, repository.StatusCount{Status: status, Count: count})
	}
	return out, nil
}

func (f *fakeStore) ListForUser(_ context.Context, userID int64) ([]repository.Appointment, error) {
	var items []repository.Appointment
	for _, appt := range f.appts {
		if appt.PatientID == userID || appt.VeterinarianID == userID {
			items = append(items, *appt)
		}
	}
	return items, nil
}

var _ repository.Store = (*fakeStore)(nil)

func newTestService(store *fakeStore) *Service {
	directory := &fakeDirectory{users: map[int64]*DirectoryUser{
		3: {ID: 3, Email: "patient@example.com", FullName: "Pat Patient"},
		9: {ID: 9, Email: "vet@example.com", FullName: "Dr Vet", IsVeterinarian: true},
		2: {ID: 2, Email: "vet2@example.com", FullName: "Dr Other", IsVeterinarian: true},
	}}
	return New(store, directory, time.UTC)
}

func bookRequest() transport.BookAppointmentRequest {
	return transport.BookAppointmentRequest{
		VeterinarianID:  9,
		AppointmentDate: "2026-09-15",
		AppointmentTime: "14:30",
		Reason:          "annual checkup",
		Pets:            []transport.PetRequest{{Name: "Rex", Species: "dog"}},
	}
}

func TestBook_Succeeds(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	resp, err := svc.Book(context.Background(), 3, bookRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != domain.StatusWaitingForApproval {
		t.Fatalf("expected WAITING_FOR_APPROVAL, got %s", resp.Status)
	}
	if resp.AppointmentNo == "" {
		t.Fatal("expected appointment number to be assigned")
	}
	if resp.PatientID != 3 || resp.VeterinarianID != 9 {
		t.Fatalf("unexpected participants: patient=%d vet=%d", resp.PatientID, resp.VeterinarianID)
	}
	if len(resp.Pets) != 1 || resp.Pets[0].Name != "Rex" {
		t.Fatalf("expected one pet named Rex, got %+v", resp.Pets)
	}
}

func TestBook_CapacityExceeded(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	for i := 0; i < MaxActiveAppointments; i++ {
		if _, err := svc.Book(ctx, 3, bookRequest()); err != nil {
			t.Fatalf("setup booking %d failed: %v", i, err)
		}
	}

	_, err := svc.Book(ctx, 3, bookRequest())
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if len(store.appts) != MaxActiveAppointments {
		t.Fatalf("expected %d persisted appointments, got %d", MaxActiveAppointments, len(store.appts))
	}
}

func TestBook_TerminalAppointmentsDoNotCount(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	first, err := svc.Book(ctx, 3, bookRequest())
	if err != nil {
		t.Fatalf("setup booking failed: %v", err)
	}
	if _, err := svc.Cancel(ctx, first.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if _, err := svc.Book(ctx, 3, bookRequest()); err != nil {
		t.Fatalf("booking after cancel failed: %v", err)
	}
	if _, err := svc.Book(ctx, 3, bookRequest()); err != nil {
		t.Fatalf("second active booking failed: %v", err)
	}
}

func TestBook_VeterinarianAsSenderForbidden(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.Book(context.Background(), 9, bookRequest())
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestBook_UnknownRecipient(t *testing.T) {
	svc := newTestService(newFakeStore())

	req := bookRequest()
	req.VeterinarianID = 404
	_, err := svc.Book(context.Background(), 3, req)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestApprove_AlreadyApprovedFails(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	resp, err := svc.Book(ctx, 3, bookRequest())
	if err != nil {
		t.Fatalf("setup booking failed: %v", err)
	}
	if _, err := svc.Approve(ctx, resp.ID); err != nil {
		t.Fatalf("first approve failed: %v", err)
	}

	_, err = svc.Approve(ctx, resp.ID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestUpdate_NonWaitingFails(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	resp, err := svc.Book(ctx, 3, bookRequest())
	if err != nil {
		t.Fatalf("setup booking failed: %v", err)
	}
	if _, err := svc.Approve(ctx, resp.ID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	_, err = svc.Update(ctx, resp.ID, transport.UpdateAppointmentRequest{
		AppointmentDate: "2026-09-16",
		AppointmentTime: "10:00",
		Reason:          "new reason",
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if err.Error() != msgCannotUpdateOrCancel {
		t.Fatalf("expected %q, got %q", msgCannotUpdateOrCancel, err.Error())
	}

	stored := store.appts[resp.ID]
	if stored.Status != domain.StatusApproved {
		t.Fatalf("status changed unexpectedly: %s", stored.Status)
	}
}

func TestCancel_Waiting(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	req := bookRequest()
	req.VeterinarianID = 2
	resp, err := svc.Book(ctx, 3, req)
	if err != nil {
		t.Fatalf("setup booking failed: %v", err)
	}

	cancelled, err := svc.Cancel(ctx, resp.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != domain.StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", cancelled.Status)
	}
	if cancelled.VeterinarianID != 2 {
		t.Fatalf("expected veterinarian id 2, got %d", cancelled.VeterinarianID)
	}
	if cancelled.AppointmentNo != resp.AppointmentNo {
		t.Fatalf("appointment number changed: %s -> %s", resp.AppointmentNo, cancelled.AppointmentNo)
	}
}

func TestCancel_ApprovedFails(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	resp, err := svc.Book(ctx, 3, bookRequest())
	if err != nil {
		t.Fatalf("setup booking failed: %v", err)
	}
	if _, err := svc.Approve(ctx, resp.ID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	_, err = svc.Cancel(ctx, resp.ID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if err.Error() != msgCannotUpdateOrCancel {
		t.Fatalf("expected %q, got %q", msgCannotUpdateOrCancel, err.Error())
	}
}

func TestAddPet_NonWaitingFails(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	resp, err := svc.Book(ctx, 3, bookRequest())
	if err != nil {
		t.Fatalf("setup booking failed: %v", err)
	}
	if _, err := svc.Approve(ctx, resp.ID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	_, err = svc.AddPet(ctx, resp.ID, transport.PetRequest{Name: "Whiskers", Species: "cat"})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestAddPet_Waiting(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	resp, err := svc.Book(ctx, 3, bookRequest())
	if err != nil {
		t.Fatalf("setup booking failed: %v", err)
	}

	updated, err := svc.AddPet(ctx, resp.ID, transport.PetRequest{Name: "Whiskers", Species: "cat"})
	if err != nil {
		t.Fatalf("add pet failed: %v", err)
	}
	if len(updated.Pets) != 2 {
		t.Fatalf("expected 2 pets, got %d", len(updated.Pets))
	}
	if updated.AppointmentNo != resp.AppointmentNo {
		t.Fatalf("appointment number changed: %s -> %s", resp.AppointmentNo, updated.AppointmentNo)
	}
}

func TestTransition_ConcurrentLoserGetsConflict(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	resp, err := svc.Book(ctx, 3, bookRequest())
	if err != nil {
		t.Fatalf("setup booking failed: %v", err)
	}

	// The status check passes, but the write-time compare-and-set misses
	// because a concurrent decline got there first.
	store.forceStatusMiss = true
	_, err = svc.Approve(ctx, resp.ID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestRefreshStatus_ApprovedFutureBecomesUpComing(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	resp, err := svc.Book(ctx, 3, bookRequest())
	if err != nil {
		t.Fatalf("setup booking failed: %v", err)
	}
	if _, err := svc.Approve(ctx, resp.ID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	svc.now = func() time.Time {
		return time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC) // before the 14:30 start
	}

	refreshed, err := svc.RefreshStatus(ctx, resp.ID)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if refreshed.Status != domain.StatusUpComing {
		t.Fatalf("expected UP_COMING, got %s", refreshed.Status)
	}

	again, err := svc.RefreshStatus(ctx, resp.ID)
	if err != nil {
		t.Fatalf("second refresh failed: %v", err)
	}
	if again.Status != domain.StatusUpComing {
		t.Fatalf("refresh is not idempotent: got %s", again.Status)
	}
}

func TestRefreshStatus_WaitingExpires(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	resp, err := svc.Book(ctx, 3, bookRequest())
	if err != nil {
		t.Fatalf("setup booking failed: %v", err)
	}

	svc.now = func() time.Time {
		return time.Date(2026, 9, 15, 15, 0, 0, 0, time.UTC) // past the 14:30 start
	}

	refreshed, err := svc.RefreshStatus(ctx, resp.ID)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if refreshed.Status != domain.StatusNotApproved {
		t.Fatalf("expected NOT_APPROVED, got %s", refreshed.Status)
	}
}

func TestDelete_AnyStatus(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	resp, err := svc.Book(ctx, 3, bookRequest())
	if err != nil {
		t.Fatalf("setup booking failed: %v", err)
	}
	if _, err := svc.Approve(ctx, resp.ID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	if err := svc.Delete(ctx, resp.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := svc.Delete(ctx, resp.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
