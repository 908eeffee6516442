package notification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"vetclinic_backend/internal/events"
	"vetclinic_backend/internal/notification/outbox"
	"vetclinic_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeDirectory struct {
	recipients map[int64]Recipient
}

func (f *fakeDirectory) Recipient(_ context.Context, userID int64) (Recipient, error) {
	rec, ok := f.recipients[userID]
	if !ok {
		return Recipient{}, errors.New("no rows in result set")
	}
	return rec, nil
}

type fakeOutbox struct {
	records   map[uuid.UUID]*outbox.Record
	inserted  []outbox.InsertParams
	retries   []time.Time
	insertErr error
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{records: make(map[uuid.UUID]*outbox.Record)}
}

func (f *fakeOutbox) Insert(_ context.Context, p outbox.InsertParams) (uuid.UUID, error) {
	if f.insertErr != nil {
		return uuid.Nil, f.insertErr
	}
	f.inserted = append(f.inserted, p)

	payload, err := json.Marshal(p.Payload)
	if err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	f.records[id] = &outbox.Record{
		ID:       id,
		Kind:     p.Kind,
		Template: p.Template,
		EventKey: p.EventKey,
		Payload:  payload,
		RunAt:    p.RunAt,
		Status:   outbox.StatusPending,
	}
	return id, nil
}

func (f *fakeOutbox) GetByID(_ context.Context, id uuid.UUID) (outbox.Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return outbox.Record{}, errors.New("no rows in result set")
	}
	return *rec, nil
}

func (f *fakeOutbox) MarkProcessing(_ context.Context, id uuid.UUID) error {
	f.records[id].Status = outbox.StatusProcessing
	f.records[id].Attempts++
	return nil
}

func (f *fakeOutbox) MarkSucceeded(_ context.Context, id uuid.UUID) error {
	f.records[id].Status = outbox.StatusSucceeded
	return nil
}

func (f *fakeOutbox) MarkFailed(_ context.Context, id uuid.UUID, _ string) error {
	f.records[id].Status = outbox.StatusFailed
	return nil
}

func (f *fakeOutbox) ScheduleRetry(_ context.Context, id uuid.UUID, runAt time.Time, _ string) error {
	f.records[id].Status = outbox.StatusPending
	f.records[id].RunAt = runAt
	f.retries = append(f.retries, runAt)
	return nil
}

var _ Outbox = (*fakeOutbox)(nil)

type fakeSender struct {
	sent    []sentEmail
	sendErr error
}

type sentEmail struct {
	ToEmail string
	Subject string
	Body    string
}

func (f *fakeSender) SendCustomEmail(_ context.Context, toEmail, subject, htmlContent string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentEmail{ToEmail: toEmail, Subject: subject, Body: htmlContent})
	return nil
}

func newTestModule(ob *fakeOutbox, sender *fakeSender) *Module {
	directory := &fakeDirectory{recipients: map[int64]Recipient{
		3: {ID: 3, Email: "pat@example.com", FullName: "Pat Jones"},
		9: {ID: 9, Email: "vet@example.com", FullName: "Dr. Smith"},
	}}
	return NewModule(ob, directory, sender, logger.NewNop())
}

func decodePayload(t *testing.T, p outbox.InsertParams) emailSendOutboxPayload {
	t.Helper()
	raw, err := json.Marshal(p.Payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	var payload emailSendOutboxPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	return payload
}

func TestHandleAppointmentBooked_EnqueuesVeterinarianEmail(t *testing.T) {
	ob := newFakeOutbox()
	m := newTestModule(ob, &fakeSender{})

	err := m.Handle(context.Background(), events.AppointmentBooked{
		BaseEvent:      events.NewBaseEvent(),
		AppointmentID:  42,
		AppointmentNo:  "AB12345",
		PatientID:      3,
		VeterinarianID: 9,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ob.inserted) != 1 {
		t.Fatalf("expected 1 outbox insert, got %d", len(ob.inserted))
	}
	rec := ob.inserted[0]
	if rec.EventKey != "AppointmentBookedEvent:9" {
		t.Fatalf("unexpected event key %q", rec.EventKey)
	}
	if rec.Kind != "email" || rec.Template != "email_send" {
		t.Fatalf("unexpected kind/template %s/%s", rec.Kind, rec.Template)
	}

	payload := decodePayload(t, rec)
	if payload.ToEmail != "vet@example.com" {
		t.Fatalf("expected veterinarian recipient, got %q", payload.ToEmail)
	}
	if !strings.Contains(payload.Subject, "AB12345") {
		t.Fatalf("subject should reference appointment number, got %q", payload.Subject)
	}
	if !strings.Contains(payload.BodyHTML, "Pat Jones") {
		t.Fatalf("body should name the patient, got %q", payload.BodyHTML)
	}
}

func TestHandleAppointmentCanceled_KeyCarriesAppointmentNumber(t *testing.T) {
	ob := newFakeOutbox()
	m := newTestModule(ob, &fakeSender{})

	err := m.Handle(context.Background(), events.AppointmentCanceled{
		BaseEvent:      events.NewBaseEvent(),
		AppointmentID:  7,
		AppointmentNo:  "AB12345",
		PatientID:      3,
		VeterinarianID: 9,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ob.inserted) != 1 {
		t.Fatalf("expected 1 outbox insert, got %d", len(ob.inserted))
	}
	if got := ob.inserted[0].EventKey; got != "AppointmentCanceledEvent:9#AB12345" {
		t.Fatalf("unexpected event key %q", got)
	}
}

func TestHandleAppointmentApproved_TargetsPatient(t *testing.T) {
	ob := newFakeOutbox()
	m := newTestModule(ob, &fakeSender{})

	err := m.Handle(context.Background(), events.AppointmentApproved{
		BaseEvent:      events.NewBaseEvent(),
		AppointmentID:  42,
		AppointmentNo:  "AB12345",
		PatientID:      3,
		VeterinarianID: 9,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := ob.inserted[0].EventKey; got != "AppointmentApprovedEvent:3" {
		t.Fatalf("unexpected event key %q", got)
	}
	payload := decodePayload(t, ob.inserted[0])
	if payload.ToEmail != "pat@example.com" {
		t.Fatalf("expected patient recipient, got %q", payload.ToEmail)
	}
}

func TestHandleUserRegistered_SendsWelcome(t *testing.T) {
	ob := newFakeOutbox()
	m := newTestModule(ob, &fakeSender{})

	err := m.Handle(context.Background(), events.UserRegistered{
		BaseEvent: events.NewBaseEvent(),
		UserID:    3,
		Email:     "pat@example.com",
		UserType:  "PATIENT",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := ob.inserted[0].EventKey; got != "UserRegisteredEvent:3" {
		t.Fatalf("unexpected event key %q", got)
	}
	payload := decodePayload(t, ob.inserted[0])
	if !strings.Contains(payload.BodyHTML, "Pat Jones") {
		t.Fatalf("welcome body should greet the user, got %q", payload.BodyHTML)
	}
}

func TestHandleUnknownRecipient_ReturnsError(t *testing.T) {
	ob := newFakeOutbox()
	m := newTestModule(ob, &fakeSender{})

	err := m.Handle(context.Background(), events.ReviewPosted{
		BaseEvent:      events.NewBaseEvent(),
		ReviewID:       1,
		PatientID:      3,
		VeterinarianID: 404,
		Stars:          5,
	})
	if err == nil {
		t.Fatal("expected error for unknown recipient")
	}
	if len(ob.inserted) != 0 {
		t.Fatalf("expected no outbox inserts, got %d", len(ob.inserted))
	}
}

func TestHandleOutboxDue_DeliversAndMarksSucceeded(t *testing.T) {
	ob := newFakeOutbox()
	sender := &fakeSender{}
	m := newTestModule(ob, sender)
	ctx := context.Background()

	if err := m.Handle(ctx, events.AppointmentBooked{
		BaseEvent:      events.NewBaseEvent(),
		AppointmentID:  42,
		AppointmentNo:  "AB12345",
		PatientID:      3,
		VeterinarianID: 9,
	}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	var id uuid.UUID
	for recID := range ob.records {
		id = recID
	}

	if err := m.Handle(ctx, events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  id,
	}); err != nil {
		t.Fatalf("delivery failed: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 email sent, got %d", len(sender.sent))
	}
	if sender.sent[0].ToEmail != "vet@example.com" {
		t.Fatalf("unexpected recipient %q", sender.sent[0].ToEmail)
	}
	if ob.records[id].Status != outbox.StatusSucceeded {
		t.Fatalf("expected succeeded status, got %s", ob.records[id].Status)
	}
}

func TestHandleOutboxDue_AlreadySucceededIsSkipped(t *testing.T) {
	ob := newFakeOutbox()
	sender := &fakeSender{}
	m := newTestModule(ob, sender)
	ctx := context.Background()

	id, err := ob.Insert(ctx, outbox.InsertParams{
		Kind:     "email",
		Template: "email_send",
		EventKey: "UserRegisteredEvent:3",
		Payload:  emailSendOutboxPayload{ToEmail: "pat@example.com", Subject: "s", BodyHTML: "b"},
		RunAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	ob.records[id].Status = outbox.StatusSucceeded

	if err := m.Handle(ctx, events.NotificationOutboxDue{BaseEvent: events.NewBaseEvent(), OutboxID: id}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no resend, got %d", len(sender.sent))
	}
}

func TestHandleOutboxDue_SendFailureSchedulesRetry(t *testing.T) {
	ob := newFakeOutbox()
	sender := &fakeSender{sendErr: errors.New("smtp down")}
	m := newTestModule(ob, sender)
	ctx := context.Background()

	id, err := ob.Insert(ctx, outbox.InsertParams{
		Kind:     "email",
		Template: "email_send",
		EventKey: "UserRegisteredEvent:3",
		Payload:  emailSendOutboxPayload{ToEmail: "pat@example.com", Subject: "s", BodyHTML: "b"},
		RunAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if err := m.Handle(ctx, events.NotificationOutboxDue{BaseEvent: events.NewBaseEvent(), OutboxID: id}); err == nil {
		t.Fatal("expected delivery error")
	}

	if ob.records[id].Status != outbox.StatusPending {
		t.Fatalf("expected record back to pending, got %s", ob.records[id].Status)
	}
	if len(ob.retries) != 1 {
		t.Fatalf("expected 1 retry scheduled, got %d", len(ob.retries))
	}
}

func TestHandleOutboxDue_ExhaustedRetriesMarkFailed(t *testing.T) {
	ob := newFakeOutbox()
	sender := &fakeSender{sendErr: errors.New("smtp down")}
	m := newTestModule(ob, sender)
	ctx := context.Background()

	id, err := ob.Insert(ctx, outbox.InsertParams{
		Kind:     "email",
		Template: "email_send",
		EventKey: "UserRegisteredEvent:3",
		Payload:  emailSendOutboxPayload{ToEmail: "pat@example.com", Subject: "s", BodyHTML: "b"},
		RunAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	ob.records[id].Attempts = maxOutboxRetryAttempts - 1

	if err := m.Handle(ctx, events.NotificationOutboxDue{BaseEvent: events.NewBaseEvent(), OutboxID: id}); err == nil {
		t.Fatal("expected delivery error")
	}

	if ob.records[id].Status != outbox.StatusFailed {
		t.Fatalf("expected failed status, got %s", ob.records[id].Status)
	}
	if len(ob.retries) != 0 {
		t.Fatalf("expected no retry after exhaustion, got %d", len(ob.retries))
	}
}

func TestHandleOutboxDue_MalformedPayloadFailsWithoutRetry(t *testing.T) {
	ob := newFakeOutbox()
	m := newTestModule(ob, &fakeSender{})
	ctx := context.Background()

	id := uuid.New()
	ob.records[id] = &outbox.Record{
		ID:       id,
		Kind:     "email",
		Template: "email_send",
		Payload:  json.RawMessage(`{not json`),
		Status:   outbox.StatusEnqueued,
	}

	if err := m.Handle(ctx, events.NotificationOutboxDue{BaseEvent: events.NewBaseEvent(), OutboxID: id}); err != nil {
		t.Fatalf("malformed payload should not propagate, got %v", err)
	}
	if ob.records[id].Status != outbox.StatusFailed {
		t.Fatalf("expected failed status, got %s", ob.records[id].Status)
	}
}

func TestComputeOutboxRetryDelay_Backoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: time.Minute},
		{attempt: 1, want: time.Minute},
		{attempt: 2, want: 2 * time.Minute},
		{attempt: 4, want: 8 * time.Minute},
		{attempt: 10, want: 60 * time.Minute},
	}
	for _, tc := range cases {
		if got := computeOutboxRetryDelay(tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: expected %v, got %v", tc.attempt, tc.want, got)
		}
	}
}
