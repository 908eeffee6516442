// Package notification turns domain events into outbox records and
// delivers them when the scheduler announces they are due. Emails are
// rendered at enqueue time so a delivery attempt only needs the payload.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"vetclinic_backend/internal/email"
	"vetclinic_backend/internal/events"
	"vetclinic_backend/internal/notification/outbox"
	"vetclinic_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	kindEmail         = "email"
	templateEmailSend = "email_send"

	invalidOutboxPayloadPrefix = "invalid payload: "

	maxOutboxRetryAttempts = 5
	outboxRetryBaseDelay   = time.Minute
	outboxRetryMaxDelay    = 60 * time.Minute
)

// emailSendOutboxPayload is the stored form of a rendered email.
type emailSendOutboxPayload struct {
	ToEmail  string `json:"toEmail"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"bodyHtml"`
}

// Recipient is the directory projection the module needs for addressing.
type Recipient struct {
	ID       int64
	Email    string
	FullName string
}

// RecipientDirectory resolves a user id to an addressable recipient.
type RecipientDirectory interface {
	Recipient(ctx context.Context, userID int64) (Recipient, error)
}

// Outbox is the persistence surface the module needs. The concrete
// implementation is outbox.Repository.
type Outbox interface {
	Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error
}

// Module subscribes to domain events and owns outbox delivery.
type Module struct {
	outbox    Outbox
	directory RecipientDirectory
	sender    email.Sender
	log       *logger.Logger
}

func NewModule(ob Outbox, directory RecipientDirectory, sender email.Sender, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	return &Module{
		outbox:    ob,
		directory: directory,
		sender:    sender,
		log:       log,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "notification"
}

// RegisterHandlers subscribes the module to every event it acts on.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.AppointmentBookedName, m)
	bus.Subscribe(events.AppointmentApprovedName, m)
	bus.Subscribe(events.AppointmentDeclinedName, m)
	bus.Subscribe(events.AppointmentCanceledName, m)
	bus.Subscribe(events.AppointmentUpdatedName, m)
	bus.Subscribe(events.UserRegisteredName, m)
	bus.Subscribe(events.ReviewPostedName, m)
	bus.Subscribe(events.AppointmentReminderDueName, m)
	bus.Subscribe(events.NotificationOutboxDueName, m)
}

// Handle dispatches an event to its typed handler.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.AppointmentBooked:
		return m.handleAppointmentBooked(ctx, e)
	case events.AppointmentApproved:
		return m.handleAppointmentApproved(ctx, e)
	case events.AppointmentDeclined:
		return m.handleAppointmentDeclined(ctx, e)
	case events.AppointmentCanceled:
		return m.handleAppointmentCanceled(ctx, e)
	case events.AppointmentUpdated:
		return m.handleAppointmentUpdated(ctx, e)
	case events.UserRegistered:
		return m.handleUserRegistered(ctx, e)
	case events.ReviewPosted:
		return m.handleReviewPosted(ctx, e)
	case events.AppointmentReminderDue:
		return m.handleAppointmentReminderDue(ctx, e)
	case events.NotificationOutboxDue:
		return m.handleOutboxDue(ctx, e)
	default:
		return nil
	}
}

// =============================================================================
// Enqueue side: domain events become outbox records
// =============================================================================

func (m *Module) handleAppointmentBooked(ctx context.Context, e events.AppointmentBooked) error {
	vet, err := m.directory.Recipient(ctx, e.VeterinarianID)
	if err != nil {
		return fmt.Errorf("resolve veterinarian %d: %w", e.VeterinarianID, err)
	}
	patient, err := m.directory.Recipient(ctx, e.PatientID)
	if err != nil {
		return fmt.Errorf("resolve patient %d: %w", e.PatientID, err)
	}

	subject, body, err := email.RenderAppointmentBooked(vet.FullName, patient.FullName, e.AppointmentNo, "")
	if err != nil {
		return err
	}

	eventKey := events.EncodeWire(events.AppointmentBookedName, e.VeterinarianID, "")
	return m.enqueueEmail(ctx, eventKey, vet.Email, subject, body)
}

func (m *Module) handleAppointmentApproved(ctx context.Context, e events.AppointmentApproved) error {
	patient, err := m.directory.Recipient(ctx, e.PatientID)
	if err != nil {
		return fmt.Errorf("resolve patient %d: %w", e.PatientID, err)
	}

	subject, body, err := email.RenderAppointmentApproved(patient.FullName, e.AppointmentNo, "")
	if err != nil {
		return err
	}

	eventKey := events.EncodeWire(events.AppointmentApprovedName, e.PatientID, "")
	return m.enqueueEmail(ctx, eventKey, patient.Email, subject, body)
}

func (m *Module) handleAppointmentDeclined(ctx context.Context, e events.AppointmentDeclined) error {
	patient, err := m.directory.Recipient(ctx, e.PatientID)
	if err != nil {
		return fmt.Errorf("resolve patient %d: %w", e.PatientID, err)
	}

	subject, body, err := email.RenderAppointmentDeclined(patient.FullName, e.AppointmentNo)
	if err != nil {
		return err
	}

	eventKey := events.EncodeWire(events.AppointmentDeclinedName, e.PatientID, "")
	return m.enqueueEmail(ctx, eventKey, patient.Email, subject, body)
}

func (m *Module) handleAppointmentCanceled(ctx context.Context, e events.AppointmentCanceled) error {
	vet, err := m.directory.Recipient(ctx, e.VeterinarianID)
	if err != nil {
		return fmt.Errorf("resolve veterinarian %d: %w", e.VeterinarianID, err)
	}

	subject, body, err := email.RenderAppointmentCanceled(vet.FullName, e.AppointmentNo)
	if err != nil {
		return err
	}

	// The appointment number rides along as the secondary wire field so the
	// record stays traceable after the appointment is gone.
	eventKey := events.EncodeWire(events.AppointmentCanceledName, e.VeterinarianID, e.AppointmentNo)
	return m.enqueueEmail(ctx, eventKey, vet.Email, subject, body)
}

func (m *Module) handleAppointmentUpdated(ctx context.Context, e events.AppointmentUpdated) error {
	vet, err := m.directory.Recipient(ctx, e.VeterinarianID)
	if err != nil {
		return fmt.Errorf("resolve veterinarian %d: %w", e.VeterinarianID, err)
	}

	subject, body, err := email.RenderAppointmentUpdated(vet.FullName, e.AppointmentNo, "")
	if err != nil {
		return err
	}

	eventKey := events.EncodeWire(events.AppointmentUpdatedName, e.VeterinarianID, "")
	return m.enqueueEmail(ctx, eventKey, vet.Email, subject, body)
}

func (m *Module) handleUserRegistered(ctx context.Context, e events.UserRegistered) error {
	user, err := m.directory.Recipient(ctx, e.UserID)
	if err != nil {
		return fmt.Errorf("resolve user %d: %w", e.UserID, err)
	}

	subject, body, err := email.RenderWelcome(user.FullName)
	if err != nil {
		return err
	}

	eventKey := events.EncodeWire(events.UserRegisteredName, e.UserID, "")
	return m.enqueueEmail(ctx, eventKey, user.Email, subject, body)
}

func (m *Module) handleReviewPosted(ctx context.Context, e events.ReviewPosted) error {
	vet, err := m.directory.Recipient(ctx, e.VeterinarianID)
	if err != nil {
		return fmt.Errorf("resolve veterinarian %d: %w", e.VeterinarianID, err)
	}

	subject, body, err := email.RenderReviewPosted(vet.FullName, e.Stars)
	if err != nil {
		return err
	}

	eventKey := events.EncodeWire(events.ReviewPostedName, e.VeterinarianID, "")
	return m.enqueueEmail(ctx, eventKey, vet.Email, subject, body)
}

func (m *Module) handleAppointmentReminderDue(ctx context.Context, e events.AppointmentReminderDue) error {
	patient, err := m.directory.Recipient(ctx, e.PatientID)
	if err != nil {
		return fmt.Errorf("resolve patient %d: %w", e.PatientID, err)
	}

	scheduledFor := e.StartsAt.Format("Monday 2 January 2006 at 15:04")
	subject, body, err := email.RenderAppointmentReminder(patient.FullName, e.AppointmentNo, scheduledFor)
	if err != nil {
		return err
	}

	eventKey := events.EncodeWire(events.AppointmentReminderDueName, e.PatientID, e.AppointmentNo)
	return m.enqueueEmail(ctx, eventKey, patient.Email, subject, body)
}

func (m *Module) enqueueEmail(ctx context.Context, eventKey, toEmail, subject, bodyHTML string) error {
	if m.outbox == nil {
		m.log.Debug("outbox not configured; dropping notification", "eventKey", eventKey)
		return nil
	}

	id, err := m.outbox.Insert(ctx, outbox.InsertParams{
		Kind:     kindEmail,
		Template: templateEmailSend,
		EventKey: eventKey,
		Payload: emailSendOutboxPayload{
			ToEmail:  toEmail,
			Subject:  subject,
			BodyHTML: bodyHTML,
		},
		RunAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("enqueue notification %s: %w", eventKey, err)
	}

	m.log.Info("notification enqueued", "outboxId", id.String(), "eventKey", eventKey, "toEmail", toEmail)
	return nil
}

// =============================================================================
// Delivery side: outbox-due events from the scheduler worker
// =============================================================================

func (m *Module) handleOutboxDue(ctx context.Context, e events.NotificationOutboxDue) error {
	if m.outbox == nil {
		m.log.Debug("outbox not configured; skipping outbox due event", "outboxId", e.OutboxID)
		return nil
	}

	rec, process, err := m.prepareOutboxRecord(ctx, e.OutboxID)
	if err != nil || !process {
		if err != nil {
			m.log.Error("failed to prepare outbox record", "outboxId", e.OutboxID, "error", err)
		}
		return err
	}

	if rec.Kind != kindEmail || rec.Template != templateEmailSend {
		m.markOutboxUnsupported(ctx, rec)
		return nil
	}

	if processErr := m.processEmailOutbox(ctx, rec); processErr != nil {
		m.handleOutboxDeliveryError(ctx, rec, processErr)
		return processErr
	}

	m.log.Info("outbox record processed", "outboxId", rec.ID.String(), "eventKey", rec.EventKey)
	return nil
}

func (m *Module) prepareOutboxRecord(ctx context.Context, outboxID uuid.UUID) (outbox.Record, bool, error) {
	rec, err := m.outbox.GetByID(ctx, outboxID)
	if err != nil {
		return outbox.Record{}, false, err
	}
	if rec.Status == outbox.StatusSucceeded {
		m.log.Debug("outbox record already succeeded; skipping", "outboxId", rec.ID.String())
		return rec, false, nil
	}
	if err := m.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return outbox.Record{}, false, err
	}
	return rec, true, nil
}

func (m *Module) processEmailOutbox(ctx context.Context, rec outbox.Record) error {
	var payload emailSendOutboxPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		_ = m.outbox.MarkFailed(ctx, rec.ID, invalidOutboxPayloadPrefix+err.Error())
		return nil
	}

	if strings.TrimSpace(payload.ToEmail) == "" {
		m.log.Debug("outbox email payload has no recipient; marking succeeded", "outboxId", rec.ID.String())
		_ = m.outbox.MarkSucceeded(ctx, rec.ID)
		return nil
	}

	if strings.TrimSpace(payload.Subject) == "" || strings.TrimSpace(payload.BodyHTML) == "" {
		_ = m.outbox.MarkFailed(ctx, rec.ID, invalidOutboxPayloadPrefix+"subject and bodyHtml are required")
		return nil
	}

	if err := m.sender.SendCustomEmail(ctx, payload.ToEmail, payload.Subject, payload.BodyHTML); err != nil {
		return err
	}

	_ = m.outbox.MarkSucceeded(ctx, rec.ID)
	m.log.Info("email delivered", "outboxId", rec.ID.String(), "eventKey", rec.EventKey, "toEmail", payload.ToEmail)
	return nil
}

func (m *Module) handleOutboxDeliveryError(ctx context.Context, rec outbox.Record, deliveryErr error) {
	attempt := rec.Attempts + 1
	if attempt >= maxOutboxRetryAttempts {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Warn("outbox record exhausted retries",
			"outboxId", rec.ID.String(),
			"eventKey", rec.EventKey,
			"attempt", attempt,
			"maxAttempts", maxOutboxRetryAttempts,
			"error", deliveryErr,
		)
		return
	}

	retryAt := time.Now().UTC().Add(computeOutboxRetryDelay(attempt))
	if err := m.outbox.ScheduleRetry(ctx, rec.ID, retryAt, deliveryErr.Error()); err != nil {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Error("outbox retry scheduling failed; marked failed",
			"outboxId", rec.ID.String(),
			"attempt", attempt,
			"error", err,
		)
		return
	}

	m.log.Warn("outbox record scheduled for retry",
		"outboxId", rec.ID.String(),
		"eventKey", rec.EventKey,
		"attempt", attempt,
		"maxAttempts", maxOutboxRetryAttempts,
		"retryAt", retryAt,
		"error", deliveryErr,
	)
}

func (m *Module) markOutboxUnsupported(ctx context.Context, rec outbox.Record) {
	msg := fmt.Sprintf("unsupported outbox kind/template: %s/%s", rec.Kind, rec.Template)
	_ = m.outbox.MarkFailed(ctx, rec.ID, msg)
	m.log.Warn("unsupported outbox record", "outboxId", rec.ID.String(), "kind", rec.Kind, "template", rec.Template)
}

func computeOutboxRetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := outboxRetryBaseDelay << (attempt - 1)
	if delay > outboxRetryMaxDelay {
		return outboxRetryMaxDelay
	}
	return delay
}

var _ events.Handler = (*Module)(nil)
