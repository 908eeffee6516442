package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
}

type welcomeEmailData struct {
	baseEmailData
	FullName string
}

type appointmentBookedEmailData struct {
	baseEmailData
	VeterinarianName string
	PatientName      string
	AppointmentNo    string
	ScheduledFor     string
}

type appointmentDecisionEmailData struct {
	baseEmailData
	PatientName   string
	AppointmentNo string
	ScheduledFor  string
}

type appointmentCanceledEmailData struct {
	baseEmailData
	VeterinarianName string
	AppointmentNo    string
}

type appointmentUpdatedEmailData struct {
	baseEmailData
	VeterinarianName string
	AppointmentNo    string
	ScheduledFor     string
}

type reviewPostedEmailData struct {
	baseEmailData
	VeterinarianName string
	Stars            int
}

// RenderWelcome renders the registration welcome email.
func RenderWelcome(fullName string) (subject, html string, err error) {
	html, err = renderEmailTemplate("welcome.html", welcomeEmailData{
		baseEmailData: baseEmailData{
			Title:   "Welcome",
			Heading: "Welcome to the clinic",
		},
		FullName: fullName,
	})
	return subjectWelcome, html, err
}

// RenderAppointmentBooked renders the new-request email sent to the
// veterinarian when a patient books.
func RenderAppointmentBooked(vetName, patientName, appointmentNo, scheduledFor string) (subject, html string, err error) {
	subject = fmt.Sprintf(subjectAppointmentBookedFmt, appointmentNo)
	html, err = renderEmailTemplate("appointment_booked.html", appointmentBookedEmailData{
		baseEmailData: baseEmailData{
			Title:   "New appointment request",
			Heading: "New appointment request",
		},
		VeterinarianName: vetName,
		PatientName:      patientName,
		AppointmentNo:    appointmentNo,
		ScheduledFor:     scheduledFor,
	})
	return subject, html, err
}

// RenderAppointmentApproved renders the confirmation email sent to the patient.
func RenderAppointmentApproved(patientName, appointmentNo, scheduledFor string) (subject, html string, err error) {
	subject = fmt.Sprintf(subjectAppointmentApprovedFmt, appointmentNo)
	html, err = renderEmailTemplate("appointment_approved.html", appointmentDecisionEmailData{
		baseEmailData: baseEmailData{
			Title:   "Appointment confirmed",
			Heading: "Appointment confirmed",
		},
		PatientName:   patientName,
		AppointmentNo: appointmentNo,
		ScheduledFor:  scheduledFor,
	})
	return subject, html, err
}

// RenderAppointmentDeclined renders the decline email sent to the patient.
func RenderAppointmentDeclined(patientName, appointmentNo string) (subject, html string, err error) {
	subject = fmt.Sprintf(subjectAppointmentDeclinedFmt, appointmentNo)
	html, err = renderEmailTemplate("appointment_declined.html", appointmentDecisionEmailData{
		baseEmailData: baseEmailData{
			Title:   "Appointment declined",
			Heading: "Appointment declined",
		},
		PatientName:   patientName,
		AppointmentNo: appointmentNo,
	})
	return subject, html, err
}

// RenderAppointmentReminder renders the upcoming-appointment reminder sent
// to the patient.
func RenderAppointmentReminder(patientName, appointmentNo, scheduledFor string) (subject, html string, err error) {
	subject = fmt.Sprintf(subjectAppointmentReminderFmt, appointmentNo)
	html, err = renderEmailTemplate("appointment_reminder.html", appointmentDecisionEmailData{
		baseEmailData: baseEmailData{
			Title:   "Appointment reminder",
			Heading: "Appointment reminder",
		},
		PatientName:   patientName,
		AppointmentNo: appointmentNo,
		ScheduledFor:  scheduledFor,
	})
	return subject, html, err
}

// RenderAppointmentCanceled renders the cancellation email sent to the
// veterinarian.
func RenderAppointmentCanceled(vetName, appointmentNo string) (subject, html string, err error) {
	subject = fmt.Sprintf(subjectAppointmentCanceledFmt, appointmentNo)
	html, err = renderEmailTemplate("appointment_canceled.html", appointmentCanceledEmailData{
		baseEmailData: baseEmailData{
			Title:   "Appointment cancelled",
			Heading: "Appointment cancelled",
		},
		VeterinarianName: vetName,
		AppointmentNo:    appointmentNo,
	})
	return subject, html, err
}

// RenderAppointmentUpdated renders the reschedule email sent to the
// veterinarian.
func RenderAppointmentUpdated(vetName, appointmentNo, scheduledFor string) (subject, html string, err error) {
	subject = fmt.Sprintf(subjectAppointmentUpdatedFmt, appointmentNo)
	html, err = renderEmailTemplate("appointment_updated.html", appointmentUpdatedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Appointment updated",
			Heading: "Appointment updated",
		},
		VeterinarianName: vetName,
		AppointmentNo:    appointmentNo,
		ScheduledFor:     scheduledFor,
	})
	return subject, html, err
}

// RenderReviewPosted renders the new-review email sent to the veterinarian.
func RenderReviewPosted(vetName string, stars int) (subject, html string, err error) {
	subject = fmt.Sprintf(subjectReviewPostedFmt, stars)
	html, err = renderEmailTemplate("review_posted.html", reviewPostedEmailData{
		baseEmailData: baseEmailData{
			Title:   "New review",
			Heading: "You received a new review",
		},
		VeterinarianName: vetName,
		Stars:            stars,
	})
	return subject, html, err
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
