package email

const (
	subjectWelcome                = "Welcome to the clinic"
	subjectAppointmentBookedFmt   = "New appointment request %s"
	subjectAppointmentApprovedFmt = "Your appointment %s is confirmed"
	subjectAppointmentDeclinedFmt = "Your appointment %s was declined"
	subjectAppointmentCanceledFmt = "Appointment %s was cancelled"
	subjectAppointmentUpdatedFmt  = "Appointment %s was updated"
	subjectAppointmentReminderFmt = "Reminder: appointment %s is coming up"
	subjectReviewPostedFmt        = "You received a new %d-star review"
)
