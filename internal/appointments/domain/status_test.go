package domain

import (
	"testing"
	"time"
)

func TestDerive_WaitingExpiresToNotApproved(t *testing.T) {
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	now := start.Add(30 * time.Minute)

	got := Derive(StatusWaitingForApproval, start, now)
	if got != StatusNotApproved {
		t.Fatalf("expected NOT_APPROVED, got %s", got)
	}
}

func TestDerive_WaitingStaysWhileInFuture(t *testing.T) {
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	now := start.Add(-24 * time.Hour)

	got := Derive(StatusWaitingForApproval, start, now)
	if got != StatusWaitingForApproval {
		t.Fatalf("expected WAITING_FOR_APPROVAL, got %s", got)
	}
}

func TestDerive_ApprovedBecomesUpComing(t *testing.T) {
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	now := start.Add(-2 * time.Hour)

	got := Derive(StatusApproved, start, now)
	if got != StatusUpComing {
		t.Fatalf("expected UP_COMING, got %s", got)
	}

	// Refreshing again must not change anything.
	again := Derive(got, start, now)
	if again != StatusUpComing {
		t.Fatalf("expected UP_COMING to be stable, got %s", again)
	}
}

func TestDerive_UpComingEntersWindow(t *testing.T) {
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	now := start.Add(15 * time.Minute)

	got := Derive(StatusUpComing, start, now)
	if got != StatusOnGoing {
		t.Fatalf("expected ON_GOING, got %s", got)
	}
}

func TestDerive_OnGoingCompletesAfterWindow(t *testing.T) {
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	now := start.Add(AppointmentDuration + time.Minute)

	got := Derive(StatusOnGoing, start, now)
	if got != StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", got)
	}
}

func TestDerive_ApprovedPastWindowSkipsToCompleted(t *testing.T) {
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	now := start.Add(3 * time.Hour)

	got := Derive(StatusApproved, start, now)
	if got != StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", got)
	}
}

func TestDerive_TerminalStatusesUnchanged(t *testing.T) {
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	now := start.Add(48 * time.Hour)

	for _, status := range []Status{StatusCompleted, StatusCancelled, StatusNotApproved} {
		if got := Derive(status, start, now); got != status {
			t.Fatalf("expected %s to stay, got %s", status, got)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	cases := []struct {
		status   Status
		terminal bool
	}{
		{StatusWaitingForApproval, false},
		{StatusApproved, false},
		{StatusUpComing, false},
		{StatusOnGoing, false},
		{StatusCompleted, true},
		{StatusCancelled, true},
		{StatusNotApproved, true},
	}

	for _, tc := range cases {
		if got := tc.status.IsTerminal(); got != tc.terminal {
			t.Fatalf("IsTerminal(%s) = %v, expected %v", tc.status, got, tc.terminal)
		}
	}
}

func TestTransitionGuards_OnlyWaitingIsOpen(t *testing.T) {
	for _, status := range AllStatuses {
		open := status == StatusWaitingForApproval
		if status.AllowsPatientMutation() != open {
			t.Fatalf("AllowsPatientMutation(%s) = %v", status, !open)
		}
		if status.CanApprove() != open {
			t.Fatalf("CanApprove(%s) = %v", status, !open)
		}
		if status.CanDecline() != open {
			t.Fatalf("CanDecline(%s) = %v", status, !open)
		}
		if status.CanCancel() != open {
			t.Fatalf("CanCancel(%s) = %v", status, !open)
		}
	}
}
