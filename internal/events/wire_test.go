package events

import "testing"

func TestEncodeWire_WithoutSecondary(t *testing.T) {
	got := EncodeWire(AppointmentBookedName, 42, "")
	if got != "AppointmentBookedEvent:42" {
		t.Fatalf("expected AppointmentBookedEvent:42, got %s", got)
	}
}

func TestEncodeWire_WithSecondary(t *testing.T) {
	got := EncodeWire(AppointmentCanceledName, 7, "AB12345")
	if got != "AppointmentCanceledEvent:7#AB12345" {
		t.Fatalf("expected AppointmentCanceledEvent:7#AB12345, got %s", got)
	}
}

func TestDecodeWire_RoundTrip(t *testing.T) {
	decoded, err := DecodeWire(EncodeWire(AppointmentCanceledName, 7, "AB12345"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.EventName != AppointmentCanceledName {
		t.Fatalf("expected event name %s, got %s", AppointmentCanceledName, decoded.EventName)
	}
	if decoded.ID != 7 {
		t.Fatalf("expected id 7, got %d", decoded.ID)
	}
	if decoded.Secondary != "AB12345" {
		t.Fatalf("expected secondary AB12345, got %s", decoded.Secondary)
	}
}

func TestDecodeWire_NoSecondary(t *testing.T) {
	decoded, err := DecodeWire("UserRegisteredEvent:5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.EventName != "UserRegisteredEvent" || decoded.ID != 5 || decoded.Secondary != "" {
		t.Fatalf("unexpected decode result: %+v", decoded)
	}
}

func TestDecodeWire_Malformed(t *testing.T) {
	cases := []string{"", "AppointmentBookedEvent", "AppointmentBookedEvent:", ":42", "AppointmentBookedEvent:abc"}
	for _, raw := range cases {
		if _, err := DecodeWire(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
