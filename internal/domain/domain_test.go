package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestID_UnmarshalNumberOrString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want ID
	}{
		{"number", `{"id":10}`, "10"},
		{"string", `{"id":"abc123"}`, "abc123"},
		{"null", `{"id":null}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Room
			if err := json.Unmarshal([]byte(tt.in), &r); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if r.ID != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, r.ID)
			}
		})
	}

	var r Room
	if err := json.Unmarshal([]byte(`{"id":true}`), &r); err == nil {
		t.Fatal("expected boolean id to be rejected")
	}
}

func TestReservation_DisplayFallbacks(t *testing.T) {
	r := Reservation{Status: "weird", Room: &Room{Name: "Suite", Price: 120}}
	if r.DisplayStatus() != ReservationCancelled {
		t.Fatalf("expected unknown status to display as cancelled, got %s", r.DisplayStatus())
	}
	if r.DisplayTotal() != 120 {
		t.Fatalf("expected room price fallback, got %v", r.DisplayTotal())
	}
	if r.RoomName() != "Suite" {
		t.Fatalf("expected Suite, got %s", r.RoomName())
	}

	bare := Reservation{Status: ReservationPending, Total: 300}
	if bare.DisplayStatus() != ReservationPending || bare.DisplayTotal() != 300 || bare.RoomName() != "Room" {
		t.Fatalf("unexpected display values: %+v", bare)
	}
}

func TestValidate_Forms(t *testing.T) {
	tests := []struct {
		name      string
		in        any
		wantField string
	}{
		{"login ok", LoginRequest{Email: "a@a.com", Password: "secret"}, ""},
		{"login missing email", LoginRequest{Password: "secret"}, "email"},
		{"login bad email", LoginRequest{Email: "nope", Password: "secret"}, "email"},
		{"register missing name", RegisterRequest{Email: "a@a.com", Password: "x"}, "name"},
		{"draft ok", ReservationDraft{RoomID: "5", CheckIn: "2024-05-03", CheckOut: "2024-05-01"}, ""},
		{"draft missing checkout", ReservationDraft{RoomID: "5", CheckIn: "2024-05-01"}, "checkOut"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.in)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.wantField {
				t.Fatalf("expected field %s, got %s", tt.wantField, ve.Field)
			}
		})
	}
}

func TestValidateDateOrder(t *testing.T) {
	if err := ValidateDateOrder("2024-05-01", "2024-05-03"); err != nil {
		t.Fatalf("expected ordered dates to pass, got %v", err)
	}
	if err := ValidateDateOrder("2024-05-03", "2024-05-01"); err == nil {
		t.Fatal("expected reversed dates to fail")
	}
	if err := ValidateDateOrder("2024-05-01", "2024-05-01"); err == nil {
		t.Fatal("expected same-day stay to fail")
	}
	if err := ValidateDateOrder("tomorrow", "2024-05-01"); err == nil {
		t.Fatal("expected unparseable date to fail")
	}
}

func TestNewSearchQuery_ClampsPage(t *testing.T) {
	if q := NewSearchQuery("spa", 0); q.Page != 1 {
		t.Fatalf("expected page 1, got %d", q.Page)
	}
	if q := NewSearchQuery("spa", 3); q.Page != 3 || q.Text != "spa" {
		t.Fatalf("unexpected query %+v", q)
	}
}
