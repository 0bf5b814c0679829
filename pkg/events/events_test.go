package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestNoop_DiscardsEvents(t *testing.T) {
	var p Publisher = Noop{}
	if err := p.Publish(context.Background(), ReservationCreated, ReservationCreatedEvent{RoomID: "5"}); err != nil {
		t.Fatalf("Noop publish returned error: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Noop close returned error: %v", err)
	}
}

func TestEventPayloads_WireNames(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	b, err := json.Marshal(ReservationCancelledEvent{ReservationID: "10", CancelledAt: at})
	if err != nil {
		t.Fatal(err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got["reservation_id"] != "10" {
		t.Fatalf("expected reservation_id 10, got %v", got["reservation_id"])
	}
	if _, ok := got["user_id"]; ok {
		t.Fatal("expected empty user_id to be omitted")
	}
}
