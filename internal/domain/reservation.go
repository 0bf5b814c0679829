package domain

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
)

func ParseReservationStatus(s string) (ReservationStatus, bool) {
	switch ReservationStatus(s) {
	case ReservationPending, ReservationConfirmed, ReservationCancelled:
		return ReservationStatus(s), true
	default:
		return "", false
	}
}

// Reservation is server-authoritative. The client never edits Status; it only
// drops entries after the server confirms a cancellation.
type Reservation struct {
	ID       ID                `json:"id"`
	RoomID   ID                `json:"roomId"`
	Room     *Room             `json:"room,omitempty"`
	CheckIn  string            `json:"checkIn"`
	CheckOut string            `json:"checkOut"`
	Status   ReservationStatus `json:"status"`
	Total    float64           `json:"total"`
}

// DisplayStatus maps anything that is not pending or confirmed to cancelled.
func (r *Reservation) DisplayStatus() ReservationStatus {
	switch r.Status {
	case ReservationPending, ReservationConfirmed:
		return r.Status
	default:
		return ReservationCancelled
	}
}

// DisplayTotal falls back to the room snapshot's nightly price when the
// server sent no total.
func (r *Reservation) DisplayTotal() float64 {
	if r.Total == 0 && r.Room != nil {
		return r.Room.Price
	}
	return r.Total
}

func (r *Reservation) RoomName() string {
	if r.Room != nil && r.Room.Name != "" {
		return r.Room.Name
	}
	return "Room"
}

type ReservationDraft struct {
	RoomID   ID     `json:"roomId" validate:"required"`
	CheckIn  string `json:"checkIn" validate:"required"`
	CheckOut string `json:"checkOut" validate:"required"`
}

// ReservationPatch is the admin update body. Nil fields are left unchanged.
type ReservationPatch struct {
	CheckIn  *string            `json:"checkIn,omitempty"`
	CheckOut *string            `json:"checkOut,omitempty"`
	Status   *ReservationStatus `json:"status,omitempty"`
}

// ReservationFilter narrows the admin reservation listing.
type ReservationFilter struct {
	HotelID string `url:"hotel_id,omitempty"`
	UserID  string `url:"user_id,omitempty"`
	Status  string `url:"status,omitempty"`
}
