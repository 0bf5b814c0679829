package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/diagnosis/roomstay/internal/domain"
	"github.com/diagnosis/roomstay/pkg/events"
	"github.com/diagnosis/roomstay/pkg/logger"
)

type DetailState string

const (
	DetailIdle         DetailState = "idle"
	DetailLoadingRoom  DetailState = "loading_room"
	DetailRoomReady    DetailState = "room_ready"
	DetailRoomNotFound DetailState = "room_not_found"
	DetailSubmitting   DetailState = "submitting"
	DetailConfirmed    DetailState = "confirmed"
	DetailSubmitFailed DetailState = "submit_failed"
)

type DetailView struct {
	State       DetailState
	RoomID      domain.ID
	Room        *domain.Room
	CheckIn     string
	CheckOut    string
	Reservation *domain.Reservation
	Err         error
}

// DetailFlow shows one room and turns a pair of dates into a reservation.
type DetailFlow struct {
	rooms        RoomGetter
	reservations ReservationAPI
	session      SessionState
	prompt       Prompt
	nav          Navigator
	pub          events.Publisher
	opts         Options

	mu          sync.Mutex
	state       DetailState
	roomID      domain.ID
	room        *domain.Room
	checkIn     string
	checkOut    string
	reservation *domain.Reservation
	err         error
	seq         uint64
}

func newDetailFlow(d Deps) *DetailFlow {
	return &DetailFlow{
		rooms:        d.Rooms,
		reservations: d.Reservations,
		session:      d.Session,
		prompt:       d.Prompt,
		nav:          d.Navigator,
		pub:          d.Events,
		opts:         d.Options,
		state:        DetailIdle,
	}
}

// Load fetches the room and resets any dates entered for a previous one.
func (f *DetailFlow) Load(ctx context.Context, id domain.ID) error {
	ctx = logger.WithFlow(ctx, "detail")

	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.state = DetailLoadingRoom
	f.roomID = id
	f.room = nil
	f.checkIn, f.checkOut = "", ""
	f.reservation = nil
	f.err = nil
	f.mu.Unlock()

	room, err := f.rooms.Get(ctx, id)

	f.mu.Lock()
	defer f.mu.Unlock()

	if seq != f.seq {
		return ErrSuperseded
	}
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load room", "room_id", id.String(), "error", err)
		f.state = DetailRoomNotFound
		f.err = err
		return err
	}

	f.room = room
	f.state = DetailRoomReady
	return nil
}

func (f *DetailFlow) SetDates(checkIn, checkOut string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.editableLocked() {
		return ErrNotReady
	}
	f.checkIn = checkIn
	f.checkOut = checkOut
	return nil
}

// CanConfirm reports whether Confirm would send a request.
func (f *DetailFlow) CanConfirm() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.editableLocked() && f.datesErrLocked() == nil
}

func (f *DetailFlow) editableLocked() bool {
	return f.state == DetailRoomReady || f.state == DetailSubmitFailed
}

func (f *DetailFlow) datesErrLocked() error {
	draft := domain.ReservationDraft{RoomID: f.roomID, CheckIn: f.checkIn, CheckOut: f.checkOut}
	if err := domain.Validate(draft); err != nil {
		return err
	}
	if f.opts.EnforceDateOrder {
		return domain.ValidateDateOrder(f.checkIn, f.checkOut)
	}
	return nil
}

// Confirm creates the reservation. Without a session it only navigates to
// login. A failed attempt keeps the dates so the user can retry. If another
// room is loaded before the server answers, the answer leaves the view alone
// and Confirm returns ErrSuperseded.
func (f *DetailFlow) Confirm(ctx context.Context) error {
	ctx = logger.WithFlow(ctx, "detail")

	f.mu.Lock()
	if !f.editableLocked() {
		f.mu.Unlock()
		return ErrNotReady
	}
	if err := f.datesErrLocked(); err != nil {
		f.mu.Unlock()
		return err
	}
	if !f.session.Authenticated() {
		f.mu.Unlock()
		f.nav.Navigate(ScreenLogin)
		return ErrLoginRequired
	}

	draft := domain.ReservationDraft{RoomID: f.roomID, CheckIn: f.checkIn, CheckOut: f.checkOut}
	seq := f.seq
	f.state = DetailSubmitting
	f.err = nil
	f.mu.Unlock()

	res, err := f.reservations.Create(ctx, draft)

	f.mu.Lock()
	if seq != f.seq {
		// Another room was loaded while this request was in flight.
		f.mu.Unlock()
		if err != nil {
			logger.WarnContext(ctx, "Reservation for a room no longer shown failed", "room_id", draft.RoomID.String(), "error", err)
		} else {
			logger.InfoContext(ctx, "Reservation created for a room no longer shown", "reservation_id", res.ID.String(), "room_id", draft.RoomID.String())
			f.publishCreated(ctx, res, draft)
		}
		return ErrSuperseded
	}

	if err != nil {
		f.state = DetailSubmitFailed
		f.err = err
		f.mu.Unlock()

		logger.ErrorContext(ctx, "Failed to create reservation", "room_id", draft.RoomID.String(), "error", err)
		if f.prompt != nil {
			f.prompt.Notify(ctx, userMessage("Could not create the reservation", err))
		}
		return err
	}

	f.state = DetailConfirmed
	f.reservation = res
	f.mu.Unlock()

	logger.InfoContext(ctx, "Reservation created", "reservation_id", res.ID.String(), "room_id", draft.RoomID.String())

	f.publishCreated(ctx, res, draft)
	f.nav.Navigate(ScreenConfirmation)
	return nil
}

func (f *DetailFlow) publishCreated(ctx context.Context, res *domain.Reservation, draft domain.ReservationDraft) {
	publish(ctx, f.pub, events.ReservationCreated, events.ReservationCreatedEvent{
		ReservationID: res.ID.String(),
		RoomID:        draft.RoomID.String(),
		CheckIn:       draft.CheckIn,
		CheckOut:      draft.CheckOut,
		UserID:        userID(f.session),
		CreatedAt:     time.Now().UTC(),
	})
}

func (f *DetailFlow) Snapshot() DetailView {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := DetailView{
		State:    f.state,
		RoomID:   f.roomID,
		CheckIn:  f.checkIn,
		CheckOut: f.checkOut,
		Err:      f.err,
	}
	if f.room != nil {
		room := *f.room
		v.Room = &room
	}
	if f.reservation != nil {
		res := *f.reservation
		v.Reservation = &res
	}
	return v
}
