package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/diagnosis/roomstay/internal/domain"
	"github.com/diagnosis/roomstay/pkg/events"
	"github.com/diagnosis/roomstay/pkg/logger"
	"golang.org/x/sync/errgroup"
)

type ListState string

const (
	ListIdle    ListState = "idle"
	ListLoading ListState = "loading_list"
	ListReady   ListState = "list_ready"
	ListError   ListState = "error"
)

const hydrateConcurrency = 4

type ReservationsView struct {
	State      ListState
	Items      []domain.Reservation
	Cancelling []domain.ID
	Err        error
}

// ReservationsFlow lists the caller's reservations and cancels them one at a
// time. The list only changes when the server confirms a cancellation.
type ReservationsFlow struct {
	api     ReservationAPI
	rooms   RoomGetter
	session SessionState
	prompt  Prompt
	nav     Navigator
	pub     events.Publisher
	hydrate bool

	mu         sync.Mutex
	state      ListState
	items      []domain.Reservation
	cancelling map[domain.ID]bool
	err        error
	seq        uint64
}

func newReservationsFlow(d Deps) *ReservationsFlow {
	return &ReservationsFlow{
		api:        d.Reservations,
		rooms:      d.Rooms,
		session:    d.Session,
		prompt:     d.Prompt,
		nav:        d.Navigator,
		pub:        d.Events,
		hydrate:    d.Options.HydrateRooms,
		state:      ListIdle,
		cancelling: make(map[domain.ID]bool),
	}
}

func (f *ReservationsFlow) Mount(ctx context.Context) error {
	ctx = logger.WithFlow(ctx, "reservations")

	if !f.session.Authenticated() {
		f.nav.Navigate(ScreenLogin)
		return ErrLoginRequired
	}

	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.state = ListLoading
	f.mu.Unlock()

	items, err := f.api.Mine(ctx)
	if err == nil && f.hydrate && f.rooms != nil {
		f.hydrateRooms(ctx, items)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if seq != f.seq {
		return ErrSuperseded
	}
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load reservations", "error", err)
		f.state = ListError
		f.items = nil
		f.err = err
		return err
	}

	f.items = items
	f.err = nil
	f.state = ListReady
	return nil
}

// hydrateRooms fills in missing room snapshots. Each room is fetched once no
// matter how many reservations point at it; failures leave the entry as is.
func (f *ReservationsFlow) hydrateRooms(ctx context.Context, items []domain.Reservation) {
	wanted := make(map[domain.ID][]int)
	for i := range items {
		if items[i].Room == nil && items[i].RoomID != "" {
			wanted[items[i].RoomID] = append(wanted[items[i].RoomID], i)
		}
	}
	if len(wanted) == 0 {
		return
	}

	var (
		mu    sync.Mutex
		found = make(map[domain.ID]*domain.Room, len(wanted))
		g     errgroup.Group
	)
	g.SetLimit(hydrateConcurrency)

	for id := range wanted {
		g.Go(func() error {
			room, err := f.rooms.Get(ctx, id)
			if err != nil {
				logger.WarnContext(ctx, "Failed to hydrate reservation room", "room_id", id.String(), "error", err)
				return nil
			}
			mu.Lock()
			found[id] = room
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for id, idxs := range wanted {
		room, ok := found[id]
		if !ok {
			continue
		}
		for _, i := range idxs {
			snapshot := *room
			items[i].Room = &snapshot
		}
	}
}

// Cancel asks for confirmation, then deletes the reservation on the server.
// The entry is removed only after the server accepts; on failure the list is
// left exactly as it was and the user is told.
func (f *ReservationsFlow) Cancel(ctx context.Context, id domain.ID) error {
	ctx = logger.WithFlow(ctx, "reservations")

	f.mu.Lock()
	if f.state != ListReady {
		f.mu.Unlock()
		return ErrNotReady
	}
	if !f.containsLocked(id) {
		f.mu.Unlock()
		return ErrUnknownItem
	}
	if f.cancelling[id] {
		f.mu.Unlock()
		return ErrInFlight
	}
	f.mu.Unlock()

	if f.prompt == nil || !f.prompt.Confirm(ctx, "Cancel this reservation?") {
		return ErrDeclined
	}

	f.mu.Lock()
	if f.cancelling[id] {
		f.mu.Unlock()
		return ErrInFlight
	}
	f.cancelling[id] = true
	f.mu.Unlock()

	err := f.api.Delete(ctx, id)

	f.mu.Lock()
	delete(f.cancelling, id)
	if err != nil {
		f.mu.Unlock()
		logger.ErrorContext(ctx, "Failed to cancel reservation", "reservation_id", id.String(), "error", err)
		f.prompt.Notify(ctx, userMessage("Could not cancel the reservation", err))
		return err
	}

	kept := f.items[:0:0]
	for _, r := range f.items {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	f.items = kept
	f.mu.Unlock()

	logger.InfoContext(ctx, "Reservation cancelled", "reservation_id", id.String())

	publish(ctx, f.pub, events.ReservationCancelled, events.ReservationCancelledEvent{
		ReservationID: id.String(),
		UserID:        userID(f.session),
		CancelledAt:   time.Now().UTC(),
	})
	return nil
}

func (f *ReservationsFlow) containsLocked(id domain.ID) bool {
	for _, r := range f.items {
		if r.ID == id {
			return true
		}
	}
	return false
}

func (f *ReservationsFlow) IsCancelling(id domain.ID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelling[id]
}

func (f *ReservationsFlow) Snapshot() ReservationsView {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := ReservationsView{
		State: f.state,
		Items: append([]domain.Reservation(nil), f.items...),
		Err:   f.err,
	}
	for id := range f.cancelling {
		v.Cancelling = append(v.Cancelling, id)
	}
	return v
}
