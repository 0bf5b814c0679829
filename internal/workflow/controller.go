package workflow

import (
	"context"
	"errors"

	"github.com/diagnosis/roomstay/internal/client"
	"github.com/diagnosis/roomstay/internal/domain"
	"github.com/diagnosis/roomstay/pkg/events"
	"github.com/diagnosis/roomstay/pkg/logger"
)

type Screen string

const (
	ScreenLogin        Screen = "login"
	ScreenRegister     Screen = "register"
	ScreenHome         Screen = "home"
	ScreenConfirmation Screen = "confirmation"
)

var (
	ErrLoginRequired = errors.New("login required")
	ErrNotReady      = errors.New("flow is not ready for this action")
	ErrDeclined      = errors.New("action declined by user")
	ErrSuperseded    = errors.New("result superseded by a newer request")
	ErrUnknownItem   = errors.New("no such item in the current list")
	ErrInFlight      = errors.New("action already in progress")
)

// Navigator moves the hosting shell to another screen. Flows never render.
type Navigator interface {
	Navigate(to Screen)
}

type NavigatorFunc func(to Screen)

func (f NavigatorFunc) Navigate(to Screen) { f(to) }

// Prompt is the blocking dialog surface: Confirm asks a yes/no question,
// Notify shows a message and returns once the user has seen it.
type Prompt interface {
	Confirm(ctx context.Context, message string) bool
	Notify(ctx context.Context, message string)
}

type SessionState interface {
	Authenticated() bool
	User() *domain.UserProfile
	Set(ctx context.Context, token string, user domain.UserProfile) error
	Clear(ctx context.Context) error
}

type AuthAPI interface {
	Login(ctx context.Context, req domain.LoginRequest) (*client.LoginResult, error)
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.UserProfile, error)
}

type RoomSearcher interface {
	Search(ctx context.Context, q domain.SearchQuery) (client.SearchResult, error)
}

type RoomGetter interface {
	Get(ctx context.Context, id domain.ID) (*domain.Room, error)
}

type ReservationAPI interface {
	Create(ctx context.Context, draft domain.ReservationDraft) (*domain.Reservation, error)
	Mine(ctx context.Context) ([]domain.Reservation, error)
	Delete(ctx context.Context, id domain.ID) error
}

type Options struct {
	// EnforceDateOrder additionally requires checkIn < checkOut before a
	// reservation can be confirmed. Off by default: only presence is checked.
	EnforceDateOrder bool
	// HydrateRooms fetches room snapshots for reservations that arrive without one.
	HydrateRooms bool
}

type Deps struct {
	Auth         AuthAPI
	Search       RoomSearcher
	Rooms        RoomGetter
	Reservations ReservationAPI
	Session      SessionState
	Prompt       Prompt
	Navigator    Navigator
	Events       events.Publisher
	Options      Options
}

// DepsFromClient fills the service dependencies from a request client.
func DepsFromClient(c *client.Client) Deps {
	return Deps{
		Auth:         c.Auth,
		Search:       c.Search,
		Rooms:        c.Hotels,
		Reservations: c.Reservations,
	}
}

// Controller owns the user-facing flows. Each flow keeps its own state and
// lock, so a failure in one never disturbs another.
type Controller struct {
	Auth         *AuthFlow
	Search       *SearchFlow
	Detail       *DetailFlow
	Reservations *ReservationsFlow
}

func NewController(d Deps) *Controller {
	if d.Events == nil {
		d.Events = events.Noop{}
	}
	if d.Navigator == nil {
		d.Navigator = NavigatorFunc(func(Screen) {})
	}

	return &Controller{
		Auth:         newAuthFlow(d),
		Search:       newSearchFlow(d),
		Detail:       newDetailFlow(d),
		Reservations: newReservationsFlow(d),
	}
}

func publish(ctx context.Context, pub events.Publisher, subject string, payload any) {
	if err := pub.Publish(ctx, subject, payload); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "subject", subject, "error", err)
	}
}

func userID(s SessionState) string {
	if u := s.User(); u != nil {
		return u.ID.String()
	}
	return ""
}

// userMessage turns an error into something fit for a dialog.
func userMessage(prefix string, err error) string {
	var lerr *client.LogicalError
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &lerr):
		return prefix + ": " + lerr.Message
	case errors.As(err, &verr):
		return prefix + ": " + verr.Error()
	case errors.Is(err, client.ErrAuthExpired):
		return prefix + ": your session has expired, please log in again"
	default:
		return prefix
	}
}
