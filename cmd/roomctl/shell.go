package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/diagnosis/roomstay/internal/domain"
	"github.com/diagnosis/roomstay/internal/session"
	"github.com/diagnosis/roomstay/internal/workflow"
)

const help = `commands:
  login <email> <password>          register <email> <password> <name>
  logout                            whoami
  search [text]                     page <n>
  room <id>                         dates <check-in> <check-out>
  reserve                           my
  cancel <reservation-id>           quit`

// shell is a line-oriented host for the workflow controller. It renders flow
// snapshots as text and answers the controller's prompts from the same input.
type shell struct {
	in  *bufio.Scanner
	out io.Writer

	ctrl  *workflow.Controller
	store *session.Store

	mu     sync.Mutex
	screen workflow.Screen
}

func newShell(in io.Reader, out io.Writer) *shell {
	return &shell{
		in:     bufio.NewScanner(in),
		out:    out,
		screen: workflow.ScreenHome,
	}
}

func (s *shell) Navigate(to workflow.Screen) {
	s.mu.Lock()
	s.screen = to
	s.mu.Unlock()

	switch to {
	case workflow.ScreenLogin:
		s.printf("-> please log in (login <email> <password>)\n")
	case workflow.ScreenRegister:
		s.printf("-> register <email> <password> <name>\n")
	case workflow.ScreenConfirmation:
		s.printf("-> reservation confirmed\n")
	case workflow.ScreenHome:
		s.printf("-> home\n")
	}
}

func (s *shell) Screen() workflow.Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screen
}

func (s *shell) Confirm(_ context.Context, message string) bool {
	s.printf("%s [y/N] ", message)
	if !s.in.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(s.in.Text()))
	return answer == "y" || answer == "yes"
}

func (s *shell) Notify(_ context.Context, message string) {
	s.printf("! %s\n", message)
}

func (s *shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

// Run reads commands until EOF, quit, or ctx is done.
func (s *shell) Run(ctx context.Context) error {
	s.printf("roomctl ready, type help for commands\n")
	if err := s.ctrl.Search.Mount(ctx); err == nil {
		s.renderSearch()
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		s.printf("> ")
		if !s.in.Scan() {
			return s.in.Err()
		}

		fields := strings.Fields(s.in.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		s.dispatch(ctx, fields[0], fields[1:])
	}
}

func (s *shell) dispatch(ctx context.Context, cmd string, args []string) {
	switch cmd {
	case "help":
		s.printf("%s\n", help)

	case "login":
		if len(args) != 2 {
			s.printf("usage: login <email> <password>\n")
			return
		}
		if err := s.ctrl.Auth.Login(ctx, domain.LoginRequest{Email: args[0], Password: args[1]}); err != nil {
			s.printf("login failed: %s\n", s.ctrl.Auth.FormError())
		}

	case "register":
		if len(args) < 3 {
			s.printf("usage: register <email> <password> <name>\n")
			return
		}
		req := domain.RegisterRequest{Email: args[0], Password: args[1], Name: strings.Join(args[2:], " ")}
		if err := s.ctrl.Auth.Register(ctx, req); err != nil {
			s.printf("registration failed: %s\n", s.ctrl.Auth.FormError())
		}

	case "logout":
		if err := s.ctrl.Auth.Logout(ctx); err != nil {
			s.printf("logout failed: %v\n", err)
		}

	case "whoami":
		s.whoami()

	case "search":
		_ = s.ctrl.Search.Submit(ctx, strings.Join(args, " "))
		s.renderSearch()

	case "page":
		n, err := strconv.Atoi(firstArg(args))
		if err != nil {
			s.printf("usage: page <n>\n")
			return
		}
		_ = s.ctrl.Search.SetPage(ctx, n)
		s.renderSearch()

	case "room":
		if len(args) != 1 {
			s.printf("usage: room <id>\n")
			return
		}
		_ = s.ctrl.Detail.Load(ctx, domain.ID(args[0]))
		s.renderDetail()

	case "dates":
		if len(args) != 2 {
			s.printf("usage: dates <check-in> <check-out>\n")
			return
		}
		if err := s.ctrl.Detail.SetDates(args[0], args[1]); err != nil {
			s.printf("open a room first\n")
			return
		}
		if !s.ctrl.Detail.CanConfirm() {
			s.printf("dates incomplete\n")
		}

	case "reserve":
		err := s.ctrl.Detail.Confirm(ctx)
		var verr *domain.ValidationError
		switch {
		case err == nil:
			s.renderConfirmation()
		case errors.As(err, &verr):
			s.printf("%s\n", verr.Error())
		case errors.Is(err, workflow.ErrNotReady):
			s.printf("open a room and pick dates first\n")
		}

	case "my":
		if err := s.ctrl.Reservations.Mount(ctx); err != nil && !errors.Is(err, workflow.ErrLoginRequired) {
			s.printf("could not load reservations\n")
			return
		}
		s.renderReservations()

	case "cancel":
		if len(args) != 1 {
			s.printf("usage: cancel <reservation-id>\n")
			return
		}
		err := s.ctrl.Reservations.Cancel(ctx, domain.ID(args[0]))
		switch {
		case err == nil:
			s.printf("reservation %s cancelled\n", args[0])
			s.renderReservations()
		case errors.Is(err, workflow.ErrUnknownItem), errors.Is(err, workflow.ErrNotReady):
			s.printf("no reservation %s in the list, run my first\n", args[0])
		}

	default:
		s.printf("unknown command %q, type help\n", cmd)
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func (s *shell) whoami() {
	u := s.store.User()
	if u == nil {
		s.printf("not logged in\n")
		return
	}
	s.printf("%s <%s> id=%s\n", u.Name, u.Email, u.ID)
	if exp, ok := s.store.Expiry(); ok {
		s.printf("session expires %s\n", exp.Local().Format("2006-01-02 15:04"))
	}
}

func (s *shell) renderSearch() {
	v := s.ctrl.Search.Snapshot()
	switch v.State {
	case workflow.SearchError:
		s.printf("search failed\n")
	case workflow.SearchEmpty:
		s.printf("no rooms found (page %d)\n", v.Query.Page)
	case workflow.SearchLoaded:
		s.printf("page %d:\n", v.Query.Page)
		for _, r := range v.Rooms {
			s.printf("  [%s] %s  %d guests  $%.2f\n", r.ID, r.Name, r.Capacity, r.Price)
		}
	}
}

func (s *shell) renderDetail() {
	v := s.ctrl.Detail.Snapshot()
	if v.State == workflow.DetailRoomNotFound || v.Room == nil {
		s.printf("room %s not found\n", v.RoomID)
		return
	}
	r := v.Room
	s.printf("%s\n  %s\n  capacity %d, $%.2f per night\n", r.Name, r.Description, r.Capacity, r.Price)
	if len(r.Amenities) > 0 {
		s.printf("  amenities: %s\n", strings.Join(r.Amenities, ", "))
	}
}

func (s *shell) renderConfirmation() {
	v := s.ctrl.Detail.Snapshot()
	if v.Reservation == nil {
		return
	}
	res := v.Reservation
	s.printf("  #%s %s %s -> %s  %s  $%.2f\n",
		res.ID, res.RoomName(), res.CheckIn, res.CheckOut, res.DisplayStatus(), res.DisplayTotal())
}

func (s *shell) renderReservations() {
	v := s.ctrl.Reservations.Snapshot()
	switch v.State {
	case workflow.ListError:
		s.printf("could not load reservations\n")
		return
	case workflow.ListIdle, workflow.ListLoading:
		return
	}
	if len(v.Items) == 0 {
		s.printf("no reservations\n")
		return
	}
	for _, r := range v.Items {
		s.printf("  #%s %s %s -> %s  %s  $%.2f\n",
			r.ID, r.RoomName(), r.CheckIn, r.CheckOut, r.DisplayStatus(), r.DisplayTotal())
	}
}
