// Package testbackend runs in-memory stand-ins for the users, search, hotels
// and reservations services, each on its own httptest server.
package testbackend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/diagnosis/roomstay/internal/domain"
	"github.com/diagnosis/roomstay/internal/registry"
	"github.com/diagnosis/roomstay/internal/utils"
	"github.com/diagnosis/roomstay/pkg/auth"
	mw "github.com/diagnosis/roomstay/pkg/middleware"
	"github.com/go-chi/chi/v5"
)

// Shape selects how /search wraps its result list.
type Shape int

const (
	ShapeArray Shape = iota
	ShapeResults
	ShapeRooms
)

const (
	PageSize = 10
	secret   = "test-backend-secret"
)

type Recorded struct {
	Service  registry.Service
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

type account struct {
	profile  domain.UserProfile
	password string
}

type ownedReservation struct {
	owner domain.ID
	res   domain.Reservation
}

type Backend struct {
	servers map[registry.Service]*httptest.Server

	mu           sync.Mutex
	requests     []Recorded
	accounts     map[string]*account
	tokens       map[string]domain.ID
	rooms        []domain.Room
	reservations []ownedReservation
	nextUserID   int
	nextResID    int

	// Knobs flipped by tests. Guarded by mu.
	searchShape  Shape
	rejectAll    bool
	failCreate   string
	failCancel   string
	beforeSearch func(q string, page int)
}

func New() *Backend {
	b := &Backend{
		servers:    make(map[registry.Service]*httptest.Server),
		accounts:   make(map[string]*account),
		tokens:     make(map[string]domain.ID),
		nextUserID: 1,
		nextResID:  1,
	}

	b.servers[registry.Users] = httptest.NewServer(b.usersRouter())
	b.servers[registry.Search] = httptest.NewServer(b.searchRouter())
	b.servers[registry.Hotels] = httptest.NewServer(b.hotelsRouter())
	b.servers[registry.Reservations] = httptest.NewServer(b.reservationsRouter())
	return b
}

func (b *Backend) Close() {
	for _, srv := range b.servers {
		srv.Close()
	}
}

func (b *Backend) URL(s registry.Service) string {
	return b.servers[s].URL
}

// Registry points every service at its fake server.
func (b *Backend) Registry() *registry.Registry {
	bases := make(map[registry.Service]string, len(b.servers))
	for s, srv := range b.servers {
		bases[s] = srv.URL
	}
	return registry.New(bases)
}

// ---------- Seeding & knobs ----------

func (b *Backend) AddUser(email, password, name string) domain.UserProfile {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(email, password, name)
}

func (b *Backend) addUserLocked(email, password, name string) domain.UserProfile {
	p := domain.UserProfile{ID: domain.ID(strconv.Itoa(b.nextUserID)), Email: email, Name: name}
	b.nextUserID++
	b.accounts[utils.NormalizeEmail(email)] = &account{profile: p, password: password}
	return p
}

func (b *Backend) AddRoom(room domain.Room) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rooms = append(b.rooms, room)
}

func (b *Backend) AddReservation(owner domain.ID, r domain.Reservation) domain.Reservation {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r.ID == "" {
		r.ID = domain.ID(strconv.Itoa(b.nextResID))
		b.nextResID++
	}
	if r.Status == "" {
		r.Status = domain.ReservationConfirmed
	}
	b.reservations = append(b.reservations, ownedReservation{owner: owner, res: r})
	return r
}

// IssueToken returns a valid bearer token for an existing user.
func (b *Backend) IssueToken(user domain.UserProfile) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueTokenLocked(user)
}

func (b *Backend) issueTokenLocked(user domain.UserProfile) string {
	token, err := auth.NewAccessToken(user.ID.String(), user.Email, user.Name, secret, time.Hour)
	if err != nil {
		panic(fmt.Sprintf("testbackend: sign token: %v", err))
	}
	b.tokens[token] = user.ID
	return token
}

func (b *Backend) SetSearchShape(s Shape) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.searchShape = s
}

// RejectAll makes every credentialed endpoint answer 401.
func (b *Backend) RejectAll(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejectAll = v
}

// FailCreate makes POST /reservations answer {error: msg}. Empty resets.
func (b *Backend) FailCreate(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failCreate = msg
}

// FailCancel makes DELETE /reservations/:id answer {error: msg}. Empty resets.
func (b *Backend) FailCancel(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failCancel = msg
}

// BeforeSearch runs inside the /search handler, before the response is
// written. Tests use it to hold a response back.
func (b *Backend) BeforeSearch(fn func(q string, page int)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.beforeSearch = fn
}

func (b *Backend) Requests() []Recorded {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Recorded, len(b.requests))
	copy(out, b.requests)
	return out
}

// RequestsTo filters recorded requests by service.
func (b *Backend) RequestsTo(s registry.Service) []Recorded {
	var out []Recorded
	for _, r := range b.Requests() {
		if r.Service == s {
			out = append(out, r)
		}
	}
	return out
}

func (b *Backend) ReservationIDs(owner domain.ID) []domain.ID {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []domain.ID
	for _, o := range b.reservations {
		if o.owner == owner {
			ids = append(ids, o.res.ID)
		}
	}
	return ids
}

// ---------- Middleware ----------

func (b *Backend) newRouter(service registry.Service) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.Trace(string(service)))
	r.Use(b.record(service))
	return r
}

func (b *Backend) record(service registry.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			b.mu.Lock()
			b.requests = append(b.requests, Recorded{
				Service:  service,
				Method:   r.Method,
				Path:     r.URL.Path,
				RawQuery: r.URL.RawQuery,
				Header:   r.Header.Clone(),
				Body:     body,
			})
			b.mu.Unlock()

			next.ServeHTTP(w, r)
		})
	}
}

// caller resolves the bearer token. required=false lets anonymous calls
// through but still rejects a token the backend does not know.
func (b *Backend) caller(w http.ResponseWriter, r *http.Request, required bool) (domain.ID, bool) {
	b.mu.Lock()
	reject := b.rejectAll
	b.mu.Unlock()

	header := r.Header.Get("Authorization")
	if header == "" && !required {
		return "", true
	}
	if reject || !strings.HasPrefix(header, "Bearer ") {
		writeError(w, http.StatusUnauthorized, "unauthorized", CodeUnauthorized)
		return "", false
	}

	token := strings.TrimPrefix(header, "Bearer ")
	if _, err := auth.Parse(token, secret); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token", CodeUnauthorized)
		return "", false
	}

	b.mu.Lock()
	id, ok := b.tokens[token]
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown session", CodeUnauthorized)
		return "", false
	}
	return id, true
}

// ---------- users ----------

func (b *Backend) usersRouter() http.Handler {
	r := b.newRouter(registry.Users)

	r.Post("/users/login", func(w http.ResponseWriter, r *http.Request) {
		var in domain.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON", CodeInvalidInput)
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		acc, ok := b.accounts[utils.NormalizeEmail(in.Email)]
		if !ok || acc.password != in.Password {
			writeError(w, http.StatusUnauthorized, "invalid credentials", CodeUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token": b.issueTokenLocked(acc.profile),
			"user":  acc.profile,
		})
	})

	r.Post("/users", func(w http.ResponseWriter, r *http.Request) {
		var in domain.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON", CodeInvalidInput)
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		if _, exists := b.accounts[utils.NormalizeEmail(in.Email)]; exists {
			writeError(w, http.StatusConflict, "email already registered", CodeConflict)
			return
		}
		p := b.addUserLocked(in.Email, in.Password, in.Name)
		writeJSON(w, http.StatusCreated, map[string]any{"user": p})
	})

	return r
}

// ---------- search ----------

func (b *Backend) searchRouter() http.Handler {
	r := b.newRouter(registry.Search)

	r.Get("/search", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := b.caller(w, r, false); !ok {
			return
		}

		q := r.URL.Query().Get("q")
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			page = 1
		}

		b.mu.Lock()
		hook := b.beforeSearch
		b.mu.Unlock()
		if hook != nil {
			hook(q, page)
		}

		b.mu.Lock()
		var matched []domain.Room
		needle := strings.ToLower(q)
		for _, room := range b.rooms {
			if needle == "" ||
				strings.Contains(strings.ToLower(room.Name), needle) ||
				strings.Contains(strings.ToLower(room.Description), needle) {
				matched = append(matched, room)
			}
		}
		shape := b.searchShape
		b.mu.Unlock()

		start := (page - 1) * PageSize
		pageRooms := []domain.Room{}
		if start < len(matched) {
			end := start + PageSize
			if end > len(matched) {
				end = len(matched)
			}
			pageRooms = matched[start:end]
		}

		switch shape {
		case ShapeResults:
			writeJSON(w, http.StatusOK, map[string]any{"results": pageRooms, "page": page})
		case ShapeRooms:
			writeJSON(w, http.StatusOK, map[string]any{"rooms": pageRooms, "page": page})
		default:
			writeJSON(w, http.StatusOK, pageRooms)
		}
	})

	return r
}

// ---------- hotels ----------

func (b *Backend) hotelsRouter() http.Handler {
	r := b.newRouter(registry.Hotels)

	r.Get("/hotels", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := b.caller(w, r, false); !ok {
			return
		}
		b.mu.Lock()
		rooms := append([]domain.Room{}, b.rooms...)
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, rooms)
	})

	r.Get("/hotels/{id}", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := b.caller(w, r, false); !ok {
			return
		}
		id := domain.ID(chi.URLParam(r, "id"))

		b.mu.Lock()
		defer b.mu.Unlock()
		for _, room := range b.rooms {
			if room.ID == id {
				writeJSON(w, http.StatusOK, room)
				return
			}
		}
		writeError(w, http.StatusNotFound, "hotel not found", CodeNotFound)
	})

	r.Post("/hotels", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := b.caller(w, r, true); !ok {
			return
		}
		var room domain.Room
		if err := json.NewDecoder(r.Body).Decode(&room); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON", CodeInvalidInput)
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		if room.ID == "" {
			room.ID = domain.ID(fmt.Sprintf("h%d", len(b.rooms)+1))
		}
		b.rooms = append(b.rooms, room)
		writeJSON(w, http.StatusCreated, room)
	})

	r.Put("/hotels/{id}", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := b.caller(w, r, true); !ok {
			return
		}
		id := domain.ID(chi.URLParam(r, "id"))
		var room domain.Room
		if err := json.NewDecoder(r.Body).Decode(&room); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON", CodeInvalidInput)
			return
		}
		room.ID = id

		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.rooms {
			if b.rooms[i].ID == id {
				b.rooms[i] = room
				writeJSON(w, http.StatusOK, room)
				return
			}
		}
		writeError(w, http.StatusNotFound, "hotel not found", CodeNotFound)
	})

	r.Delete("/hotels/{id}", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := b.caller(w, r, true); !ok {
			return
		}
		id := domain.ID(chi.URLParam(r, "id"))

		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.rooms {
			if b.rooms[i].ID == id {
				b.rooms = append(b.rooms[:i], b.rooms[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		writeError(w, http.StatusNotFound, "hotel not found", CodeNotFound)
	})

	return r
}

// ---------- reservations ----------

func (b *Backend) reservationsRouter() http.Handler {
	r := b.newRouter(registry.Reservations)

	r.Post("/reservations", func(w http.ResponseWriter, r *http.Request) {
		owner, ok := b.caller(w, r, true)
		if !ok {
			return
		}
		var draft domain.ReservationDraft
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON", CodeInvalidInput)
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		if b.failCreate != "" {
			writeError(w, http.StatusBadRequest, b.failCreate, CodeInvalidInput)
			return
		}

		res := domain.Reservation{
			ID:       domain.ID(strconv.Itoa(b.nextResID)),
			RoomID:   draft.RoomID,
			CheckIn:  draft.CheckIn,
			CheckOut: draft.CheckOut,
			Status:   domain.ReservationPending,
		}
		b.nextResID++
		for i := range b.rooms {
			if b.rooms[i].ID == draft.RoomID {
				room := b.rooms[i]
				res.Room = &room
				res.Total = room.Price
			}
		}
		b.reservations = append(b.reservations, ownedReservation{owner: owner, res: res})
		writeJSON(w, http.StatusCreated, res)
	})

	r.Get("/reservations/my", func(w http.ResponseWriter, r *http.Request) {
		owner, ok := b.caller(w, r, true)
		if !ok {
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		out := []domain.Reservation{}
		for _, o := range b.reservations {
			if o.owner == owner {
				out = append(out, o.res)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Delete("/reservations/{id}", func(w http.ResponseWriter, r *http.Request) {
		owner, ok := b.caller(w, r, true)
		if !ok {
			return
		}
		id := domain.ID(chi.URLParam(r, "id"))

		b.mu.Lock()
		defer b.mu.Unlock()
		if b.failCancel != "" {
			writeError(w, http.StatusConflict, b.failCancel, CodeConflict)
			return
		}
		for i, o := range b.reservations {
			if o.res.ID == id && o.owner == owner {
				b.reservations = append(b.reservations[:i], b.reservations[i+1:]...)
				writeJSON(w, http.StatusOK, map[string]string{"message": "reservation cancelled"})
				return
			}
		}
		writeError(w, http.StatusNotFound, "reservation not found", CodeNotFound)
	})

	r.Get("/reservations", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := b.caller(w, r, true); !ok {
			return
		}
		status := r.URL.Query().Get("status")
		userID := r.URL.Query().Get("user_id")

		b.mu.Lock()
		defer b.mu.Unlock()
		out := []domain.Reservation{}
		for _, o := range b.reservations {
			if status != "" && string(o.res.Status) != status {
				continue
			}
			if userID != "" && o.owner.String() != userID {
				continue
			}
			out = append(out, o.res)
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Put("/reservations/{id}", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := b.caller(w, r, true); !ok {
			return
		}
		id := domain.ID(chi.URLParam(r, "id"))
		var patch domain.ReservationPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON", CodeInvalidInput)
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.reservations {
			res := &b.reservations[i].res
			if res.ID != id {
				continue
			}
			if patch.CheckIn != nil {
				res.CheckIn = *patch.CheckIn
			}
			if patch.CheckOut != nil {
				res.CheckOut = *patch.CheckOut
			}
			if patch.Status != nil {
				res.Status = *patch.Status
			}
			writeJSON(w, http.StatusOK, res)
			return
		}
		writeError(w, http.StatusNotFound, "reservation not found", CodeNotFound)
	})

	return r
}
